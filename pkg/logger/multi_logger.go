package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryDownload LogCategory = "download" // Transfer lifecycle and progress (JSON)
	CategoryLicense  LogCategory = "license"  // Key resolution and license exchanges (JSON)
	CategoryPlayback LogCategory = "playback" // Playback sessions and telemetry (JSON)
	CategoryError    LogCategory = "error"    // Application errors (JSON)
)

// Categories lists every category in display order
var Categories = []LogCategory{CategoryDownload, CategoryLicense, CategoryPlayback, CategoryError}

// ValidCategory reports whether name is a known category
func ValidCategory(name string) bool {
	for _, c := range Categories {
		if string(c) == name {
			return true
		}
	}
	return false
}

// MultiLogger provides categorized logging with one JSON file per category and day
type MultiLogger struct {
	loggers     map[LogCategory]*zap.Logger
	files       map[LogCategory]*os.File
	level       zapcore.Level
	config      MultiLoggerConfig
	mu          sync.RWMutex
	currentDate string
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	ml := &MultiLogger{
		loggers: make(map[LogCategory]*zap.Logger),
		files:   make(map[LogCategory]*os.File),
		level:   level,
		config:  config,
	}

	if err := ml.openAll(time.Now().Format("20060102")); err != nil {
		return nil, err
	}
	return ml, nil
}

// openAll opens one file per category for date; callers hold mu or own ml exclusively
func (ml *MultiLogger) openAll(date string) error {
	for _, category := range Categories {
		level := ml.level
		if category == CategoryError {
			level = zapcore.ErrorLevel
		}

		logger, file, err := ml.createStructuredLogger(category, date, level)
		if err != nil {
			return fmt.Errorf("failed to create %s logger: %w", category, err)
		}
		if old, ok := ml.files[category]; ok {
			_ = ml.loggers[category].Sync()
			old.Close()
		}
		ml.loggers[category] = logger
		ml.files[category] = file
	}
	ml.currentDate = date
	return nil
}

// createStructuredLogger creates a JSON-formatted logger for a category
func (ml *MultiLogger) createStructuredLogger(category LogCategory, date string, level zapcore.Level) (*zap.Logger, *os.File, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = ""

	logPath := filepath.Join(ml.config.LogsDir, fmt.Sprintf("%s-%s.log", category, date))
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, err
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level)
	return zap.New(core), file, nil
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a category, rotating files when the day changes
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	today := time.Now().Format("20060102")

	ml.mu.RLock()
	rotate := today != ml.currentDate
	logger, ok := ml.loggers[category]
	ml.mu.RUnlock()

	if rotate {
		ml.mu.Lock()
		if today != ml.currentDate {
			if err := ml.openAll(today); err != nil {
				fmt.Fprintf(os.Stderr, "log rotation failed: %v\n", err)
				ml.currentDate = today
			}
		}
		logger, ok = ml.loggers[category]
		ml.mu.Unlock()
	}

	if ok {
		return logger
	}

	ml.mu.RLock()
	defer ml.mu.RUnlock()
	return ml.loggers[CategoryError]
}

// Download returns the download logger
func (ml *MultiLogger) Download() *zap.Logger {
	return ml.GetLogger(CategoryDownload)
}

// License returns the license logger
func (ml *MultiLogger) License() *zap.Logger {
	return ml.GetLogger(CategoryLicense)
}

// Playback returns the playback logger
func (ml *MultiLogger) Playback() *zap.Logger {
	return ml.GetLogger(CategoryPlayback)
}

// Error returns the error logger
func (ml *MultiLogger) Error() *zap.Logger {
	return ml.GetLogger(CategoryError)
}

// LogAppError logs an application-level error (Go errors, panics)
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.Error().Error(msg, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close flushes all loggers and closes their files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for category, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
		if file, ok := ml.files[category]; ok {
			if err := file.Close(); err != nil {
				lastErr = err
			}
		}
	}
	ml.files = make(map[LogCategory]*os.File)
	return lastErr
}

// Core returns a zap core that always writes to the current file of a category
func (ml *MultiLogger) Core(category LogCategory) zapcore.Core {
	return &categoryCore{ml: ml, category: category}
}

type categoryCore struct {
	ml       *MultiLogger
	category LogCategory
	fields   []zapcore.Field
}

func (c *categoryCore) current() zapcore.Core {
	return c.ml.GetLogger(c.category).Core()
}

func (c *categoryCore) Enabled(level zapcore.Level) bool {
	return c.current().Enabled(level)
}

func (c *categoryCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &categoryCore{ml: c.ml, category: c.category, fields: merged}
}

func (c *categoryCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *categoryCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	all = append(all, fields...)
	return c.current().Write(entry, all)
}

func (c *categoryCore) Sync() error {
	return c.current().Sync()
}
