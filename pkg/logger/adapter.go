package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerAdapter hands out category loggers. With a MultiLogger every category is
// written both to its file and to the general logger.
type LoggerAdapter struct {
	multiLogger *MultiLogger
	general     *zap.Logger
}

// NewLoggerAdapter creates a new logger adapter; multiLogger may be nil
func NewLoggerAdapter(general *zap.Logger, multiLogger *MultiLogger) *LoggerAdapter {
	if general == nil {
		general = zap.NewNop()
	}
	return &LoggerAdapter{
		multiLogger: multiLogger,
		general:     general,
	}
}

func (la *LoggerAdapter) category(category LogCategory) *zap.Logger {
	named := la.general.Named(string(category))
	if la.multiLogger == nil {
		return named
	}
	fileCore := la.multiLogger.Core(category)
	return named.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	}))
}

// Download returns the download logger
func (la *LoggerAdapter) Download() *zap.Logger {
	return la.category(CategoryDownload)
}

// License returns the license logger
func (la *LoggerAdapter) License() *zap.Logger {
	return la.category(CategoryLicense)
}

// Playback returns the playback logger
func (la *LoggerAdapter) Playback() *zap.Logger {
	return la.category(CategoryPlayback)
}

// General returns the general logger
func (la *LoggerAdapter) General() *zap.Logger {
	return la.general
}

// LogError logs an error to the general log and the error category
func (la *LoggerAdapter) LogError(msg string, fields ...zap.Field) {
	la.general.Error(msg, fields...)
	if la.multiLogger != nil {
		la.multiLogger.LogAppError(msg, fields...)
	}
}

// Sync flushes all loggers
func (la *LoggerAdapter) Sync() error {
	if la.multiLogger != nil {
		if err := la.multiLogger.Sync(); err != nil {
			return err
		}
	}
	return la.general.Sync()
}
