package app

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"github.com/yourusername/offline-player-go/internal/domain"
)

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, domain.DefaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.offline-player")
		v.AddConfigPath("/etc/offline-player")
	}

	// OFFLINEPLAYER_STREAMING_LICENSE_USERNAME overrides streaming.license_username
	v.SetEnvPrefix("OFFLINEPLAYER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults registers every key so environment overrides apply without a config file
func setDefaults(v *viper.Viper, c *domain.Config) {
	v.SetDefault("server.host", c.Server.Host)
	v.SetDefault("server.port", c.Server.Port)

	v.SetDefault("streaming.cloud_distribution_host", c.Streaming.CloudDistributionHost)
	v.SetDefault("streaming.storage_host", c.Streaming.StorageHost)
	v.SetDefault("streaming.license_host", c.Streaming.LicenseHost)
	v.SetDefault("streaming.license_username", c.Streaming.LicenseUsername)
	v.SetDefault("streaming.domain_name", c.Streaming.DomainName)
	v.SetDefault("streaming.certificate_path", c.Streaming.CertificatePath)
	v.SetDefault("streaming.product_id", c.Streaming.ProductID)
	v.SetDefault("streaming.transaction_id", c.Streaming.TransactionID)

	v.SetDefault("download.base_dir", c.Download.BaseDir)
	v.SetDefault("download.logs_dir", c.Download.LogsDir)
	v.SetDefault("download.minimum_bitrate", c.Download.MinimumBitrate)
	v.SetDefault("download.completion_threshold", c.Download.CompletionThreshold)
	v.SetDefault("download.request_timeout", c.Download.RequestTimeout.String())

	v.SetDefault("storage.database_path", c.Storage.DatabasePath)

	v.SetDefault("stats.enabled", c.Stats.Enabled)
	v.SetDefault("stats.host", c.Stats.Host)
	v.SetDefault("stats.player_type", c.Stats.PlayerType)
	v.SetDefault("stats.program_code", c.Stats.ProgramCode)
	v.SetDefault("stats.timeout", c.Stats.Timeout.String())

	v.SetDefault("reachability.enabled", c.Reachability.Enabled)
	v.SetDefault("reachability.address", c.Reachability.Address)
	v.SetDefault("reachability.interval", c.Reachability.Interval.String())
	v.SetDefault("reachability.timeout", c.Reachability.Timeout.String())

	v.SetDefault("notification.enabled", c.Notification.Enabled)
	v.SetDefault("notification.sound", c.Notification.Sound)
	v.SetDefault("notification.method", c.Notification.Method)

	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)
	v.SetDefault("logging.output_path", c.Logging.OutputPath)
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Download.BaseDir = expandPath(config.Download.BaseDir)
	config.Download.LogsDir = expandPath(config.Download.LogsDir)
	config.Storage.DatabasePath = expandPath(config.Storage.DatabasePath)
	config.Streaming.CertificatePath = expandPath(config.Streaming.CertificatePath)

	if config.Logging.OutputPath != "stdout" && config.Logging.OutputPath != "stderr" {
		config.Logging.OutputPath = expandPath(config.Logging.OutputPath)
	}

	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Download.BaseDir == "" {
		return fmt.Errorf("download base directory not configured")
	}

	if config.Download.MinimumBitrate < 0 {
		return fmt.Errorf("minimum bitrate cannot be negative")
	}

	if config.Download.CompletionThreshold < 1 || config.Download.CompletionThreshold > 100 {
		return fmt.Errorf("completion threshold must be between 1 and 100: %d", config.Download.CompletionThreshold)
	}

	if config.Storage.DatabasePath == "" {
		return fmt.Errorf("storage database path not configured")
	}

	if config.Streaming.CloudDistributionHost == "" || config.Streaming.StorageHost == "" {
		return fmt.Errorf("streaming hosts not configured")
	}

	if config.Reachability.Enabled {
		if _, _, err := net.SplitHostPort(config.Reachability.Address); err != nil {
			return fmt.Errorf("invalid reachability address %q: %w", config.Reachability.Address, err)
		}
		if config.Reachability.Interval <= 0 {
			return fmt.Errorf("reachability interval must be positive")
		}
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, config)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
