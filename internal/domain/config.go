package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Streaming    StreamingConfig    `mapstructure:"streaming"`
	Download     DownloadConfig     `mapstructure:"download"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Stats        StatsConfig        `mapstructure:"stats"`
	Reachability ReachabilityConfig `mapstructure:"reachability"`
	Notification NotificationConfig `mapstructure:"notification"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StreamingConfig holds the FairPlay endpoints and account values shared by every stream
type StreamingConfig struct {
	CloudDistributionHost string `mapstructure:"cloud_distribution_host"`
	StorageHost           string `mapstructure:"storage_host"`
	LicenseHost           string `mapstructure:"license_host"`
	LicenseUsername       string `mapstructure:"license_username"`
	DomainName            string `mapstructure:"domain_name"`
	CertificatePath       string `mapstructure:"certificate_path"`
	ProductID             string `mapstructure:"product_id"`
	TransactionID         string `mapstructure:"transaction_id"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	BaseDir             string        `mapstructure:"base_dir"`
	LogsDir             string        `mapstructure:"logs_dir"`
	MinimumBitrate      int           `mapstructure:"minimum_bitrate"`
	CompletionThreshold int           `mapstructure:"completion_threshold"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout"`
}

// StorageConfig contains persistence configuration
type StorageConfig struct {
	DatabasePath string `mapstructure:"database_path"`
}

// StatsConfig contains telemetry configuration
type StatsConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Host        string        `mapstructure:"host"`
	PlayerType  string        `mapstructure:"player_type"`
	ProgramCode string        `mapstructure:"program_code"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ReachabilityConfig controls the connectivity check
type ReachabilityConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"` // host:port dialed by the check
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// NotificationConfig contains notification-related configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Sound   bool   `mapstructure:"sound"`
	Method  string `mapstructure:"method"` // osascript, notify-send, etc.
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8089,
		},
		Streaming: StreamingConfig{
			CloudDistributionHost: "https://d1h3b0x5sr9xzj.cloudfront.net",
			StorageHost:           "https://vodstorage.arte.tv",
			LicenseHost:           "https://fps.ezdrm.com",
			CertificatePath:       "$HOME/.offline-player/fairplay.cer",
		},
		Download: DownloadConfig{
			BaseDir:             "$HOME/Movies/offline-player",
			LogsDir:             "$HOME/Movies/offline-player/logs",
			MinimumBitrate:      265000,
			CompletionThreshold: 90,
			RequestTimeout:      60 * time.Second,
		},
		Storage: StorageConfig{
			DatabasePath: "$HOME/.offline-player/assets.db",
		},
		Stats: StatsConfig{
			Enabled:     true,
			Host:        "https://preprod-statsservices.lab.arte.tv",
			PlayerType:  "go",
			ProgramCode: "EM",
			Timeout:     10 * time.Second,
		},
		Reachability: ReachabilityConfig{
			Enabled:  true,
			Address:  "vodstorage.arte.tv:443",
			Interval: 15 * time.Second,
			Timeout:  5 * time.Second,
		},
		Notification: NotificationConfig{
			Enabled: false,
			Sound:   true,
			Method:  "osascript",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
