// Package config provides application configuration loaded from YAML files
// and environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/jonesrussell/gamesync/internal/logger"
)

// envPrefix is the prefix for environment variable overrides,
// e.g. GAMESYNC_DATABASE_HOST.
const envPrefix = "GAMESYNC"

// AppConfig holds top-level application settings.
type AppConfig struct {
	// Name is the application name used in logs and run summaries.
	Name string `yaml:"name" mapstructure:"name"`
	// Environment is "development" or "production".
	Environment string `yaml:"environment" mapstructure:"environment"`
	// DataDir is the root of the local data layout (raw, processed,
	// backup, cache subdirectories are created beneath it).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
}

// NewAppConfig returns application defaults.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Name:        "gamesync",
		Environment: "development",
		DataDir:     "./data",
	}
}

// Config is the root configuration.
type Config struct {
	App       *AppConfig       `yaml:"app" mapstructure:"app"`
	Log       *logger.Config   `yaml:"log" mapstructure:"log"`
	Fetch     *FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	RateLimit *RateLimitConfig `yaml:"ratelimit" mapstructure:"ratelimit"`
	Scrape    *ScrapeConfig    `yaml:"scrape" mapstructure:"scrape"`
	Database  *DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Storage   *StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Server    *ServerConfig    `yaml:"server" mapstructure:"server"`
	Schedule  *ScheduleConfig  `yaml:"schedule" mapstructure:"schedule"`
	// Tables holds per-table overrides (identity columns, required
	// columns); decoded by the table package.
	Tables map[string]any `yaml:"tables" mapstructure:"tables"`
}

// Load loads configuration from the given path. An empty path searches the
// working directory for gamesync.yml. A missing file is not an error; the
// defaults plus environment overrides apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("gamesync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults fills nil sub-configs and zero values with defaults.
func setDefaults(cfg *Config) {
	if cfg.App == nil {
		cfg.App = NewAppConfig()
	}
	if cfg.App.Name == "" {
		cfg.App.Name = "gamesync"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.App.DataDir == "" {
		cfg.App.DataDir = "./data"
	}
	if cfg.Log == nil {
		cfg.Log = &logger.Config{}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = logger.DefaultLevel
	}
	if cfg.Fetch == nil {
		cfg.Fetch = NewFetchConfig()
	} else {
		cfg.Fetch.applyDefaults()
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = NewRateLimitConfig()
	} else {
		cfg.RateLimit.applyDefaults()
	}
	if cfg.Scrape == nil {
		cfg.Scrape = NewScrapeConfig()
	} else {
		cfg.Scrape.applyDefaults()
	}
	if cfg.Database == nil {
		cfg.Database = NewDatabaseConfig()
	} else {
		cfg.Database.applyDefaults()
	}
	if cfg.Storage == nil {
		cfg.Storage = NewStorageConfig()
	} else {
		cfg.Storage.applyDefaults()
	}
	if cfg.Server == nil {
		cfg.Server = NewServerConfig()
	} else {
		cfg.Server.applyDefaults()
	}
	if cfg.Schedule == nil {
		cfg.Schedule = NewScheduleConfig()
	} else {
		cfg.Schedule.applyDefaults()
	}

	// Development environments default to human-readable logs.
	if cfg.App.Environment == "development" && cfg.Log.Encoding == "" {
		cfg.Log.Development = true
	}
}

// Validate validates every sub-config.
func (c *Config) Validate() error {
	if err := c.Fetch.Validate(); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("ratelimit: %w", err)
	}
	if err := c.Scrape.Validate(); err != nil {
		return fmt.Errorf("scrape: %w", err)
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Schedule.Validate(); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	return nil
}
