package config

import (
	"errors"
	"fmt"
	"time"
)

// Database defaults.
const (
	defaultDatabaseHost    = "localhost"
	defaultDatabasePort    = 5432
	defaultDatabaseName    = "gamesync"
	defaultDatabaseUser    = "postgres"
	defaultDatabaseSSLMode = "disable"
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultUpsertChunkSize = 500
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Name     string `yaml:"name" mapstructure:"name"`
	SSLMode  string `yaml:"ssl_mode" mapstructure:"ssl_mode"`

	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`

	// UpsertChunkSize bounds the row count per multi-row upsert statement.
	UpsertChunkSize int `yaml:"upsert_chunk_size" mapstructure:"upsert_chunk_size"`
}

// NewDatabaseConfig returns database defaults.
func NewDatabaseConfig() *DatabaseConfig {
	cfg := &DatabaseConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *DatabaseConfig) applyDefaults() {
	if c.Host == "" {
		c.Host = defaultDatabaseHost
	}
	if c.Port == 0 {
		c.Port = defaultDatabasePort
	}
	if c.User == "" {
		c.User = defaultDatabaseUser
	}
	if c.Name == "" {
		c.Name = defaultDatabaseName
	}
	if c.SSLMode == "" {
		c.SSLMode = defaultDatabaseSSLMode
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = defaultMaxOpenConns
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = defaultMaxIdleConns
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = defaultConnMaxLifetime
	}
	if c.UpsertChunkSize == 0 {
		c.UpsertChunkSize = defaultUpsertChunkSize
	}
}

// DSN returns the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	if c.Host == "" {
		return errors.New("host required")
	}
	if c.Port <= 0 {
		return errors.New("port must be positive")
	}
	if c.Name == "" {
		return errors.New("name required")
	}
	if c.UpsertChunkSize <= 0 {
		return errors.New("upsert_chunk_size must be positive")
	}
	return nil
}
