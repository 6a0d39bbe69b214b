package config

import (
	"errors"
	"time"
)

// Ops server defaults.
const (
	defaultServerAddress      = ":8090"
	defaultServerReadTimeout  = 10 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
	defaultServerIdleTimeout  = 60 * time.Second
)

// ServerConfig holds the operational HTTP server settings.
type ServerConfig struct {
	Address      string        `yaml:"address" mapstructure:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// NewServerConfig returns server defaults.
func NewServerConfig() *ServerConfig {
	cfg := &ServerConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *ServerConfig) applyDefaults() {
	if c.Address == "" {
		c.Address = defaultServerAddress
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaultServerReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaultServerWriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = defaultServerIdleTimeout
	}
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		return errors.New("address required")
	}
	return nil
}
