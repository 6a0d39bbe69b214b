package config

import (
	"errors"
	"time"
)

// Object storage defaults.
const (
	defaultStorageEndpoint = "localhost:9000"
	defaultStorageBucket   = "gamesync-backup"
	defaultStorageTimeout  = 60 * time.Second
)

// StorageConfig holds S3-compatible backup storage settings.
type StorageConfig struct {
	// Enabled toggles snapshot backup uploads.
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	Region    string `yaml:"region" mapstructure:"region"`
	// UploadTimeout bounds a single object upload.
	UploadTimeout time.Duration `yaml:"upload_timeout" mapstructure:"upload_timeout"`
	// FailSilently downgrades upload errors to warnings so a pipeline
	// run is not failed by an unreachable backup target.
	FailSilently bool `yaml:"fail_silently" mapstructure:"fail_silently"`
}

// NewStorageConfig returns storage defaults with backups disabled.
func NewStorageConfig() *StorageConfig {
	cfg := &StorageConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *StorageConfig) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = defaultStorageEndpoint
	}
	if c.Bucket == "" {
		c.Bucket = defaultStorageBucket
	}
	if c.UploadTimeout == 0 {
		c.UploadTimeout = defaultStorageTimeout
	}
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Endpoint == "" {
		return errors.New("endpoint required")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return errors.New("access_key and secret_key required")
	}
	if c.Bucket == "" {
		return errors.New("bucket required")
	}
	return nil
}
