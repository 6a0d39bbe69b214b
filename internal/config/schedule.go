package config

import (
	"errors"
	"time"
)

// Schedule defaults.
const (
	defaultCronSpec   = "0 3 * * *"
	defaultRunTimeout = 6 * time.Hour
)

// ScheduleConfig holds settings for the scheduled pipeline runner.
type ScheduleConfig struct {
	// CronSpec is a standard five-field cron expression.
	CronSpec string `yaml:"cron_spec" mapstructure:"cron_spec"`
	// RunTimeout bounds a single scheduled pipeline run.
	RunTimeout time.Duration `yaml:"run_timeout" mapstructure:"run_timeout"`
}

// NewScheduleConfig returns schedule defaults.
func NewScheduleConfig() *ScheduleConfig {
	cfg := &ScheduleConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *ScheduleConfig) applyDefaults() {
	if c.CronSpec == "" {
		c.CronSpec = defaultCronSpec
	}
	if c.RunTimeout == 0 {
		c.RunTimeout = defaultRunTimeout
	}
}

// Validate validates the schedule configuration.
func (c *ScheduleConfig) Validate() error {
	if c.CronSpec == "" {
		return errors.New("cron_spec required")
	}
	if c.RunTimeout <= 0 {
		return errors.New("run_timeout must be positive")
	}
	return nil
}
