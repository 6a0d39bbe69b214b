package config

import (
	"errors"
	"fmt"
	"time"
)

// Source names recognized by the fetch command.
const (
	SourceCharts  = "charts"
	SourceList    = "list"
	SourceDetails = "details"
	SourceReviews = "reviews"
	SourcePlayers = "players"
	SourceIDs     = "ids"
	SourcePrices  = "prices"
)

// SourceNames returns every known source in pipeline order.
func SourceNames() []string {
	return []string{
		SourceCharts,
		SourceList,
		SourceDetails,
		SourceReviews,
		SourcePlayers,
		SourceIDs,
		SourcePrices,
	}
}

// Fetch engine defaults.
const (
	defaultBatchSize      = 40
	defaultRetryBatchSize = 20
	defaultWorkers        = 2
	defaultMaxAttempts    = 3
	defaultRetryCooldown  = 2 * time.Second
	defaultBaseDelay      = 800 * time.Millisecond
	defaultRequestTimeout = 15 * time.Second
)

// SourceConfig holds per-source fetch settings.
type SourceConfig struct {
	// Endpoint is the base URL of the source's API.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint"`
	// APIKey authenticates requests where the source requires a key.
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
	// BaseDelay is the pause between request submissions within a batch,
	// inflated further by the rate-limit tracker.
	BaseDelay time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	// Staleness is the freshness window for cached successes. Entries
	// older than this are re-fetched. Zero or negative disables the
	// staleness check, so a cached success is skipped forever.
	Staleness time.Duration `yaml:"staleness" mapstructure:"staleness"`
	// Country selects the storefront region for price data.
	Country string `yaml:"country" mapstructure:"country"`
	// Language selects the catalog language for detail payloads.
	Language string `yaml:"language" mapstructure:"language"`
}

// FetchConfig holds batch-fetch engine settings shared by all sources.
type FetchConfig struct {
	// BatchSize is the number of work items per first-pass batch.
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
	// RetryBatchSize is the smaller batch size used by retry stages.
	RetryBatchSize int `yaml:"retry_batch_size" mapstructure:"retry_batch_size"`
	// Workers bounds concurrent in-flight requests per fetcher.
	Workers int `yaml:"workers" mapstructure:"workers"`
	// MaxAttempts is the quarantine threshold: an entity that has failed
	// this many times is skipped without a network call.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// RetryCooldown is the pause between retry rounds.
	RetryCooldown time.Duration `yaml:"retry_cooldown" mapstructure:"retry_cooldown"`
	// RequestTimeout bounds a single HTTP request.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	// Sources maps source name to its settings.
	Sources map[string]*SourceConfig `yaml:"sources" mapstructure:"sources"`
}

// NewFetchConfig returns fetch defaults for every known source.
func NewFetchConfig() *FetchConfig {
	cfg := &FetchConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *FetchConfig) applyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.RetryBatchSize == 0 {
		c.RetryBatchSize = defaultRetryBatchSize
	}
	if c.Workers == 0 {
		c.Workers = defaultWorkers
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryCooldown == 0 {
		c.RetryCooldown = defaultRetryCooldown
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.Sources == nil {
		c.Sources = map[string]*SourceConfig{}
	}

	defaults := map[string]*SourceConfig{
		SourceCharts: {
			Endpoint:  "https://steamcharts.com/top/p.%d",
			BaseDelay: 500 * time.Millisecond,
			Staleness: time.Hour,
		},
		SourceList: {
			Endpoint:  "https://api.steampowered.com/IStoreService/GetAppList/v1/",
			BaseDelay: 500 * time.Millisecond,
		},
		SourceDetails: {
			Endpoint:  "https://store.steampowered.com/api/appdetails",
			BaseDelay: defaultBaseDelay,
			Staleness: 48 * time.Hour,
			Language:  "english",
		},
		SourceReviews: {
			Endpoint:  "https://store.steampowered.com/appreviews",
			BaseDelay: defaultBaseDelay,
			Staleness: 24 * time.Hour,
		},
		SourcePlayers: {
			Endpoint:  "https://api.steampowered.com/ISteamUserStats/GetNumberOfCurrentPlayers/v1/",
			BaseDelay: defaultBaseDelay,
			Staleness: 3 * time.Hour,
		},
		SourceIDs: {
			Endpoint:  "https://api.isthereanydeal.com/games/lookup/v1",
			BaseDelay: 500 * time.Millisecond,
		},
		SourcePrices: {
			Endpoint:  "https://api.isthereanydeal.com/games/prices/v3",
			BaseDelay: time.Second,
			Staleness: 24 * time.Hour,
			Country:   "US",
		},
	}

	for name, def := range defaults {
		src, ok := c.Sources[name]
		if !ok {
			c.Sources[name] = def
			continue
		}
		if src.Endpoint == "" {
			src.Endpoint = def.Endpoint
		}
		if src.BaseDelay == 0 {
			src.BaseDelay = def.BaseDelay
		}
		if src.Staleness == 0 {
			src.Staleness = def.Staleness
		}
		if src.Country == "" {
			src.Country = def.Country
		}
		if src.Language == "" {
			src.Language = def.Language
		}
	}
}

// Source returns the configuration for the named source.
func (c *FetchConfig) Source(name string) (*SourceConfig, error) {
	src, ok := c.Sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown fetch source %q", name)
	}
	return src, nil
}

// Validate validates the fetch configuration.
func (c *FetchConfig) Validate() error {
	if c.BatchSize <= 0 {
		return errors.New("batch_size must be positive")
	}
	if c.RetryBatchSize <= 0 {
		return errors.New("retry_batch_size must be positive")
	}
	if c.Workers <= 0 {
		return errors.New("workers must be positive")
	}
	if c.MaxAttempts <= 0 {
		return errors.New("max_attempts must be positive")
	}
	for name, src := range c.Sources {
		if src.Endpoint == "" {
			return fmt.Errorf("source %s: endpoint required", name)
		}
	}
	return nil
}
