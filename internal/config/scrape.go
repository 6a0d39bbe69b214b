package config

import "errors"

// Chart scrape defaults.
const (
	defaultTopGames   = 5000
	gamesPerChartPage = 25
	defaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// ScrapeConfig holds settings for the concurrent-player chart scrape.
// The chart endpoint itself lives under fetch.sources.charts.
type ScrapeConfig struct {
	// TopGames is how many ranked games to collect. Pages are derived
	// from this at 25 rows per page.
	TopGames int `yaml:"top_games" mapstructure:"top_games"`
	// UserAgent is sent with every scrape request.
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// NewScrapeConfig returns scrape defaults.
func NewScrapeConfig() *ScrapeConfig {
	cfg := &ScrapeConfig{}
	cfg.applyDefaults()
	return cfg
}

func (c *ScrapeConfig) applyDefaults() {
	if c.TopGames == 0 {
		c.TopGames = defaultTopGames
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
}

// Pages returns the number of chart pages covering TopGames entries.
func (c *ScrapeConfig) Pages() int {
	pages := c.TopGames / gamesPerChartPage
	if c.TopGames%gamesPerChartPage != 0 {
		pages++
	}
	if pages < 1 {
		pages = 1
	}
	return pages
}

// Validate validates the scrape configuration.
func (c *ScrapeConfig) Validate() error {
	if c.TopGames <= 0 {
		return errors.New("top_games must be positive")
	}
	return nil
}
