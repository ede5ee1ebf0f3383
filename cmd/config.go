package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/etnz/coindash"
	"github.com/etnz/coindash/coingecko"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding the configuration file.
const (
	EnvConfig        = "COINDASH_CONFIG"
	EnvState         = "COINDASH_STATE"
	EnvCurrency      = "COINDASH_CURRENCY"
	EnvRedis         = "COINDASH_REDIS"
	EnvVerbose       = "COINDASH_VERBOSE"
	EnvCoingeckoURL  = "COINDASH_COINGECKO_URL"
	EnvCoingeckoKey  = "COINDASH_COINGECKO_KEY"
	EnvMetricsAddr   = "COINDASH_METRICS_ADDR"
	defaultState     = "coindash.jsonl"
	defaultCurrency  = "USD"
	defaultPerPage   = 100
	defaultInterval  = 60
	defaultStateName = "default"
)

// Config holds the application settings. It is loaded by LoadConfig, then
// sensitive values are overridden by environment variables.
type Config struct {
	// Ledger currency, also the base currency of market snapshots.
	Currency string `yaml:"currency"`
	// Display currency, defaults to Currency.
	Display string `yaml:"display"`
	// Cost basis method: "average" or "fifo".
	Method string `yaml:"method"`

	State struct {
		File  string `yaml:"file"`
		Redis string `yaml:"redis"` // when set, the state is kept in redis instead of File
		Name  string `yaml:"name"`  // name of the state in redis
	} `yaml:"state"`

	Provider struct {
		URL         string `yaml:"url"`
		APIKey      string `yaml:"api_key"`
		PerPage     int    `yaml:"per_page"`
		IntervalSec int    `yaml:"interval_sec"`
	} `yaml:"provider"`

	// Rates are static exchange rates against Currency, used until the
	// provider returns fresh ones.
	Rates map[string]string `yaml:"rates"`

	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	if c.Currency == "" {
		c.Currency = defaultCurrency
	}
	if c.Display == "" {
		c.Display = c.Currency
	}
	if c.State.File == "" {
		c.State.File = defaultState
	}
	if c.State.Name == "" {
		c.State.Name = defaultStateName
	}
	if c.Provider.URL == "" {
		c.Provider.URL = coingecko.DefaultURL
	}
	if c.Provider.PerPage <= 0 {
		c.Provider.PerPage = defaultPerPage
	}
	if c.Provider.IntervalSec <= 0 {
		c.Provider.IntervalSec = defaultInterval
	}
}

// LoadConfig reads and parses the configuration file. A missing file is not
// an error, defaults are used instead.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("cannot parse %q: %w", path, err)
		}
	}

	overrideWithEnv(&cfg)
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// overrideWithEnv applies the COINDASH_* environment variables.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv(EnvState); v != "" {
		cfg.State.File = v
	}
	if v := os.Getenv(EnvCurrency); v != "" {
		cfg.Display = v
	}
	if v := os.Getenv(EnvRedis); v != "" {
		cfg.State.Redis = v
	}
	if v := os.Getenv(EnvCoingeckoURL); v != "" {
		cfg.Provider.URL = v
	}
	if v := os.Getenv(EnvCoingeckoKey); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.Metrics.Addr = v
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if err := coindash.ValidateCurrency(c.Currency); err != nil {
		return fmt.Errorf("currency: %w", err)
	}
	if err := coindash.ValidateCurrency(c.Display); err != nil {
		return fmt.Errorf("display: %w", err)
	}
	if _, err := coindash.ParseCostBasisMethod(c.Method); err != nil {
		return fmt.Errorf("method: %w", err)
	}
	if _, err := c.StaticRates(); err != nil {
		return err
	}
	return nil
}

// StaticRates returns the configured rates, with Currency as the base.
func (c *Config) StaticRates() (coindash.Rates, error) {
	values := map[string]decimal.Decimal{c.Currency: decimal.NewFromInt(1)}
	for code, v := range c.Rates {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, fmt.Errorf("rates: invalid rate for %s %q: %w", code, v, err)
		}
		if code == c.Currency && !d.Equal(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("rates: base currency %s must have a rate of 1, got %s", code, v)
		}
		values[code] = d
	}
	rates, err := coindash.NewRates(values)
	if err != nil {
		return nil, fmt.Errorf("rates: %w", err)
	}
	return rates, nil
}

// Interval returns the provider polling interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Provider.IntervalSec) * time.Second
}

// verboseFromEnv reads EnvVerbose as a boolean, false if unset or invalid.
func verboseFromEnv() bool {
	v, _ := strconv.ParseBool(os.Getenv(EnvVerbose))
	return v
}
