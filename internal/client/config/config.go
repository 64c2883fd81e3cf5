package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dmitrijs2005/propscan/internal/client/transport"
	"github.com/dmitrijs2005/propscan/internal/common"
	"github.com/dmitrijs2005/propscan/internal/logging"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds runtime settings for the propscan CLI.
type Config struct {
	ServerBaseURL       string
	DatabasePath        string
	AppSource           string
	ShortTimeout        time.Duration
	LongTimeout         time.Duration
	MaxRetries          int
	RetryBaseDelay      time.Duration
	RetryMaxDelay       time.Duration
	RetryJitter         float64
	DefaultScanLimit    int
	BalanceSyncInterval time.Duration
	OnlineCheckInterval time.Duration
	LogFormat           string
	Debug               bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8000"
	c.DatabasePath = "propscan.db"
	c.AppSource = "mobile"
	c.ShortTimeout = 30 * time.Second
	c.LongTimeout = 60 * time.Second
	c.MaxRetries = 3
	c.RetryBaseDelay = time.Second
	c.RetryMaxDelay = 8 * time.Second
	c.RetryJitter = 0
	c.DefaultScanLimit = common.DefaultScanLimit
	c.BalanceSyncInterval = 5 * time.Minute
	c.OnlineCheckInterval = 30 * time.Second
	c.LogFormat = logging.FormatText
}

// LoadConfig constructs a Config from defaults, then the JSON file named by
// -c/-config (if any), then flags. Later sources take precedence.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: server base url %q must be an absolute http(s) url", ErrInvalidConfig, c.ServerBaseURL)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("%w: database path is empty", ErrInvalidConfig)
	}
	if c.ShortTimeout <= 0 || c.LongTimeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", ErrInvalidConfig)
	}
	if c.RetryBaseDelay <= 0 || c.RetryMaxDelay < c.RetryBaseDelay {
		return fmt.Errorf("%w: retry delays must satisfy 0 < base <= max", ErrInvalidConfig)
	}
	if c.RetryJitter < 0 || c.RetryJitter >= 1 {
		return fmt.Errorf("%w: retry jitter must be in [0,1)", ErrInvalidConfig)
	}
	if c.DefaultScanLimit <= 0 {
		return fmt.Errorf("%w: default scan limit must be positive", ErrInvalidConfig)
	}
	if c.BalanceSyncInterval < 0 || c.OnlineCheckInterval < 0 {
		return fmt.Errorf("%w: intervals must not be negative", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case logging.FormatText, logging.FormatJSON, logging.FormatZap:
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// Transport returns the request engine settings.
func (c *Config) Transport() transport.Config {
	return transport.Config{
		BaseURL:      c.ServerBaseURL,
		AppSource:    c.AppSource,
		ShortTimeout: c.ShortTimeout,
		LongTimeout:  c.LongTimeout,
		MaxRetries:   c.MaxRetries,
		BaseDelay:    c.RetryBaseDelay,
		MaxDelay:     c.RetryMaxDelay,
		Jitter:       c.RetryJitter,
	}
}
