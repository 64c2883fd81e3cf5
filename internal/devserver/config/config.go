// Package config handles configuration for the development backend,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"time"
)

// Config holds runtime settings for the development backend.
//
// Fields:
//   - Address: bind address of the HTTP API.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Development only.
//   - TokenTTL: access token lifetime.
//   - ScanLimit: scan quota of new free accounts.
//   - StaleProfileReads: profile reads answered with zeros after an account
//     is first billed, emulating a lagging usage pipeline.
//   - Latency: artificial delay added to every API response.
type Config struct {
	Address           string
	SecretKey         string
	TokenTTL          time.Duration
	ScanLimit         int
	StaleProfileReads int
	Latency           time.Duration
	LogFormat         string
	Debug             bool
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Address = ":8000"
	c.SecretKey = "dev-secret-key"
	c.TokenTTL = time.Hour
	c.ScanLimit = 50
	c.StaleProfileReads = 0
	c.Latency = 0
	c.LogFormat = "json"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
