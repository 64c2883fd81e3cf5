package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/propscan/internal/flagx"
	"github.com/dmitrijs2005/propscan/internal/timex"
)

// JsonConfig is the on-disk shape of Config. Absent keys keep defaults.
type JsonConfig struct {
	Address           *string         `json:"address"`
	SecretKey         *string         `json:"secret_key"`
	TokenTTL          *timex.Duration `json:"token_ttl"`
	ScanLimit         *int            `json:"scan_limit"`
	StaleProfileReads *int            `json:"stale_profile_reads"`
	Latency           *timex.Duration `json:"latency"`
	LogFormat         *string         `json:"log_format"`
}

func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var c JsonConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	if c.Address != nil {
		cfg.Address = *c.Address
	}
	if c.SecretKey != nil {
		cfg.SecretKey = *c.SecretKey
	}
	if c.TokenTTL != nil {
		cfg.TokenTTL = c.TokenTTL.Duration
	}
	if c.ScanLimit != nil {
		cfg.ScanLimit = *c.ScanLimit
	}
	if c.StaleProfileReads != nil {
		cfg.StaleProfileReads = *c.StaleProfileReads
	}
	if c.Latency != nil {
		cfg.Latency = c.Latency.Duration
	}
	if c.LogFormat != nil {
		cfg.LogFormat = *c.LogFormat
	}
	return nil
}
