package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/propscan/internal/flagx"
	"github.com/dmitrijs2005/propscan/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields distinguish "absent" from an explicit zero.
type JsonConfig struct {
	ServerBaseURL       *string         `json:"server_base_url"`
	DatabasePath        *string         `json:"database_path"`
	AppSource           *string         `json:"app_source"`
	ShortTimeout        *timex.Duration `json:"short_timeout"`
	LongTimeout         *timex.Duration `json:"long_timeout"`
	MaxRetries          *int            `json:"max_retries"`
	RetryBaseDelay      *timex.Duration `json:"retry_base_delay"`
	RetryMaxDelay       *timex.Duration `json:"retry_max_delay"`
	RetryJitter         *float64        `json:"retry_jitter"`
	DefaultScanLimit    *int            `json:"default_scan_limit"`
	BalanceSyncInterval *timex.Duration `json:"balance_sync_interval"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	LogFormat           *string         `json:"log_format"`
	Debug               *bool           `json:"debug"`
}

// parseJson overlays cfg with the JSON file named by -c/-config in args.
// Without such a flag nothing is loaded.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.ServerBaseURL, jc.ServerBaseURL)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.AppSource, jc.AppSource)
	setString(&cfg.LogFormat, jc.LogFormat)
	if jc.ShortTimeout != nil {
		cfg.ShortTimeout = jc.ShortTimeout.Duration
	}
	if jc.LongTimeout != nil {
		cfg.LongTimeout = jc.LongTimeout.Duration
	}
	if jc.RetryBaseDelay != nil {
		cfg.RetryBaseDelay = jc.RetryBaseDelay.Duration
	}
	if jc.RetryMaxDelay != nil {
		cfg.RetryMaxDelay = jc.RetryMaxDelay.Duration
	}
	if jc.BalanceSyncInterval != nil {
		cfg.BalanceSyncInterval = jc.BalanceSyncInterval.Duration
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.MaxRetries != nil {
		cfg.MaxRetries = *jc.MaxRetries
	}
	if jc.DefaultScanLimit != nil {
		cfg.DefaultScanLimit = *jc.DefaultScanLimit
	}
	if jc.RetryJitter != nil {
		cfg.RetryJitter = *jc.RetryJitter
	}
	if jc.Debug != nil {
		cfg.Debug = *jc.Debug
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
