package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/propscan/internal/flagx"
)

var (
	valuedFlags  = []string{"-a", "-d", "-s", "-t", "-l", "-r", "-b", "-m", "-j", "-n", "-i", "-o", "-f"}
	booleanFlags = []string{"-debug"}
)

// parseFlags overlays cfg with the command-line flags it owns. Other flags
// in args (for example -c) are ignored.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.Filter(args, valuedFlags, booleanFlags)

	fs := flag.NewFlagSet("propscan", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "backend base URL")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.AppSource, "s", cfg.AppSource, "X-App-Source header value")
	fs.DurationVar(&cfg.ShortTimeout, "t", cfg.ShortTimeout, "per-attempt timeout")
	fs.DurationVar(&cfg.LongTimeout, "l", cfg.LongTimeout, "per-attempt timeout for ask/compare")
	fs.IntVar(&cfg.MaxRetries, "r", cfg.MaxRetries, "retries after the first attempt")
	fs.DurationVar(&cfg.RetryBaseDelay, "b", cfg.RetryBaseDelay, "first retry delay")
	fs.DurationVar(&cfg.RetryMaxDelay, "m", cfg.RetryMaxDelay, "retry delay cap")
	fs.Float64Var(&cfg.RetryJitter, "j", cfg.RetryJitter, "retry randomization factor")
	fs.IntVar(&cfg.DefaultScanLimit, "n", cfg.DefaultScanLimit, "default scan limit")
	fs.DurationVar(&cfg.BalanceSyncInterval, "i", cfg.BalanceSyncInterval, "balance sync interval")
	fs.DurationVar(&cfg.OnlineCheckInterval, "o", cfg.OnlineCheckInterval, "connectivity check interval")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format (text, json, zap)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "debug logging")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
