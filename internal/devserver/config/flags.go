package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/propscan/internal/flagx"
)

// parseFlags populates Config from command-line flags.
//
//	-a string     bind address (":8000")
//	-s string     JWT HMAC secret key
//	-t duration   access token lifetime
//	-n int        scan quota of new accounts
//	-z int        stale profile reads after first billing
//	-w duration   artificial response latency
//	-f string     log format
//	-debug        debug logging
func parseFlags(cfg *Config, args []string) error {
	args = flagx.Filter(args, []string{"-a", "-s", "-t", "-n", "-z", "-w", "-f"}, []string{"-debug"})

	fs := flag.NewFlagSet("devserver", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Address, "a", cfg.Address, "address and port to run server")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "secret key")
	fs.DurationVar(&cfg.TokenTTL, "t", cfg.TokenTTL, "access token lifetime")
	fs.IntVar(&cfg.ScanLimit, "n", cfg.ScanLimit, "scan limit of new accounts")
	fs.IntVar(&cfg.StaleProfileReads, "z", cfg.StaleProfileReads, "stale profile reads after first billing")
	fs.DurationVar(&cfg.Latency, "w", cfg.Latency, "artificial latency")
	fs.StringVar(&cfg.LogFormat, "f", cfg.LogFormat, "log format (text, json, zap)")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "debug logging")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}
