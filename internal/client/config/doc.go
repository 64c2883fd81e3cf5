// Package config loads runtime configuration for the propscan CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string     backend base URL
//	-d string     path of the local SQLite database
//	-s string     value of the X-App-Source header
//	-t duration   per-attempt timeout for ordinary calls
//	-l duration   per-attempt timeout for AI-backed calls (ask, compare)
//	-r int        retries after the first attempt
//	-b duration   delay before the first retry
//	-m duration   upper bound of the retry delay
//	-j float      backoff randomization factor in [0,1)
//	-n int        scan limit assumed when the backend omits it
//	-i duration   background balance sync interval (0 disables it)
//	-f string     log format: text, json or zap
//	-debug        enable debug logging
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "30s" or
// integer nanoseconds. Absent keys keep the default:
//
//	{
//	  "server_base_url": "http://127.0.0.1:8000",
//	  "database_path": "propscan.db",
//	  "short_timeout": "30s",
//	  "long_timeout": "60s",
//	  "max_retries": 3,
//	  "retry_base_delay": "1s",
//	  "retry_max_delay": "8s",
//	  "balance_sync_interval": "5m",
//	  "log_format": "text"
//	}
package config
