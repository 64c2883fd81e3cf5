// Package flagx lets several loaders share one command line: each loader
// filters os.Args down to the flags it owns before handing them to its own
// flag.FlagSet, so unknown flags from other loaders never cause parse errors.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs keeps only the allowed flags (and their values) from args.
//
// Supported forms:
//  1. separate value:  -c conf.json
//  2. joined value:    -config=conf.json
//
// A token following an allowed flag is treated as its value unless it starts
// with '-'.
func FilterArgs(args []string, allowedFlags []string) []string {
	return Filter(args, allowedFlags, nil)
}

// Filter is FilterArgs with support for boolean flags. Boolean flags never
// consume the following token, so "-debug login" keeps "login" out of the result.
func Filter(args []string, valued []string, boolean []string) []string {
	withValue := make(map[string]struct{}, len(valued))
	for _, f := range valued {
		withValue[f] = struct{}{}
	}
	bare := make(map[string]struct{}, len(boolean))
	for _, f := range boolean {
		bare[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			_, v := withValue[name]
			_, b := bare[name]
			if v || b {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := bare[arg]; ok {
			filtered = append(filtered, arg)
			continue
		}

		if _, ok := withValue[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigPath returns the JSON config path given via -c or -config, or "".
// When both are present the last one wins.
func ConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "Path to config file")
	fs.StringVar(&path, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return path
}
