package main

import (
	"time"

	flag "github.com/spf13/pflag"
)

// cliFlags are the flag overrides duocachectl accepts, applied on top of the
// JSONC config file (see config.go), matching the teacher's own
// defaults-then-config-then-flags precedence.
type cliFlags struct {
	path      string
	sizeLimit int64
	ttl       time.Duration
}

func parseFlags(args []string) (cliFlags, []string, error) {
	fs := flag.NewFlagSet("duocachectl", flag.ContinueOnError)

	var f cliFlags

	fs.StringVar(&f.path, "path", "", "backing directory for the cache (overrides config)")
	fs.Int64Var(&f.sizeLimit, "size-limit", 0, "disk tier size limit in bytes")
	fs.DurationVar(&f.ttl, "ttl", 0, "expiration timeout for disk entries")

	if err := fs.Parse(args); err != nil {
		return cliFlags{}, nil, err
	}

	return f, fs.Args(), nil
}
