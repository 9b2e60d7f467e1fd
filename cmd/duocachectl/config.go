package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/hujson"
)

// Config holds duocachectl's configuration, loaded the same way the teacher
// loads its own: defaults, then a JSONC file, then CLI flags override
// whatever the file set.
type Config struct {
	Path      string        `json:"path"`
	SizeLimit int64         `json:"size_limit,omitempty"` //nolint:tagliatelle
	TTL       time.Duration `json:"ttl,omitempty"`
}

// ConfigFileName is the default config file name, read from
// $XDG_CONFIG_HOME/duocache/config.json or ~/.config/duocache/config.json.
const ConfigFileName = "config.json"

func defaultConfig() Config {
	return Config{}
}

func globalConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "duocache", ConfigFileName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", "duocache", ConfigFileName)
}

// loadConfig reads the global JSONC config file, if any, standardizing it
// through hujson the same way the teacher's config.go does for its own
// `.tk.json`: comments and trailing commas are tolerated, then the result is
// parsed as plain JSON.
func loadConfig() (Config, error) {
	cfg := defaultConfig()

	path := globalConfigPath()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}

		return cfg, fmt.Errorf("reading %q: %w", path, err)
	}

	std, err := hujson.Standardize(raw)
	if err != nil {
		return cfg, fmt.Errorf("parsing %q: %w", path, err)
	}

	if err := json.Unmarshal(std, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding %q: %w", path, err)
	}

	return cfg, nil
}

// applyFlags overrides cfg with any flag the caller explicitly set.
func applyFlags(cfg Config, flags cliFlags) Config {
	if flags.path != "" {
		cfg.Path = flags.path
	}

	if flags.sizeLimit > 0 {
		cfg.SizeLimit = flags.sizeLimit
	}

	if flags.ttl > 0 {
		cfg.TTL = flags.ttl
	}

	return cfg
}
