package config

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Load loads config from the default path (~/.castbot/config.json).
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return LoadFromFile(filepath.Join(home, ".castbot", "config.json"))
}

// LoadFromFile loads config from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader loads config from an io.Reader, applying defaults and env overrides.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	expandStorePath(cfg)

	return cfg, nil
}

// Validate checks the startup invariants. Violations are fatal configuration
// errors; nothing here is retried.
func (c *Config) Validate() error {
	hasKey := c.Identity.PrivateKey != ""
	hasMnemonic := c.Identity.Mnemonic != ""
	switch {
	case !hasKey && !hasMnemonic:
		return fmt.Errorf("identity: one of privateKey or mnemonic is required")
	case hasKey && hasMnemonic:
		return fmt.Errorf("identity: privateKey and mnemonic are mutually exclusive, set exactly one")
	}
	if c.Identity.Fid == 0 {
		return fmt.Errorf("identity: fid is required")
	}
	if c.Hub.URL == "" {
		return fmt.Errorf("hub: url is required")
	}
	return nil
}

// applyEnvOverrides applies CASTBOT_-prefixed environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	envMap := map[string]*string{
		"CASTBOT_IDENTITY_PRIVATEKEY":     &cfg.Identity.PrivateKey,
		"CASTBOT_IDENTITY_MNEMONIC":       &cfg.Identity.Mnemonic,
		"CASTBOT_HUB_URL":                 &cfg.Hub.URL,
		"CASTBOT_HUB_APIKEY":              &cfg.Hub.APIKey,
		"CASTBOT_CHANNELS_TELEGRAM_TOKEN": &cfg.Channels.Telegram.Token,
	}

	for env, ptr := range envMap {
		if val := os.Getenv(env); val != "" {
			*ptr = val
		}
	}

	if val := os.Getenv("CASTBOT_IDENTITY_FID"); val != "" {
		fid, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			slog.Warn("ignoring non-numeric CASTBOT_IDENTITY_FID", "value", val)
		} else {
			cfg.Identity.Fid = fid
		}
	}
}

// expandStorePath expands a leading ~ in the cron store path.
func expandStorePath(cfg *Config) {
	p := cfg.Cron.StorePath
	if len(p) >= 2 && p[0] == '~' && p[1] == '/' {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.Cron.StorePath = filepath.Join(home, p[2:])
		}
	}
}
