// Package config loads the sidecar's process-wide configuration from the
// environment (optionally seeded from a .env file) once at startup. The
// resulting Config is read-only for the rest of the process lifetime.
package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every environment-tunable knob the sidecar reads at startup.
// Once New returns, none of these fields change for the life of the process.
type Config struct {
	NodeBlockchain string
	NodeURL        string
	NodeToken      string

	RedisHost string

	LimitDefault  float64
	LimitInterval int // seconds

	Environment string

	SidecarToken     string
	SidecarURLs      []string
	SidecarSyncEvery int // sidecar_limit_sync_interval
	SentryDSN        string
}

// New loads configuration from the environment. If a .env file is present
// in the working directory it is loaded first (without overriding any
// variable already set in the real environment), matching the common
// "flags/.env for local dev, real env vars in prod" convention.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env present but unreadable: %v", err)
	}

	cfg := &Config{
		NodeBlockchain:   os.Getenv("node_blockchain"),
		NodeURL:          os.Getenv("node_url"),
		NodeToken:        os.Getenv("node_token"),
		RedisHost:        os.Getenv("redis_host"),
		Environment:      getenvDefault("environment", "dev"),
		SidecarToken:     os.Getenv("sidecar_token"),
		SentryDSN:        os.Getenv("sentry_dsn"),
		LimitDefault:     10000,
		LimitInterval:    86400,
		SidecarSyncEvery: 1000,
	}

	if cfg.NodeBlockchain == "" {
		return nil, fmt.Errorf("config: node_blockchain is required")
	}
	if cfg.NodeURL == "" {
		return nil, fmt.Errorf("config: node_url is required")
	}
	if cfg.RedisHost == "" {
		return nil, fmt.Errorf("config: redis_host is required")
	}

	if v := os.Getenv("limit_default"); v != "" {
		f, err := parseQuota(v)
		if err != nil {
			return nil, fmt.Errorf("config: limit_default: %w", err)
		}
		cfg.LimitDefault = f
	}
	if v := os.Getenv("limit_interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: limit_interval: %w", err)
		}
		cfg.LimitInterval = n
	}
	if v := os.Getenv("sidecar_limit_sync_interval"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: sidecar_limit_sync_interval: %w", err)
		}
		cfg.SidecarSyncEvery = n
	}
	if v := os.Getenv("sidecar_urls"); v != "" {
		for _, u := range strings.Split(v, ",") {
			u = strings.TrimSpace(u)
			if u != "" {
				cfg.SidecarURLs = append(cfg.SidecarURLs, u)
			}
		}
	}

	return cfg, nil
}

// parseQuota parses a quota value, accepting "inf"/"Infinity" for an
// unlimited quota the same way a stored api-key quota can.
func parseQuota(s string) (float64, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inf", "+inf", "infinity", "+infinity":
		return math.Inf(1), nil
	}
	return strconv.ParseFloat(s, 64)
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
