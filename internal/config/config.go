// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultMappingPath    = "config/mapping.yaml"
	defaultWorkers        = 4
	defaultReadTimeout    = 5 * time.Minute
	defaultWriteTimeout   = 2 * time.Minute
	defaultSinkMaxRetries = 3
	defaultMetricsAddr    = ":9090"
)

// Config holds runtime configuration shared by the hydrostat commands.
// Values serve as flag defaults; flags override them.
type Config struct {
	PostgresDSN      string
	ClickhouseDSN    string
	MappingPath      string
	Workers          int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration // per sink attempt
	SinkMaxRetries   int
	MissingArcPolicy string // empty = mapping file default
	MetricsAddr      string
	Verbose          bool
}

// Load reads configuration from HYDROSTAT_* environment variables.
// A .env file in the working directory is read first and never overrides
// variables already set.
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		PostgresDSN:    env("HYDROSTAT_POSTGRES_DSN"),
		ClickhouseDSN:  env("HYDROSTAT_CLICKHOUSE_DSN"),
		MappingPath:    defaultMappingPath,
		Workers:        defaultWorkers,
		ReadTimeout:    defaultReadTimeout,
		WriteTimeout:   defaultWriteTimeout,
		SinkMaxRetries: defaultSinkMaxRetries,
		MetricsAddr:    defaultMetricsAddr,
	}

	if v := env("HYDROSTAT_MAPPING"); v != "" {
		cfg.MappingPath = v
	}

	if v := env("HYDROSTAT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return cfg, fmt.Errorf("invalid HYDROSTAT_WORKERS %q: must be a positive integer", v)
		}
		cfg.Workers = n
	}

	if v := env("HYDROSTAT_READ_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid HYDROSTAT_READ_TIMEOUT: %w", err)
		}
		cfg.ReadTimeout = d
	}

	if v := env("HYDROSTAT_WRITE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid HYDROSTAT_WRITE_TIMEOUT: %w", err)
		}
		cfg.WriteTimeout = d
	}

	if v := env("HYDROSTAT_SINK_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return cfg, fmt.Errorf("invalid HYDROSTAT_SINK_MAX_RETRIES %q: must be a non-negative integer", v)
		}
		cfg.SinkMaxRetries = n
	}

	if v := env("HYDROSTAT_MISSING_ARC_POLICY"); v != "" {
		if v != "zero" && v != "exclude" {
			return cfg, fmt.Errorf("invalid HYDROSTAT_MISSING_ARC_POLICY %q: want zero or exclude", v)
		}
		cfg.MissingArcPolicy = v
	}

	if v, ok := os.LookupEnv("HYDROSTAT_METRICS_ADDR"); ok {
		cfg.MetricsAddr = strings.TrimSpace(v)
	}

	verbose := env("HYDROSTAT_VERBOSE")
	cfg.Verbose = verbose == "1" || strings.EqualFold(verbose, "true")

	return cfg, nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
