package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neexbeast/city-infos/internal/cache"
	"github.com/neexbeast/city-infos/internal/cities"
)

// config is everything the server reads from the environment.
type config struct {
	APIKey          string
	CitiesAPIURL    string
	Host            string
	Port            string
	RedisURL        string
	CacheTTL        time.Duration
	UpstreamTimeout time.Duration
	Location        *time.Location
	LogLevel        slog.Level
}

func (c config) addr() string {
	return c.Host + ":" + c.Port
}

// loadConfig reads the configuration through getenv so tests can feed it a map.
func loadConfig(getenv func(string) string) (config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := config{
		APIKey:       get("API_KEY", ""),
		CitiesAPIURL: get("CITIES_API_URL", cities.DefaultBaseURL),
		Host:         get("HOST", ""),
		Port:         get("PORT", "3000"),
		RedisURL:     get("REDIS_URL", ""),
	}
	if cfg.APIKey == "" {
		return config{}, errors.New("API_KEY is required")
	}

	var err error
	if cfg.CacheTTL, err = parseDuration("CACHE_TTL", get("CACHE_TTL", cache.DefaultTTL.String())); err != nil {
		return config{}, err
	}
	if cfg.UpstreamTimeout, err = parseDuration("UPSTREAM_TIMEOUT", get("UPSTREAM_TIMEOUT", cities.DefaultTimeout.String())); err != nil {
		return config{}, err
	}

	tz := get("TIMEZONE", "Local")
	if cfg.Location, err = time.LoadLocation(tz); err != nil {
		return config{}, fmt.Errorf("TIMEZONE %q: %w", tz, err)
	}

	level := get("LOG_LEVEL", "info")
	if err := cfg.LogLevel.UnmarshalText([]byte(level)); err != nil {
		return config{}, fmt.Errorf("LOG_LEVEL %q: %w", level, err)
	}

	return cfg, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
