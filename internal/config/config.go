package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	// PredictAPI and MeasuredAPI are the remote endpoint base URLs; both may
	// already carry query parameters.
	PredictAPI  string
	MeasuredAPI string

	// Stations tracked by the cache-warming job.
	Stations []string

	// Collections are the measured collection tags the service exposes.
	Collections []string

	// WarmInterval controls how often the scheduler refreshes each station's
	// latest-overlap entry.
	WarmInterval time.Duration

	// CacheTTL is the result cache entry lifetime.
	CacheTTL time.Duration

	// RedisURL selects the Redis cache backend; empty falls back to the
	// in-memory cache.
	RedisURL string

	HTTPTimeout time.Duration
	MaxDaysBack int
	Port        string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.PredictAPI = os.Getenv("PREDICT_API")
	if cfg.PredictAPI == "" {
		return nil, fmt.Errorf("PREDICT_API is required")
	}
	cfg.MeasuredAPI = os.Getenv("ION_API")
	if cfg.MeasuredAPI == "" {
		return nil, fmt.Errorf("ION_API is required")
	}

	cfg.Stations = splitList(getenvDefault("STATIONS", "ITAI,GUAI,PRUR"))
	cfg.Collections = splitList(getenvDefault("COLLECTIONS", "ion,gts,trp"))

	warmStr := getenvDefault("WARM_INTERVAL", "30m")
	warm, err := time.ParseDuration(warmStr)
	if err != nil {
		return nil, fmt.Errorf("invalid WARM_INTERVAL: %w", err)
	}
	cfg.WarmInterval = warm

	ttlStr := getenvDefault("CACHE_TTL", "1h")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	cfg.CacheTTL = ttl

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "15s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	cfg.MaxDaysBack = getenvInt("MAX_DAYS_BACK", 180)
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
