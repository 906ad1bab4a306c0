// Package config loads and validates pipeline configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all pipeline configuration.
type Config struct {
	// Remote source settings.
	BaseURL     string        // Root of the Tweede Kamer OData v4 API.
	UserAgent   string        // Sent on every outgoing request.
	HTTPTimeout time.Duration // Per-request timeout.
	PageSize    int           // $top for paged collection queries.

	// Retry settings for transient failures (429/5xx).
	RetryMax       int
	RetryBaseDelay time.Duration

	// Client-side pacing.
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int
	RequestPause     time.Duration // Fixed delay between publication fetches.

	// Collection settings.
	CollectStartDate time.Time // Lower bound on Besluit/GewijzigdOp.
	MaxPages         int       // 0 means no cap.

	// Motion index settings.
	TermStartDate time.Time // Cases started before this date are excluded.

	// Enrichment settings.
	MaxAPICalls      int  // Global API call budget; 0 means unlimited.
	MaxMotions       int  // Process only the first N motions; 0 means all.
	SkipText         bool // Skip text retrieval entirely.
	RefreshText      bool // Ignore cached text/publication artifacts and refetch.
	FetchConcurrency int  // Parallel text fetches; 1 reproduces strictly sequential behavior.

	// Storage layout.
	DataDir string // Root for cache namespaces, page artifacts, and outputs.

	// Optional S3 upload of final artifacts.
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Default dates: the 2023-2027 parliamentary term. Collection starts a few days
// before the installation date so boundary decisions are not missed.
var (
	defaultCollectStart = time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	defaultTermStart    = time.Date(2023, 12, 6, 0, 0, 0, 0, time.UTC)
)

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		BaseURL:          envStr("MOTIEMATCHER_BASE_URL", "https://gegevensmagazijn.tweedekamer.nl/OData/v4/2.0"),
		UserAgent:        envStr("MOTIEMATCHER_USER_AGENT", "MotieMatcher-Enrichment/1.0"),
		HTTPTimeout:      envDuration("MOTIEMATCHER_HTTP_TIMEOUT", 45*time.Second),
		PageSize:         envInt("MOTIEMATCHER_PAGE_SIZE", 100),
		RetryMax:         envInt("MOTIEMATCHER_RETRY_MAX", 5),
		RetryBaseDelay:   envDuration("MOTIEMATCHER_RETRY_BASE_DELAY", 400*time.Millisecond),
		RateLimitEnabled: envBool("MOTIEMATCHER_RATE_LIMIT_ENABLED", true),
		RateLimitRPS:     envFloat("MOTIEMATCHER_RATE_LIMIT_RPS", 50),
		RateLimitBurst:   envInt("MOTIEMATCHER_RATE_LIMIT_BURST", 10),
		RequestPause:     envDuration("MOTIEMATCHER_REQUEST_PAUSE", 20*time.Millisecond),
		CollectStartDate: envDate("MOTIEMATCHER_COLLECT_START_DATE", defaultCollectStart),
		MaxPages:         envInt("MOTIEMATCHER_MAX_PAGES", 0),
		TermStartDate:    envDate("MOTIEMATCHER_TERM_START_DATE", defaultTermStart),
		MaxAPICalls:      envInt("MOTIEMATCHER_MAX_API_CALLS", 0),
		MaxMotions:       envInt("MOTIEMATCHER_MAX_MOTIONS", 0),
		SkipText:         envBool("MOTIEMATCHER_SKIP_TEXT", false),
		RefreshText:      envBool("MOTIEMATCHER_REFRESH_TEXT", false),
		FetchConcurrency: envInt("MOTIEMATCHER_FETCH_CONCURRENCY", 1),
		DataDir:          envStr("MOTIEMATCHER_DATA_DIR", "bronmateriaal-onbewerkt"),
		S3Bucket:         envStr("MOTIEMATCHER_S3_BUCKET", ""),
		S3Region:         envStr("MOTIEMATCHER_S3_REGION", "eu-west-1"),
		AWSAccessKey:     envStr("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:     envStr("AWS_SECRET_ACCESS_KEY", ""),
		OTELEndpoint:     envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:     envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		ServiceName:      envStr("OTEL_SERVICE_NAME", "motiematcher"),
		LogLevel:         envStr("MOTIEMATCHER_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present and consistent.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("config: MOTIEMATCHER_BASE_URL is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("config: MOTIEMATCHER_PAGE_SIZE must be positive")
	}
	if c.RetryMax < 0 {
		return fmt.Errorf("config: MOTIEMATCHER_RETRY_MAX must not be negative")
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("config: MOTIEMATCHER_FETCH_CONCURRENCY must be positive")
	}
	if c.DataDir == "" {
		return fmt.Errorf("config: MOTIEMATCHER_DATA_DIR is required")
	}
	return nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envDate(key string, defaultVal time.Time) time.Time {
	if v := os.Getenv(key); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t.UTC()
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t.UTC()
		}
	}
	return defaultVal
}
