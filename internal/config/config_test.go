package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PageSize != 100 {
		t.Errorf("expected default page size 100, got %d", cfg.PageSize)
	}
	if cfg.RetryMax != 5 {
		t.Errorf("expected default retry max 5, got %d", cfg.RetryMax)
	}
	if !cfg.CollectStartDate.Equal(time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected default collect start date: %s", cfg.CollectStartDate)
	}
	if !cfg.TermStartDate.Equal(time.Date(2023, 12, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected default term start date: %s", cfg.TermStartDate)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MOTIEMATCHER_PAGE_SIZE", "250")
	t.Setenv("MOTIEMATCHER_COLLECT_START_DATE", "2024-03-15")
	t.Setenv("MOTIEMATCHER_SKIP_TEXT", "true")
	t.Setenv("MOTIEMATCHER_RATE_LIMIT_RPS", "12.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PageSize != 250 {
		t.Errorf("expected page size 250, got %d", cfg.PageSize)
	}
	if !cfg.CollectStartDate.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected collect start date: %s", cfg.CollectStartDate)
	}
	if !cfg.SkipText {
		t.Error("expected SkipText to be true")
	}
	if cfg.RateLimitRPS != 12.5 {
		t.Errorf("expected rps 12.5, got %f", cfg.RateLimitRPS)
	}
}

func TestEnvInvalidFallsBack(t *testing.T) {
	t.Setenv("MOTIEMATCHER_PAGE_SIZE", "not-a-number")
	t.Setenv("MOTIEMATCHER_COLLECT_START_DATE", "yesterday")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PageSize != 100 {
		t.Errorf("expected fallback page size 100, got %d", cfg.PageSize)
	}
	if !cfg.CollectStartDate.Equal(time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected fallback collect start date, got %s", cfg.CollectStartDate)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	bad := cfg
	bad.PageSize = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero page size")
	}

	bad = cfg
	bad.FetchConcurrency = 0
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero fetch concurrency")
	}

	bad = cfg
	bad.DataDir = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for empty data dir")
	}
}
