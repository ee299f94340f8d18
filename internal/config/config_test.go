package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scraper.RequestsPerMinute != 20 {
		t.Fatalf("RequestsPerMinute = %d, want 20", cfg.Scraper.RequestsPerMinute)
	}
	if cfg.Estimation.Kindle.A != 5500 || cfg.Estimation.Kindle.B != -0.83 {
		t.Fatalf("kindle coefficients = %+v", cfg.Estimation.Kindle)
	}
	if cfg.Cache.Enabled {
		t.Fatal("cache should be disabled by default")
	}
	if sum := cfg.Scoring.Sum(); sum < 0.99 || sum > 1.01 {
		t.Fatalf("default scoring weights sum to %v, want 1.0", sum)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
scraper:
  requests_per_minute: 5
  timeout: 10s
workers: 2
estimation:
  paperback:
    a: 3000
    b: -0.7
`)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scraper.RequestsPerMinute != 5 {
		t.Fatalf("RequestsPerMinute = %d, want 5 from file", cfg.Scraper.RequestsPerMinute)
	}
	if cfg.Scraper.Timeout != 10*time.Second {
		t.Fatalf("Timeout = %s, want 10s from file", cfg.Scraper.Timeout)
	}
	if cfg.Workers != 2 {
		t.Fatalf("Workers = %d, want 2 from file", cfg.Workers)
	}
	if cfg.Estimation.Paperback.A != 3000 {
		t.Fatalf("paperback A = %v, want 3000 from file", cfg.Estimation.Paperback.A)
	}
	// Untouched sections keep their defaults.
	if cfg.Estimation.Kindle.A != 5500 {
		t.Fatalf("kindle A = %v, want default 5500", cfg.Estimation.Kindle.A)
	}
	if cfg.Store.Path != "data/kdprank.db" {
		t.Fatalf("Store.Path = %q, want default", cfg.Store.Path)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("workers: 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("KDPRANK_WORKERS", "6")
	t.Setenv("KDPRANK_SCRAPER_REQUESTS_PER_MINUTE", "3")
	t.Setenv("KDPRANK_ESTIMATION_KINDLE_A", "4800")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 6 {
		t.Fatalf("Workers = %d, want env override 6", cfg.Workers)
	}
	if cfg.Scraper.RequestsPerMinute != 3 {
		t.Fatalf("RequestsPerMinute = %d, want env override 3", cfg.Scraper.RequestsPerMinute)
	}
	if cfg.Estimation.Kindle.A != 4800 {
		t.Fatalf("kindle A = %v, want env override 4800", cfg.Estimation.Kindle.A)
	}
}

func TestLoadMissingFileIsIgnored(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}
	if cfg.Workers != 8 {
		t.Fatalf("Workers = %d, want default 8", cfg.Workers)
	}
}

func TestBaselineOverrides(t *testing.T) {
	cfg := Default()
	cfg.Conversion.KindleAnchors = []Anchor{{BSR: 1, DailySales: 900}, {BSR: 1000, DailySales: 4}}
	cfg.Conversion.MarketMultipliers = map[string]float64{"de": 0.9, "bogus": 2.0, "fr": -1}

	baseline := cfg.Baseline()
	if len(baseline.Kindle) != 2 || baseline.Kindle[0].DailySales != 900 {
		t.Fatalf("kindle anchors not overridden: %+v", baseline.Kindle)
	}
	if len(baseline.Print) != 12 {
		t.Fatalf("print anchors should keep the %d defaults, got %d", 12, len(baseline.Print))
	}
	if got := baseline.Multipliers[market.AmazonDe]; got != 0.9 {
		t.Fatalf("de multiplier = %v, want 0.9", got)
	}
	if got := baseline.Multipliers[market.AmazonCom]; got != 1.0 {
		t.Fatalf("com multiplier = %v, want default 1.0", got)
	}
	// Unknown codes and non-positive values are ignored.
	if got := baseline.Multipliers[market.AmazonFr]; got != market.AmazonFr.SizeMultiplier() {
		t.Fatalf("fr multiplier = %v, want default", got)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty store path", func(c *Config) { c.Store.Path = "" }},
		{"zero request rate", func(c *Config) { c.Scraper.RequestsPerMinute = 0 }},
		{"zero timeout", func(c *Config) { c.Scraper.Timeout = 0 }},
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"non-positive A", func(c *Config) { c.Estimation.Kindle.A = 0 }},
		{"non-negative B", func(c *Config) { c.Estimation.Paperback.B = 0.5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}
