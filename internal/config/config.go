// Package config loads the engine configuration from layered sources:
// built-in defaults, an optional YAML file, then environment variables with
// the KDPRANK_ prefix. Later layers override earlier ones.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/KingOfTheAce2/KDP-category-ranker/internal/conversion"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/market"
	"github.com/KingOfTheAce2/KDP-category-ranker/internal/scoring"
)

// envPrefix namespaces the engine's environment variables:
// KDPRANK_SCRAPER_REQUESTS_PER_MINUTE -> scraper.requests_per_minute.
const envPrefix = "KDPRANK_"

// Coefficients mirrors estimator.Coefficients for configuration purposes.
type Coefficients struct {
	A float64 `koanf:"a"`
	B float64 `koanf:"b"`
}

type EstimationConfig struct {
	Kindle    Coefficients `koanf:"kindle"`
	Paperback Coefficients `koanf:"paperback"`
}

// Anchor is one BSR calibration point for the conversion tables.
type Anchor struct {
	BSR        int `koanf:"bsr"`
	DailySales int `koanf:"daily_sales"`
}

// ConversionConfig overrides the shipped conversion baseline. Empty anchor
// lists and missing multipliers fall back to the built-in values.
type ConversionConfig struct {
	KindleAnchors     []Anchor           `koanf:"kindle_anchors"`
	PrintAnchors      []Anchor           `koanf:"print_anchors"`
	MarketMultipliers map[string]float64 `koanf:"market_multipliers"`
}

type StoreConfig struct {
	Path string `koanf:"path"`
}

type ScraperConfig struct {
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerMinute int           `koanf:"requests_per_minute"`
}

type CacheConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TTL      time.Duration `koanf:"ttl"`
}

// Config is the full engine configuration.
type Config struct {
	Store      StoreConfig      `koanf:"store"`
	Scraper    ScraperConfig    `koanf:"scraper"`
	Cache      CacheConfig      `koanf:"cache"`
	Estimation EstimationConfig `koanf:"estimation"`
	Scoring    scoring.Weights  `koanf:"scoring"`
	Conversion ConversionConfig `koanf:"conversion"`
	Workers    int              `koanf:"workers"`
}

// Baseline translates the conversion overrides into the table baseline,
// starting from the shipped anchors and multipliers.
func (c *Config) Baseline() conversion.Baseline {
	baseline := conversion.DefaultBaseline()
	if len(c.Conversion.KindleAnchors) > 0 {
		baseline.Kindle = toEntries(c.Conversion.KindleAnchors)
	}
	if len(c.Conversion.PrintAnchors) > 0 {
		baseline.Print = toEntries(c.Conversion.PrintAnchors)
	}
	for code, mult := range c.Conversion.MarketMultipliers {
		if m, ok := market.FromCode(code); ok && mult > 0 {
			baseline.Multipliers[m] = mult
		}
	}
	return baseline
}

func toEntries(anchors []Anchor) []conversion.Entry {
	entries := make([]conversion.Entry, len(anchors))
	for i, a := range anchors {
		entries[i] = conversion.Entry{BSR: a.BSR, DailySales: a.DailySales}
	}
	return entries
}

// Default returns the shipped configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Path: "data/kdprank.db",
		},
		Scraper: ScraperConfig{
			Timeout:           30 * time.Second,
			RequestsPerMinute: 20,
		},
		Cache: CacheConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			TTL:     time.Hour,
		},
		Estimation: EstimationConfig{
			Kindle:    Coefficients{A: 5500, B: -0.83},
			Paperback: Coefficients{A: 2600, B: -0.75},
		},
		Scoring: scoring.DefaultWeights(),
		Workers: 8,
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path (skipped when path is empty or missing) and KDPRANK_ environment
// variables.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransform maps KDPRANK_SCRAPER_REQUESTS_PER_MINUTE to
// scraper.requests_per_minute. Only the first underscore becomes a level
// separator; the rest stay part of the key (scoring.serp_intensity keeps
// its underscore). The estimation section nests one level deeper.
func envTransform(name string) string {
	trimmed := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	if strings.HasPrefix(trimmed, "estimation_") {
		return strings.Replace(trimmed, "_", ".", 2)
	}
	return strings.Replace(trimmed, "_", ".", 1)
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("config: store.path must not be empty")
	}
	if c.Scraper.RequestsPerMinute <= 0 {
		return fmt.Errorf("config: scraper.requests_per_minute must be positive, got %d", c.Scraper.RequestsPerMinute)
	}
	if c.Scraper.Timeout <= 0 {
		return fmt.Errorf("config: scraper.timeout must be positive, got %s", c.Scraper.Timeout)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	}
	if c.Estimation.Kindle.A <= 0 || c.Estimation.Paperback.A <= 0 {
		return fmt.Errorf("config: estimation coefficients A must be positive")
	}
	if c.Estimation.Kindle.B >= 0 || c.Estimation.Paperback.B >= 0 {
		return fmt.Errorf("config: estimation coefficients B must be negative")
	}
	return nil
}
