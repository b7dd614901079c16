package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Engine    EngineConfig
	HTTP      HTTPConfig
	Search    SearchConfig
	Jumia     SourceConfig
	Kilimall  KilimallConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: false

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting of the public API.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the search result cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached queries.
	MaxEntries int // default: 500

	// DefaultMaxAge is used when a request does not set max_age.
	DefaultMaxAge time.Duration // default: 5m
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// EngineConfig controls the fetch engines.
type EngineConfig struct {
	// EnableUTLS puts the Chrome-fingerprint engine in front of the stdlib one.
	EnableUTLS bool // default: true

	// MemoryTTL is how long the winning engine is remembered per host.
	MemoryTTL time.Duration // default: 24h

	// MaxBodyBytes caps how much of a response body is read.
	MaxBodyBytes int64 // default: 10 MB
}

// HTTPConfig holds the browser-like headers sent to every source.
type HTTPConfig struct {
	UserAgent      string
	AcceptLanguage string
}

// SearchConfig controls the aggregator.
type SearchConfig struct {
	// ResultCap truncates the merged result list.
	ResultCap int // default: 50

	// PolitenessDelay separates requests to different sources. 0 disables pacing.
	PolitenessDelay time.Duration // default: 2s

	// Concurrent runs sources in parallel with staggered starts.
	Concurrent bool // default: false

	// DriftThreshold is the SimHash distance above which a layout change is reported.
	DriftThreshold int // default: 12

	// RequestTimeout bounds one API search across all sources.
	RequestTimeout time.Duration // default: 60s

	// BatchConcurrency is how many queries of a batch run at once.
	BatchConcurrency int // default: 2
}

// SourceConfig describes one e-commerce site.
type SourceConfig struct {
	// BaseURL is the site origin, e.g. "https://www.jumia.co.ke".
	BaseURL string

	// SearchPath is appended to BaseURL; "%s" is replaced by the escaped query.
	SearchPath string

	// Timeout is the hard deadline of one fetch.
	Timeout time.Duration

	// ScanLimit bounds how many elements an extraction pass inspects.
	ScanLimit int
}

// KilimallConfig adds the link-heuristic knobs of the unstructured site.
type KilimallConfig struct {
	SourceConfig

	// CurrencySymbol prefixes prices in the anchor text.
	CurrencySymbol string // default: "KSh"

	// DetailPatterns are regexps a product detail href must match.
	DetailPatterns []string
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("SHOPSAVVY_HOST", "0.0.0.0"),
			Port: envIntOr("SHOPSAVVY_PORT", 8080),
			Mode: envOr("SHOPSAVVY_MODE", "release"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SHOPSAVVY_AUTH_ENABLED", false),
			APIKeys: envSliceOr("SHOPSAVVY_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SHOPSAVVY_RATE_RPS", 2.0),
			Burst:             envIntOr("SHOPSAVVY_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries:    envIntOr("SHOPSAVVY_CACHE_MAX_ENTRIES", 500),
			DefaultMaxAge: envDurationOr("SHOPSAVVY_CACHE_MAX_AGE", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  envOr("SHOPSAVVY_LOG_LEVEL", "info"),
			Format: envOr("SHOPSAVVY_LOG_FORMAT", "json"),
		},
		Engine: EngineConfig{
			EnableUTLS:   envBoolOr("SHOPSAVVY_UTLS", true),
			MemoryTTL:    envDurationOr("SHOPSAVVY_ENGINE_MEMORY_TTL", 24*time.Hour),
			MaxBodyBytes: int64(envIntOr("SHOPSAVVY_MAX_BODY_BYTES", 10<<20)),
		},
		HTTP: HTTPConfig{
			UserAgent:      envOr("SHOPSAVVY_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"),
			AcceptLanguage: envOr("SHOPSAVVY_ACCEPT_LANGUAGE", "en-US,en;q=0.9"),
		},
		Search: SearchConfig{
			ResultCap:        envIntOr("SHOPSAVVY_RESULT_CAP", 50),
			PolitenessDelay:  envDurationOr("SHOPSAVVY_POLITENESS_DELAY", 2*time.Second),
			Concurrent:       envBoolOr("SHOPSAVVY_CONCURRENT", false),
			DriftThreshold:   envIntOr("SHOPSAVVY_DRIFT_THRESHOLD", 12),
			RequestTimeout:   envDurationOr("SHOPSAVVY_SEARCH_TIMEOUT", 60*time.Second),
			BatchConcurrency: envIntOr("SHOPSAVVY_BATCH_CONCURRENCY", 2),
		},
		Jumia: SourceConfig{
			BaseURL:    envOr("SHOPSAVVY_JUMIA_BASE_URL", "https://www.jumia.co.ke"),
			SearchPath: envOr("SHOPSAVVY_JUMIA_SEARCH_PATH", "/catalog/?q=%s"),
			Timeout:    envDurationOr("SHOPSAVVY_JUMIA_TIMEOUT", 20*time.Second),
			ScanLimit:  envIntOr("SHOPSAVVY_JUMIA_SCAN_LIMIT", 15),
		},
		Kilimall: KilimallConfig{
			SourceConfig: SourceConfig{
				BaseURL:    envOr("SHOPSAVVY_KILIMALL_BASE_URL", "https://www.kilimall.co.ke"),
				SearchPath: envOr("SHOPSAVVY_KILIMALL_SEARCH_PATH", "/search?q=%s"),
				Timeout:    envDurationOr("SHOPSAVVY_KILIMALL_TIMEOUT", 25*time.Second),
				ScanLimit:  envIntOr("SHOPSAVVY_KILIMALL_SCAN_LIMIT", 20),
			},
			CurrencySymbol: envOr("SHOPSAVVY_KILIMALL_CURRENCY", "KSh"),
			DetailPatterns: envSliceOr("SHOPSAVVY_KILIMALL_DETAIL_PATTERNS", []string{
				`/product/`, `/item/`, `/p/\d+`,
			}),
		},
	}
}

// Validate rejects configuration the service cannot start with.
func (c *Config) Validate() error {
	if c.Search.ResultCap <= 0 {
		return fmt.Errorf("config: result cap must be positive, got %d", c.Search.ResultCap)
	}
	if c.Search.PolitenessDelay < 0 {
		return fmt.Errorf("config: politeness delay must not be negative")
	}
	if c.Search.RequestTimeout <= 0 {
		return fmt.Errorf("config: search timeout must be positive")
	}
	if c.Search.BatchConcurrency <= 0 {
		return fmt.Errorf("config: batch concurrency must be positive")
	}
	if c.Auth.Enabled && len(c.Auth.APIKeys) == 0 {
		return fmt.Errorf("config: auth enabled but SHOPSAVVY_API_KEYS is empty")
	}
	for name, src := range map[string]SourceConfig{"jumia": c.Jumia, "kilimall": c.Kilimall.SourceConfig} {
		if err := src.validate(); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	if strings.TrimSpace(c.Kilimall.CurrencySymbol) == "" {
		return fmt.Errorf("config: kilimall currency symbol is empty")
	}
	if len(c.Kilimall.DetailPatterns) == 0 {
		return fmt.Errorf("config: kilimall detail patterns are empty")
	}
	return nil
}

func (s SourceConfig) validate() error {
	u, err := url.Parse(s.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base url %q is not an absolute http(s) url", s.BaseURL)
	}
	if !strings.Contains(s.SearchPath, "%s") {
		return fmt.Errorf("search path %q has no %%s placeholder", s.SearchPath)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if s.ScanLimit <= 0 {
		return fmt.Errorf("scan limit must be positive")
	}
	return nil
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
