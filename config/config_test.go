package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Search.ResultCap)
	assert.Equal(t, 2*time.Second, cfg.Search.PolitenessDelay)
	assert.False(t, cfg.Search.Concurrent)
	assert.Equal(t, "https://www.jumia.co.ke", cfg.Jumia.BaseURL)
	assert.Equal(t, 20*time.Second, cfg.Jumia.Timeout)
	assert.Equal(t, 15, cfg.Jumia.ScanLimit)
	assert.Equal(t, 25*time.Second, cfg.Kilimall.Timeout)
	assert.Equal(t, 20, cfg.Kilimall.ScanLimit)
	assert.Equal(t, "KSh", cfg.Kilimall.CurrencySymbol)
	assert.Equal(t, []string{`/product/`, `/item/`, `/p/\d+`}, cfg.Kilimall.DetailPatterns)
	assert.Equal(t, 5*time.Minute, cfg.Cache.DefaultMaxAge)
	assert.Equal(t, time.Minute, cfg.Search.RequestTimeout)
	assert.Equal(t, 2, cfg.Search.BatchConcurrency)

	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SHOPSAVVY_POLITENESS_DELAY", "0s")
	t.Setenv("SHOPSAVVY_RESULT_CAP", "10")
	t.Setenv("SHOPSAVVY_KILIMALL_CURRENCY", "KES")
	t.Setenv("SHOPSAVVY_API_KEYS", "a, b ,,c")
	t.Setenv("SHOPSAVVY_CONCURRENT", "true")
	t.Setenv("SHOPSAVVY_PORT", "not-a-number")

	cfg := Load()

	assert.Equal(t, time.Duration(0), cfg.Search.PolitenessDelay)
	assert.Equal(t, 10, cfg.Search.ResultCap)
	assert.Equal(t, "KES", cfg.Kilimall.CurrencySymbol)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Auth.APIKeys)
	assert.True(t, cfg.Search.Concurrent)
	assert.Equal(t, 8080, cfg.Server.Port, "unparseable values fall back to the default")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"zero result cap", func(c *Config) { c.Search.ResultCap = 0 }, "result cap"},
		{"negative delay", func(c *Config) { c.Search.PolitenessDelay = -time.Second }, "politeness delay"},
		{"zero search timeout", func(c *Config) { c.Search.RequestTimeout = 0 }, "search timeout"},
		{"zero batch concurrency", func(c *Config) { c.Search.BatchConcurrency = 0 }, "batch concurrency"},
		{"auth without keys", func(c *Config) { c.Auth.Enabled = true; c.Auth.APIKeys = nil }, "auth enabled"},
		{"relative base url", func(c *Config) { c.Jumia.BaseURL = "/catalog" }, "jumia"},
		{"missing placeholder", func(c *Config) { c.Kilimall.SearchPath = "/search" }, "placeholder"},
		{"zero timeout", func(c *Config) { c.Jumia.Timeout = 0 }, "timeout"},
		{"zero scan limit", func(c *Config) { c.Kilimall.ScanLimit = 0 }, "scan limit"},
		{"blank currency", func(c *Config) { c.Kilimall.CurrencySymbol = " " }, "currency"},
		{"no detail patterns", func(c *Config) { c.Kilimall.DetailPatterns = nil }, "detail patterns"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
