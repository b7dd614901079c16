package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/use-agent/shopsavvy/aggregator"
	"github.com/use-agent/shopsavvy/config"
	"github.com/use-agent/shopsavvy/models"
)

type emptySearcher struct{}

func (emptySearcher) Search(context.Context, string, int) *aggregator.Result {
	return &aggregator.Result{
		Products: []models.ProductRecord{},
		Sources:  []models.SourceReport{{Platform: models.PlatformJumia}},
	}
}

func (emptySearcher) Platforms() []models.Platform { return models.KnownPlatforms }

func TestNewRouter_Routes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()
	cfg.Server.Mode = "test"
	cfg.Auth = config.AuthConfig{Enabled: true, APIKeys: []string{"k1"}}
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100}

	r := NewRouter(ctx, cfg, Deps{Searcher: emptySearcher{}, StartTime: time.Now()})

	tests := []struct {
		name   string
		method string
		path   string
		key    string
		want   int
	}{
		{"health is public", http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{"search needs a key", http.MethodGet, "/api/v1/search?q=kettle", "", http.StatusUnauthorized},
		{"search", http.MethodGet, "/api/v1/search?q=kettle", "k1", http.StatusOK},
		{"batch lookup", http.MethodGet, "/api/v1/batch/nope", "k1", http.StatusNotFound},
		{"unknown route", http.MethodGet, "/api/v1/scrape", "k1", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}
