package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/shopsavvy/api/handler"
	"github.com/use-agent/shopsavvy/api/middleware"
	"github.com/use-agent/shopsavvy/cache"
	"github.com/use-agent/shopsavvy/config"
	"github.com/use-agent/shopsavvy/simhash"
)

// Deps are the long-lived services the routes are built on.
type Deps struct {
	Searcher  handler.Searcher
	Cache     *cache.Cache
	Drift     *simhash.DriftMonitor
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
// Background loops owned by the router (rate-limit eviction, batch pruning)
// stop when ctx is done.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health is outside auth so uptime monitors always reach it.
func NewRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	settings := handler.SearchSettings{
		ResultCap:     cfg.Search.ResultCap,
		DefaultMaxAge: cfg.Cache.DefaultMaxAge,
		Timeout:       cfg.Search.RequestTimeout,
	}
	batches := handler.NewBatchStore(ctx)

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(deps.Searcher, deps.Cache, deps.Drift, deps.StartTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.GET("/search", handler.Search(deps.Searcher, deps.Cache, settings))

	protected.POST("/batch/search", handler.PostBatch(deps.Searcher, deps.Cache, batches, settings, cfg.Search.BatchConcurrency))
	protected.GET("/batch/:id", handler.GetBatch(batches))

	return r
}
