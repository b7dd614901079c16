package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/shopsavvy/aggregator"
	"github.com/use-agent/shopsavvy/cache"
	"github.com/use-agent/shopsavvy/models"
	"github.com/use-agent/shopsavvy/refine"
)

// Searcher runs one aggregated search. *aggregator.Aggregator implements it.
type Searcher interface {
	Search(ctx context.Context, query string, resultCap int) *aggregator.Result
	Platforms() []models.Platform
}

// SearchSettings are the server-side knobs shared by the search and batch handlers.
type SearchSettings struct {
	ResultCap     int
	DefaultMaxAge time.Duration
	Timeout       time.Duration
}

// Search returns a handler for GET /api/v1/search.
//
// Flow:
//  1. Bind and validate the query string, apply defaults.
//  2. Clean the query, then look it up in the cache.
//  3. On a miss, run the aggregator and cache the raw result.
//  4. Filter, sort and limit the records, summarise, respond.
func Search(s Searcher, cc *cache.Cache, settings SearchSettings) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.SearchRequest
		if err := c.ShouldBindQuery(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err), totalStart)
			return
		}
		req.Defaults(settings.ResultCap)

		resp, err := searchOne(c.Request.Context(), s, cc, settings, req)
		if err != nil {
			respondError(c, err, totalStart)
			return
		}
		resp.Timing.TotalMs = time.Since(totalStart).Milliseconds()

		status := http.StatusOK
		if !resp.Success {
			status = mapErrorToStatus(resp.Error.Code)
		}
		c.JSON(status, resp)
	}
}

// searchOne runs a validated request end to end. The returned error is
// always a *models.ScrapeError describing invalid input; search failures are
// reported inside the response so per-source detail is kept.
func searchOne(ctx context.Context, s Searcher, cc *cache.Cache, settings SearchSettings, req models.SearchRequest) (*models.SearchResponse, error) {
	filter, err := buildFilter(req)
	if err != nil {
		return nil, err
	}

	query := refine.CleanQuery(req.Query)
	if query == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "query is empty", nil)
	}

	maxAge := settings.DefaultMaxAge
	switch {
	case req.MaxAge > 0:
		maxAge = time.Duration(req.MaxAge) * time.Second
	case req.MaxAge < 0:
		maxAge = 0
	}

	resp := &models.SearchResponse{Query: query}
	key := cache.Key(query)

	var result *aggregator.Result
	if cc != nil {
		if cached, _, hit := cc.Get(key, maxAge); hit {
			result = cached
			resp.CacheStatus = "hit"
		}
	}

	if result == nil {
		if settings.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, settings.Timeout)
			defer cancel()
		}

		searchStart := time.Now()
		result = s.Search(ctx, query, settings.ResultCap)
		resp.Timing.SearchMs = time.Since(searchStart).Milliseconds()

		if allFailed(result.Sources) {
			resp.Sources = result.Sources
			resp.Products = []models.ProductRecord{}
			resp.Stats = refine.Summarize(nil)
			code, msg := models.ErrCodeFetch, "every source failed"
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				code, msg = models.ErrCodeTimeout, "search timed out before any source answered"
			}
			resp.Error = &models.ErrorDetail{Code: code, Message: msg}
			return resp, nil
		}

		if cc != nil && maxAge > 0 {
			cc.Set(key, result)
			resp.CacheStatus = "miss"
		}
	}

	products := refine.Sort(filter.Apply(result.Products), refine.Order(req.Sort))
	if len(products) > req.Limit {
		products = products[:req.Limit]
	}

	resp.Success = true
	resp.Products = products
	resp.Stats = refine.Summarize(products)
	resp.Sources = result.Sources
	return resp, nil
}

// buildFilter validates the price range and platform names of req.
func buildFilter(req models.SearchRequest) (refine.Filter, error) {
	if req.MaxPrice > 0 && req.MinPrice > req.MaxPrice {
		return refine.Filter{}, models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("min_price %d is above max_price %d", req.MinPrice, req.MaxPrice), nil)
	}

	f := refine.Filter{MinPrice: req.MinPrice, MaxPrice: req.MaxPrice}
	for _, raw := range req.Platforms {
		for _, name := range strings.Split(raw, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			p, ok := models.ParsePlatform(name)
			if !ok {
				return refine.Filter{}, models.NewScrapeError(models.ErrCodeInvalidInput,
					fmt.Sprintf("unknown platform %q", strings.TrimSpace(name)), nil)
			}
			f.Platforms = append(f.Platforms, p)
		}
	}
	return f, nil
}

func allFailed(sources []models.SourceReport) bool {
	if len(sources) == 0 {
		return false
	}
	for _, s := range sources {
		if s.Error == "" {
			return false
		}
	}
	return true
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, start time.Time) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr.Code), models.SearchResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  models.TimingInfo{TotalMs: time.Since(start).Milliseconds()},
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(code string) int {
	switch code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeFetch:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
