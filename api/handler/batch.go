package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/shopsavvy/cache"
	"github.com/use-agent/shopsavvy/models"
	"github.com/use-agent/shopsavvy/webhook"
)

// batchJob guards a models.BatchJob; results land from several goroutines
// while GET /batch/:id reads them.
type batchJob struct {
	mu  sync.Mutex
	job models.BatchJob
}

func (b *batchJob) status() models.BatchStatusResponse {
	b.mu.Lock()
	defer b.mu.Unlock()
	return models.BatchStatusResponse{
		ID:        b.job.ID,
		Status:    b.job.Status,
		Completed: b.job.Completed,
		Total:     b.job.Total,
		Results:   append([]*models.SearchResponse(nil), b.job.Results...),
	}
}

func (b *batchJob) record(idx int, resp *models.SearchResponse) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.job.Results[idx] = resp
	b.job.Completed++
}

// BatchStore holds in-flight and finished batch jobs. Jobs older than an
// hour are dropped by Prune.
type BatchStore struct {
	jobs sync.Map // id -> *batchJob
}

// NewBatchStore creates a store and starts pruning it every five minutes
// until ctx is done.
func NewBatchStore(ctx context.Context) *BatchStore {
	s := &BatchStore{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Prune(time.Now().Add(-1 * time.Hour))
			}
		}
	}()
	return s
}

// Prune deletes jobs created before cutoff.
func (s *BatchStore) Prune(cutoff time.Time) {
	s.jobs.Range(func(key, value any) bool {
		b := value.(*batchJob)
		b.mu.Lock()
		old := b.job.CreatedAt < cutoff.Unix()
		b.mu.Unlock()
		if old {
			s.jobs.Delete(key)
		}
		return true
	})
}

// PostBatch returns a handler for POST /api/v1/batch/search.
// It validates the request, registers a job and runs the queries in the
// background with at most concurrency searches in flight.
func PostBatch(s Searcher, cc *cache.Cache, store *BatchStore, settings SearchSettings, concurrency int) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var req models.BatchSearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err), start)
			return
		}

		b := &batchJob{job: models.BatchJob{
			ID:        "batch-" + randomID(),
			Status:    "processing",
			Total:     len(req.Queries),
			Results:   make([]*models.SearchResponse, len(req.Queries)),
			CreatedAt: time.Now().Unix(),
		}}
		store.jobs.Store(b.job.ID, b)

		go runBatch(s, cc, b, req, settings, concurrency)

		c.JSON(http.StatusAccepted, models.BatchResponse{
			ID:     b.job.ID,
			Status: "processing",
			Total:  len(req.Queries),
		})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch(store *BatchStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		val, ok := store.jobs.Load(c.Param("id"))
		if !ok {
			respondError(c, models.NewScrapeError(models.ErrCodeNotFound, "batch job not found", nil), time.Now())
			return
		}
		c.JSON(http.StatusOK, val.(*batchJob).status())
	}
}

// runBatch searches every query, settles the job status and fires the
// batch.completed webhook when one was requested.
func runBatch(s Searcher, cc *cache.Cache, b *batchJob, req models.BatchSearchRequest, settings SearchSettings, concurrency int) {
	sem := make(chan struct{}, max(concurrency, 1))
	var wg sync.WaitGroup

	for i, q := range req.Queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			b.record(i, searchBatchQuery(s, cc, settings, q))
		}()
	}
	wg.Wait()

	b.mu.Lock()
	failed := 0
	for _, r := range b.job.Results {
		if !r.Success {
			failed++
		}
	}
	switch {
	case failed == b.job.Total:
		b.job.Status = "failed"
	case failed > 0:
		b.job.Status = "partial"
	default:
		b.job.Status = "completed"
	}
	b.mu.Unlock()

	final := b.status()
	slog.Info("batch job finished",
		"id", final.ID,
		"status", final.Status,
		"failed", failed,
		"total", final.Total,
	)

	if req.WebhookURL != "" {
		webhook.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
			Type:      webhook.EventBatchCompleted,
			JobID:     final.ID,
			Timestamp: time.Now().Unix(),
			Data:      final,
		})
	}
}

func searchBatchQuery(s Searcher, cc *cache.Cache, settings SearchSettings, query string) *models.SearchResponse {
	start := time.Now()
	req := models.SearchRequest{Query: query}
	req.Defaults(settings.ResultCap)

	resp, err := searchOne(context.Background(), s, cc, settings, req)
	if err != nil {
		var se *models.ScrapeError
		if !errors.As(err, &se) {
			se = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
		}
		resp = &models.SearchResponse{Query: query, Products: []models.ProductRecord{}, Error: se.ToDetail()}
	}
	resp.Timing.TotalMs = time.Since(start).Milliseconds()
	return resp
}

// randomID generates a short random hex string for job IDs.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
