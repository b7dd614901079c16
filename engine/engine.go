package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotHTML is returned when a source answers with a non-HTML body.
var ErrNotHTML = errors.New("engine: response is not html")

// Engine is the interface that all fetch engines must implement.
type Engine interface {
	// Name returns the engine identifier (e.g. "utls", "std").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string

	// Timeout bounds the whole request including the body read. Zero means
	// the caller's context is the only deadline.
	Timeout time.Duration
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	Title      string
	StatusCode int
	FinalURL   string
	EngineName string
}

// StatusError reports a non-2xx answer. It is a verdict from the site, not a
// transport problem, so a different engine would get the same answer.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("engine: %s returned status %d", e.URL, e.StatusCode)
}
