// Package extractor turns one site's search-result HTML into normalized
// product records. Extraction is pure: fetching the page is the engine's job.
package extractor

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/shopsavvy/config"
	"github.com/use-agent/shopsavvy/models"
)

// Rejection reasons. A candidate carrying one of these is dropped; the pass continues.
var (
	ErrMissingName     = errors.New("extractor: name node missing")
	ErrMissingPrice    = errors.New("extractor: price not found")
	ErrInvalidPrice    = errors.New("extractor: price is not positive")
	ErrShortName       = errors.New("extractor: name shorter than 3 characters")
	ErrInvalidURL      = errors.New("extractor: url is not absolute")
	ErrUnknownPlatform = errors.New("extractor: unknown platform")
	ErrCandidatePanic  = errors.New("extractor: candidate extraction panicked")
)

// RawCandidate is a loosely populated record found while scanning a page.
// Zero fields mean the signal was absent.
type RawCandidate struct {
	Name          string
	Price         int64
	OriginalPrice int64
	URL           string
	ImageURL      string
}

// Result is the outcome of extracting one candidate: either a candidate or
// the reason it was skipped.
type Result struct {
	Candidate RawCandidate
	Err       error
}

// Extractor is one site's extraction strategy.
type Extractor interface {
	// Platform is the tag stamped on every record this extractor produces.
	Platform() models.Platform

	// Site returns where and how to fetch the search page.
	Site() Site

	// Extract scans rawHTML for candidates. The returned error is reserved
	// for documents that cannot be parsed at all.
	Extract(rawHTML, query string) ([]Result, error)
}

// Site is the fetch-side description of a source.
type Site struct {
	BaseURL    *url.URL
	SearchPath string
	Timeout    time.Duration
	ScanLimit  int
}

// NewSite validates a source configuration.
func NewSite(cfg config.SourceConfig) (Site, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return Site{}, fmt.Errorf("extractor: parse base url: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return Site{}, fmt.Errorf("extractor: base url %q is not absolute", cfg.BaseURL)
	}
	if !strings.Contains(cfg.SearchPath, "%s") {
		return Site{}, fmt.Errorf("extractor: search path %q has no %%s placeholder", cfg.SearchPath)
	}
	if cfg.ScanLimit <= 0 {
		return Site{}, fmt.Errorf("extractor: scan limit must be positive")
	}
	return Site{
		BaseURL:    u,
		SearchPath: cfg.SearchPath,
		Timeout:    cfg.Timeout,
		ScanLimit:  cfg.ScanLimit,
	}, nil
}

// SearchURL substitutes the form-escaped query into the search path.
func (s Site) SearchURL(query string) string {
	return strings.TrimRight(s.BaseURL.String(), "/") + fmt.Sprintf(s.SearchPath, url.QueryEscape(query))
}

// Origin is scheme://host of the site.
func (s Site) Origin() string {
	return s.BaseURL.Scheme + "://" + s.BaseURL.Host
}

// Outcome is the normalized result of one extraction pass.
type Outcome struct {
	Records  []models.ProductRecord
	Rejected []error
}

// Run extracts rawHTML with e and normalizes every candidate, keeping the
// document order of the survivors.
func Run(e Extractor, rawHTML, query string) (Outcome, error) {
	results, err := e.Extract(rawHTML, query)
	if err != nil {
		return Outcome{}, err
	}

	var out Outcome
	for i, r := range results {
		if r.Err != nil {
			out.Rejected = append(out.Rejected, fmt.Errorf("candidate %d: %w", i, r.Err))
			continue
		}
		rec, err := Normalize(r.Candidate, e.Platform())
		if err != nil {
			out.Rejected = append(out.Rejected, fmt.Errorf("candidate %d: %w", i, err))
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

// safely runs one candidate's extraction so that a panic on hostile markup
// costs only that candidate.
func safely(fn func() (RawCandidate, error)) (c RawCandidate, err error) {
	defer func() {
		if r := recover(); r != nil {
			c = RawCandidate{}
			err = fmt.Errorf("%w: %v", ErrCandidatePanic, r)
		}
	}()
	return fn()
}

// resolve makes ref absolute against base.
func resolve(base *url.URL, ref string) (string, error) {
	u, err := base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return u.String(), nil
}
