// Package refine is the caller-side layer over aggregated results: query
// cleanup before a search, then filtering, ordering and summary statistics
// after it.
package refine

import (
	"regexp"
	"slices"
	"strings"

	"github.com/use-agent/shopsavvy/models"
)

// siteMentions matches phrases like "on jumia" or a bare "kilimall" that
// users add to a query but that would poison the sites' own search.
var siteMentions = regexp.MustCompile(`(?i)(?:\b(?:in|from|on)\s+)?(?:jumia|kilimall)`)

// CleanQuery strips site-name mentions and collapses whitespace. When
// nothing is left, the trimmed raw query is returned instead.
func CleanQuery(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	q := strings.Join(strings.Fields(siteMentions.ReplaceAllString(trimmed, " ")), " ")
	if q == "" {
		return trimmed
	}
	return q
}

// Filter narrows a result list. Zero values disable each bound.
type Filter struct {
	// MinPrice and MaxPrice are inclusive. MaxPrice 0 means unbounded.
	MinPrice int64
	MaxPrice int64

	// Platforms keeps only the listed platforms. Empty keeps all.
	Platforms []models.Platform
}

// Match reports whether r passes the filter.
func (f Filter) Match(r models.ProductRecord) bool {
	if r.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && r.Price > f.MaxPrice {
		return false
	}
	if len(f.Platforms) > 0 && !slices.Contains(f.Platforms, r.Platform) {
		return false
	}
	return true
}

// Apply returns the records that pass f, in their original order.
// The input is not modified.
func (f Filter) Apply(records []models.ProductRecord) []models.ProductRecord {
	out := make([]models.ProductRecord, 0, len(records))
	for _, r := range records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Order is a price sort direction.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// Sort returns a copy of records ordered by price. Equal prices keep their
// relative order in both directions.
func Sort(records []models.ProductRecord, order Order) []models.ProductRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b models.ProductRecord) int {
		if order == Descending {
			return cmpPrice(b, a)
		}
		return cmpPrice(a, b)
	})
	return out
}

func cmpPrice(a, b models.ProductRecord) int {
	switch {
	case a.Price < b.Price:
		return -1
	case a.Price > b.Price:
		return 1
	}
	return 0
}

// Summarize computes count, per-platform counts and price statistics.
// The average is truncated to a whole unit. An empty list yields zero stats.
func Summarize(records []models.ProductRecord) models.Stats {
	stats := models.Stats{
		Total:      len(records),
		ByPlatform: make(map[models.Platform]int, len(models.KnownPlatforms)),
	}
	for _, p := range models.KnownPlatforms {
		stats.ByPlatform[p] = 0
	}
	if len(records) == 0 {
		return stats
	}

	var sum int64
	stats.Cheapest = records[0].Price
	for _, r := range records {
		stats.ByPlatform[r.Platform]++
		sum += r.Price
		stats.Cheapest = min(stats.Cheapest, r.Price)
		stats.Priciest = max(stats.Priciest, r.Price)
	}
	stats.Average = sum / int64(len(records))
	return stats
}
