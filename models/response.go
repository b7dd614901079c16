package models

// SearchResponse is the response for GET /api/v1/search.
type SearchResponse struct {
	// Success indicates whether the search completed. An empty product list
	// is still a success.
	Success bool `json:"success"`

	// Query is the cleaned query that was sent to the sources.
	Query string `json:"query"`

	// Products are the filtered and sorted records.
	Products []ProductRecord `json:"products"`

	// Stats summarises Products.
	Stats Stats `json:"stats"`

	// Sources reports how each source fared.
	Sources []SourceReport `json:"sources"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// CacheStatus is "hit", "miss", or empty when the cache was bypassed.
	CacheStatus string `json:"cache_status,omitempty"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// SourceReport is the per-source outcome of one search.
type SourceReport struct {
	Platform Platform `json:"platform"`

	// Found counts records that passed normalization.
	Found int `json:"found"`

	// Rejected counts candidates dropped by extraction or validation.
	Rejected int `json:"rejected"`

	// Engine is the fetch engine that produced the page.
	Engine string `json:"engine,omitempty"`

	// LayoutDrift is set when the page structure changed noticeably since the last fetch.
	LayoutDrift bool `json:"layout_drift,omitempty"`

	DurationMs int64 `json:"duration_ms"`

	// Error is the fetch or parse failure; the source then contributed nothing.
	Error string `json:"error,omitempty"`
}

// Stats summarises a product list.
type Stats struct {
	Total      int              `json:"total"`
	ByPlatform map[Platform]int `json:"by_platform"`
	Cheapest   int64            `json:"cheapest"`
	Average    int64            `json:"average"`
	Priciest   int64            `json:"priciest"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// SearchMs is the time spent fetching and extracting from the sources.
	SearchMs int64 `json:"search_ms"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status      string     `json:"status"` // "healthy" or "degraded"
	Uptime      string     `json:"uptime"`
	Version     string     `json:"version"`
	Sources     []Platform `json:"sources"`
	CacheSize   int        `json:"cache_size"`
	DriftAlerts []Platform `json:"drift_alerts,omitempty"`
}
