package models

// SearchRequest is bound from the query string of GET /api/v1/search.
type SearchRequest struct {
	// Query is the free-text search. Required.
	Query string `form:"q" json:"q" binding:"required"`

	// MinPrice and MaxPrice bound the price range, inclusive. Zero MaxPrice means unbounded.
	MinPrice int64 `form:"min_price" json:"min_price,omitempty" binding:"omitempty,min=0"`
	MaxPrice int64 `form:"max_price" json:"max_price,omitempty" binding:"omitempty,min=0"`

	// Platforms restricts results to the named platforms. Empty means all.
	Platforms []string `form:"platforms" json:"platforms,omitempty"`

	// Sort is "asc" (default) or "desc" by price.
	Sort string `form:"sort" json:"sort,omitempty" binding:"omitempty,oneof=asc desc"`

	// Limit caps the number of products returned after filtering.
	// Default: the configured result cap.
	Limit int `form:"limit" json:"limit,omitempty" binding:"omitempty,min=1,max=200"`

	// MaxAge is the oldest cached result, in seconds, the caller accepts.
	// Zero uses the server default; negative bypasses the cache.
	MaxAge int `form:"max_age" json:"max_age,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *SearchRequest) Defaults(resultCap int) {
	if r.Sort == "" {
		r.Sort = "asc"
	}
	if r.Limit == 0 {
		r.Limit = resultCap
	}
}
