package models

// BatchSearchRequest is the payload for POST /api/v1/batch/search.
type BatchSearchRequest struct {
	// Queries are searched one after another. Required.
	Queries []string `json:"queries" binding:"required,min=1,max=20"`

	// WebhookURL receives a batch.completed event when the job finishes.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs the webhook body with HMAC-SHA256.
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// BatchResponse is the immediate response for POST /api/v1/batch/search.
type BatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Total  int    `json:"total"`
}

// BatchStatusResponse is the response for GET /api/v1/batch/:id.
type BatchStatusResponse struct {
	ID        string            `json:"id"`
	Status    string            `json:"status"`
	Completed int               `json:"completed"`
	Total     int               `json:"total"`
	Results   []*SearchResponse `json:"results,omitempty"`
}

// BatchJob tracks an in-progress batch search.
type BatchJob struct {
	ID        string
	Status    string // "processing", "completed", "partial", "failed"
	Total     int
	Completed int
	Results   []*SearchResponse
	CreatedAt int64 // unix timestamp
}
