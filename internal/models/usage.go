package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageStats is the global cache counter row.
type UsageStats struct {
	TotalDocuments   int       `json:"total_documents"`
	CacheHits        int       `json:"cache_hits"`
	CacheMisses      int       `json:"cache_misses"`
	TotalTokensSaved int       `json:"total_tokens_saved"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UserUsage is kept per user per calendar month. DocumentsProcessed doubles as
// the monthly upload counter.
type UserUsage struct {
	UserID             uuid.UUID `json:"user_id"`
	Year               int       `json:"year"`
	Month              int       `json:"month"`
	DocumentsProcessed int       `json:"documents_processed"`
	CacheHits          int       `json:"cache_hits"`
	CacheMisses        int       `json:"cache_misses"`
	TokensSaved        int       `json:"tokens_saved"`
}

// UsageDelta is added to both the global and the per-user counters.
type UsageDelta struct {
	Documents   int
	CacheHits   int
	CacheMisses int
	TokensSaved int
}
