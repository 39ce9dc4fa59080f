package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

func (r *pgQueries) RecordUsage(ctx context.Context, userID uuid.UUID, at time.Time, delta models.UsageDelta) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO usage_stats (id, total_documents, cache_hits, cache_misses, total_tokens_saved, updated_at)
		VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			total_documents = usage_stats.total_documents + EXCLUDED.total_documents,
			cache_hits = usage_stats.cache_hits + EXCLUDED.cache_hits,
			cache_misses = usage_stats.cache_misses + EXCLUDED.cache_misses,
			total_tokens_saved = usage_stats.total_tokens_saved + EXCLUDED.total_tokens_saved,
			updated_at = EXCLUDED.updated_at`,
		delta.Documents, delta.CacheHits, delta.CacheMisses, delta.TokensSaved, at,
	)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO user_usage (user_id, year, month, documents_processed, cache_hits, cache_misses, tokens_saved)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, year, month) DO UPDATE SET
			documents_processed = user_usage.documents_processed + EXCLUDED.documents_processed,
			cache_hits = user_usage.cache_hits + EXCLUDED.cache_hits,
			cache_misses = user_usage.cache_misses + EXCLUDED.cache_misses,
			tokens_saved = user_usage.tokens_saved + EXCLUDED.tokens_saved`,
		userID, at.Year(), int(at.Month()),
		delta.Documents, delta.CacheHits, delta.CacheMisses, delta.TokensSaved,
	)
	return err
}

func (r *pgQueries) GetUsageStats(ctx context.Context) (*models.UsageStats, error) {
	stats := &models.UsageStats{}
	err := r.db.QueryRow(ctx, `
		SELECT total_documents, cache_hits, cache_misses, total_tokens_saved, updated_at
		FROM usage_stats WHERE id = 1`,
	).Scan(&stats.TotalDocuments, &stats.CacheHits, &stats.CacheMisses, &stats.TotalTokensSaved, &stats.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return stats, nil
}

func (r *pgQueries) GetUserUsage(ctx context.Context, userID uuid.UUID, year, month int) (*models.UserUsage, error) {
	u := &models.UserUsage{UserID: userID, Year: year, Month: month}
	err := r.db.QueryRow(ctx, `
		SELECT documents_processed, cache_hits, cache_misses, tokens_saved
		FROM user_usage WHERE user_id = $1 AND year = $2 AND month = $3`,
		userID, year, month,
	).Scan(&u.DocumentsProcessed, &u.CacheHits, &u.CacheMisses, &u.TokensSaved)
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}
