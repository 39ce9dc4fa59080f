package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
	"github.com/tigerfox1974/StudyBuddy/internal/repository"
)

// CacheEntry is a freshly generated study pack waiting to be stored.
type CacheEntry struct {
	Key            models.CacheKey
	Filename       string
	FileType       string
	FileSize       int64
	Artifacts      models.Artifacts
	ModelUsed      string
	TokensUsed     int
	ProcessingTime float64
}

// ContentCache maps (file hash, level, role, user) to the latest generated content.
type ContentCache struct {
	store repository.Store
	now   func() time.Time
}

func NewContentCache(store repository.Store, now func() time.Time) *ContentCache {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &ContentCache{store: store, now: now}
}

// Lookup returns nil, nil on a miss. A hit refreshes last_accessed immediately.
func (c *ContentCache) Lookup(ctx context.Context, key models.CacheKey) (*models.GeneratedContent, error) {
	doc, err := c.store.FindDocument(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}

	content, err := c.store.LatestGeneratedContent(ctx, doc.ID)
	if errors.Is(err, repository.ErrNotFound) {
		// a document without content is treated as never processed
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load content: %w", err)
	}

	now := c.now()
	if err := c.store.TouchDocument(ctx, doc.ID, now); err != nil {
		return nil, fmt.Errorf("touch document: %w", err)
	}
	doc.LastAccessed = now
	content.Document = doc
	return content, nil
}

// Store writes entry through q, which is normally a transaction handle. It
// reuses the document for the exact key and replaces its content.
func (c *ContentCache) Store(ctx context.Context, q repository.Queries, entry CacheEntry) (*models.GeneratedContent, error) {
	now := c.now()

	doc, err := q.FindDocument(ctx, entry.Key)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		doc = &models.Document{
			ID:           uuid.New(),
			FileHash:     entry.Key.FileHash,
			Filename:     entry.Filename,
			FileType:     entry.FileType,
			FileSize:     entry.FileSize,
			Level:        entry.Key.Level,
			Role:         entry.Key.Role,
			UserID:       entry.Key.UserID,
			CreatedAt:    now,
			LastAccessed: now,
		}
		if err := q.CreateDocument(ctx, doc); err != nil {
			return nil, fmt.Errorf("create document: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("find document: %w", err)
	default:
		if err := q.DeleteGeneratedContent(ctx, doc.ID); err != nil {
			return nil, fmt.Errorf("replace content: %w", err)
		}
		if err := q.TouchDocument(ctx, doc.ID, now); err != nil {
			return nil, fmt.Errorf("touch document: %w", err)
		}
		doc.LastAccessed = now
	}

	content := &models.GeneratedContent{
		ID:             uuid.New(),
		DocumentID:     doc.ID,
		Artifacts:      entry.Artifacts,
		ModelUsed:      entry.ModelUsed,
		TokensUsed:     entry.TokensUsed,
		ProcessingTime: entry.ProcessingTime,
		CreatedAt:      now,
	}
	if err := q.CreateGeneratedContent(ctx, content); err != nil {
		return nil, fmt.Errorf("create content: %w", err)
	}
	content.Document = doc
	return content, nil
}

func (c *ContentCache) RecordHit(ctx context.Context, q repository.Queries, userID uuid.UUID, tokensSaved int) error {
	return q.RecordUsage(ctx, userID, c.now(), models.UsageDelta{CacheHits: 1, TokensSaved: tokensSaved})
}

// RecordMiss also counts one processed document against the monthly upload cap.
func (c *ContentCache) RecordMiss(ctx context.Context, q repository.Queries, userID uuid.UUID) error {
	return q.RecordUsage(ctx, userID, c.now(), models.UsageDelta{Documents: 1, CacheMisses: 1})
}
