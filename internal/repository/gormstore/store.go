// Package gormstore is the embedded SQLite backend used for local runs, the CLI and tests.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
	"github.com/tigerfox1974/StudyBuddy/internal/repository"
)

type gormQueries struct {
	db *gorm.DB
}

type Store struct {
	gormQueries
}

var _ repository.Store = (*Store)(nil)

// New migrates the schema and returns a Store over db.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(allRows...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{gormQueries{db: db}}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(q repository.Queries) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormQueries{db: tx})
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repository.ErrNotFound
	}
	return err
}

// Users

func (q *gormQueries) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Plan == "" {
		user.Plan = models.PlanFree
	}
	row := toUserRow(user)
	if err := q.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	user.CreatedAt = row.CreatedAt
	return nil
}

func (q *gormQueries) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var row userRow
	if err := q.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return row.model(), nil
}

func (q *gormQueries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var row userRow
	if err := q.db.WithContext(ctx).First(&row, "email = ?", email).Error; err != nil {
		return nil, notFound(err)
	}
	return row.model(), nil
}

func (q *gormQueries) GetUserForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var row userRow
	err := q.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return row.model(), nil
}

func (q *gormQueries) UpdateTokenAccount(ctx context.Context, user *models.User) error {
	res := q.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", user.ID).Updates(map[string]any{
		"subscription_plan":  string(user.Plan),
		"tokens_remaining":   user.TokensRemaining,
		"trial_ends_at":      user.TrialEndsAt,
		"last_token_refresh": user.LastTokenRefresh,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Documents and generated content

func (q *gormQueries) FindDocument(ctx context.Context, key models.CacheKey) (*models.Document, error) {
	var row documentRow
	err := q.db.WithContext(ctx).
		Where("file_hash = ? AND level = ? AND role = ? AND user_id = ?",
			key.FileHash, string(key.Level), string(key.Role), key.UserID).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return row.model(), nil
}

func (q *gormQueries) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.LastAccessed.IsZero() {
		doc.LastAccessed = now
	}
	return q.db.WithContext(ctx).Create(toDocumentRow(doc)).Error
}

func (q *gormQueries) TouchDocument(ctx context.Context, id uuid.UUID, at time.Time) error {
	return q.db.WithContext(ctx).Model(&documentRow{}).Where("id = ?", id).Update("last_accessed", at).Error
}

func (q *gormQueries) ListDocuments(ctx context.Context, userID uuid.UUID, limit int) ([]models.Document, error) {
	var rows []documentRow
	err := q.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	docs := make([]models.Document, 0, len(rows))
	for i := range rows {
		docs = append(docs, *rows[i].model())
	}
	return docs, nil
}

func (q *gormQueries) DeleteDocumentsAccessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&documentRow{}).Select("id").Where("last_accessed < ?", cutoff)
		if err := tx.Where("document_id IN (?)", stale).Delete(&contentRow{}).Error; err != nil {
			return err
		}
		res := tx.Where("last_accessed < ?", cutoff).Delete(&documentRow{})
		deleted = res.RowsAffected
		return res.Error
	})
	return deleted, err
}

func (q *gormQueries) DeleteGeneratedContent(ctx context.Context, documentID uuid.UUID) error {
	return q.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&contentRow{}).Error
}

func (q *gormQueries) CreateGeneratedContent(ctx context.Context, content *models.GeneratedContent) error {
	if content.ID == uuid.Nil {
		content.ID = uuid.New()
	}
	if content.CreatedAt.IsZero() {
		content.CreatedAt = time.Now()
	}
	row, err := toContentRow(content)
	if err != nil {
		return err
	}
	return q.db.WithContext(ctx).Create(row).Error
}

func (q *gormQueries) LatestGeneratedContent(ctx context.Context, documentID uuid.UUID) (*models.GeneratedContent, error) {
	var row contentRow
	err := q.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		return nil, notFound(err)
	}
	return q.withDocument(ctx, &row)
}

func (q *gormQueries) GetGeneratedContent(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error) {
	var row contentRow
	if err := q.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return q.withDocument(ctx, &row)
}

func (q *gormQueries) withDocument(ctx context.Context, row *contentRow) (*models.GeneratedContent, error) {
	content, err := row.model()
	if err != nil {
		return nil, err
	}
	var doc documentRow
	if err := q.db.WithContext(ctx).First(&doc, "id = ?", row.DocumentID).Error; err != nil {
		return nil, notFound(err)
	}
	content.Document = doc.model()
	return content, nil
}

// Usage statistics

func (q *gormQueries) RecordUsage(ctx context.Context, userID uuid.UUID, at time.Time, delta models.UsageDelta) error {
	db := q.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total_documents":    gorm.Expr("total_documents + ?", delta.Documents),
			"cache_hits":         gorm.Expr("cache_hits + ?", delta.CacheHits),
			"cache_misses":       gorm.Expr("cache_misses + ?", delta.CacheMisses),
			"total_tokens_saved": gorm.Expr("total_tokens_saved + ?", delta.TokensSaved),
			"updated_at":         at,
		}),
	}).Create(&usageStatsRow{
		ID:               1,
		TotalDocuments:   delta.Documents,
		CacheHits:        delta.CacheHits,
		CacheMisses:      delta.CacheMisses,
		TotalTokensSaved: delta.TokensSaved,
		UpdatedAt:        at,
	}).Error
	if err != nil {
		return err
	}

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "year"}, {Name: "month"}},
		DoUpdates: clause.Assignments(map[string]any{
			"documents_processed": gorm.Expr("documents_processed + ?", delta.Documents),
			"cache_hits":          gorm.Expr("cache_hits + ?", delta.CacheHits),
			"cache_misses":        gorm.Expr("cache_misses + ?", delta.CacheMisses),
			"tokens_saved":        gorm.Expr("tokens_saved + ?", delta.TokensSaved),
		}),
	}).Create(&userUsageRow{
		UserID:             userID,
		Year:               at.Year(),
		Month:              int(at.Month()),
		DocumentsProcessed: delta.Documents,
		CacheHits:          delta.CacheHits,
		CacheMisses:        delta.CacheMisses,
		TokensSaved:        delta.TokensSaved,
	}).Error
}

func (q *gormQueries) GetUsageStats(ctx context.Context) (*models.UsageStats, error) {
	var row usageStatsRow
	if err := q.db.WithContext(ctx).First(&row, "id = ?", 1).Error; err != nil {
		return nil, notFound(err)
	}
	return &models.UsageStats{
		TotalDocuments:   row.TotalDocuments,
		CacheHits:        row.CacheHits,
		CacheMisses:      row.CacheMisses,
		TotalTokensSaved: row.TotalTokensSaved,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

func (q *gormQueries) GetUserUsage(ctx context.Context, userID uuid.UUID, year, month int) (*models.UserUsage, error) {
	var row userUsageRow
	err := q.db.WithContext(ctx).
		First(&row, "user_id = ? AND year = ? AND month = ?", userID, year, month).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &models.UserUsage{
		UserID:             row.UserID,
		Year:               row.Year,
		Month:              row.Month,
		DocumentsProcessed: row.DocumentsProcessed,
		CacheHits:          row.CacheHits,
		CacheMisses:        row.CacheMisses,
		TokensSaved:        row.TokensSaved,
	}, nil
}

// Subscriptions

func (q *gormQueries) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	row := &subscriptionRow{
		ID:        sub.ID,
		UserID:    sub.UserID,
		PlanType:  string(sub.PlanType),
		Status:    string(sub.Status),
		PaymentID: sub.PaymentID,
		StartDate: sub.StartDate,
		EndDate:   sub.EndDate,
	}
	if err := q.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	sub.CreatedAt = row.CreatedAt
	return nil
}

func (q *gormQueries) GetSubscriptionByPayment(ctx context.Context, paymentID string) (*models.Subscription, error) {
	var row subscriptionRow
	if err := q.db.WithContext(ctx).First(&row, "payment_id = ?", paymentID).Error; err != nil {
		return nil, notFound(err)
	}
	return row.model(), nil
}

func (q *gormQueries) CancelActiveSubscriptions(ctx context.Context, userID uuid.UUID) error {
	return q.db.WithContext(ctx).Model(&subscriptionRow{}).
		Where("user_id = ? AND status = ?", userID, string(models.SubscriptionActive)).
		Update("status", string(models.SubscriptionCancelled)).Error
}

func (q *gormQueries) ListExpiredSubscriptions(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	var rows []subscriptionRow
	err := q.db.WithContext(ctx).
		Where("status = ? AND end_date IS NOT NULL AND end_date < ?", string(models.SubscriptionActive), now).
		Order("end_date").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	subs := make([]models.Subscription, 0, len(rows))
	for i := range rows {
		subs = append(subs, *rows[i].model())
	}
	return subs, nil
}

func (q *gormQueries) SetSubscriptionStatus(ctx context.Context, id uuid.UUID, status models.SubscriptionStatus) error {
	return q.db.WithContext(ctx).Model(&subscriptionRow{}).Where("id = ?", id).Update("status", string(status)).Error
}
