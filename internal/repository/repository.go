package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

// ErrNotFound is returned by every backend when a row does not exist.
var ErrNotFound = errors.New("record not found")

// Queries is the data API shared by auto-commit and transactional handles.
type Queries interface {
	// Users
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// GetUserForUpdate locks the row until the surrounding transaction ends.
	GetUserForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateTokenAccount(ctx context.Context, user *models.User) error

	// Documents and generated content
	FindDocument(ctx context.Context, key models.CacheKey) (*models.Document, error)
	CreateDocument(ctx context.Context, doc *models.Document) error
	TouchDocument(ctx context.Context, id uuid.UUID, at time.Time) error
	ListDocuments(ctx context.Context, userID uuid.UUID, limit int) ([]models.Document, error)
	DeleteDocumentsAccessedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteGeneratedContent(ctx context.Context, documentID uuid.UUID) error
	CreateGeneratedContent(ctx context.Context, content *models.GeneratedContent) error
	LatestGeneratedContent(ctx context.Context, documentID uuid.UUID) (*models.GeneratedContent, error)
	GetGeneratedContent(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error)

	// Usage statistics
	RecordUsage(ctx context.Context, userID uuid.UUID, at time.Time, delta models.UsageDelta) error
	GetUsageStats(ctx context.Context) (*models.UsageStats, error)
	GetUserUsage(ctx context.Context, userID uuid.UUID, year, month int) (*models.UserUsage, error)

	// Subscriptions
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	GetSubscriptionByPayment(ctx context.Context, paymentID string) (*models.Subscription, error)
	CancelActiveSubscriptions(ctx context.Context, userID uuid.UUID) error
	ListExpiredSubscriptions(ctx context.Context, now time.Time) ([]models.Subscription, error)
	SetSubscriptionStatus(ctx context.Context, id uuid.UUID, status models.SubscriptionStatus) error
}

// Store adds a transaction boundary to Queries. fn's Queries must not escape fn.
type Store interface {
	Queries
	WithTx(ctx context.Context, fn func(q Queries) error) error
}
