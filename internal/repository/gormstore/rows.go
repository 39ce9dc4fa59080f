package gormstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

type userRow struct {
	ID               uuid.UUID `gorm:"type:text;primaryKey"`
	Email            string    `gorm:"uniqueIndex;not null"`
	PasswordHash     string    `gorm:"not null"`
	FullName         string
	SubscriptionPlan string `gorm:"not null;default:free"`
	TokensRemaining  int    `gorm:"not null;default:0"`
	TrialEndsAt      *time.Time
	LastTokenRefresh *time.Time
	CreatedAt        time.Time
}

func (userRow) TableName() string { return "users" }

type documentRow struct {
	ID           uuid.UUID `gorm:"type:text;primaryKey"`
	FileHash     string    `gorm:"size:32;not null;index:idx_documents_cache_key,priority:1"`
	Filename     string    `gorm:"not null"`
	FileType     string    `gorm:"not null"`
	FileSize     int64     `gorm:"not null"`
	Level        string    `gorm:"not null;index:idx_documents_cache_key,priority:2"`
	Role         string    `gorm:"not null;index:idx_documents_cache_key,priority:3"`
	UserID       uuid.UUID `gorm:"type:text;not null;index:idx_documents_cache_key,priority:4"`
	CreatedAt    time.Time
	LastAccessed time.Time `gorm:"index"`
}

func (documentRow) TableName() string { return "documents" }

type contentRow struct {
	ID             uuid.UUID `gorm:"type:text;primaryKey"`
	DocumentID     uuid.UUID `gorm:"type:text;not null;index"`
	Summary        string
	MultipleChoice datatypes.JSON
	ShortAnswer    datatypes.JSON
	FillBlank      datatypes.JSON
	TrueFalse      datatypes.JSON
	Flashcards     datatypes.JSON
	Degraded       datatypes.JSON
	ModelUsed      string
	TokensUsed     int
	ProcessingTime float64
	CreatedAt      time.Time
}

func (contentRow) TableName() string { return "generated_content" }

type subscriptionRow struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey"`
	UserID    uuid.UUID `gorm:"type:text;not null;index"`
	PlanType  string    `gorm:"not null"`
	Status    string    `gorm:"not null;index"`
	PaymentID string    `gorm:"not null;uniqueIndex"`
	StartDate time.Time
	EndDate   *time.Time
	CreatedAt time.Time
}

func (subscriptionRow) TableName() string { return "subscriptions" }

type usageStatsRow struct {
	ID               int `gorm:"primaryKey;autoIncrement:false"`
	TotalDocuments   int
	CacheHits        int
	CacheMisses      int
	TotalTokensSaved int
	UpdatedAt        time.Time
}

func (usageStatsRow) TableName() string { return "usage_stats" }

type userUsageRow struct {
	UserID             uuid.UUID `gorm:"type:text;primaryKey"`
	Year               int       `gorm:"primaryKey;autoIncrement:false"`
	Month              int       `gorm:"primaryKey;autoIncrement:false"`
	DocumentsProcessed int
	CacheHits          int
	CacheMisses        int
	TokensSaved        int
}

func (userUsageRow) TableName() string { return "user_usage" }

var allRows = []any{
	&userRow{},
	&documentRow{},
	&contentRow{},
	&subscriptionRow{},
	&usageStatsRow{},
	&userUsageRow{},
}

func toUserRow(u *models.User) *userRow {
	return &userRow{
		ID:               u.ID,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		FullName:         u.FullName,
		SubscriptionPlan: string(u.Plan),
		TokensRemaining:  u.TokensRemaining,
		TrialEndsAt:      u.TrialEndsAt,
		LastTokenRefresh: u.LastTokenRefresh,
		CreatedAt:        u.CreatedAt,
	}
}

func (r *userRow) model() *models.User {
	return &models.User{
		ID:               r.ID,
		Email:            r.Email,
		PasswordHash:     r.PasswordHash,
		FullName:         r.FullName,
		Plan:             models.PlanType(r.SubscriptionPlan),
		TokensRemaining:  r.TokensRemaining,
		TrialEndsAt:      r.TrialEndsAt,
		LastTokenRefresh: r.LastTokenRefresh,
		CreatedAt:        r.CreatedAt,
	}
}

func toDocumentRow(d *models.Document) *documentRow {
	return &documentRow{
		ID:           d.ID,
		FileHash:     d.FileHash,
		Filename:     d.Filename,
		FileType:     d.FileType,
		FileSize:     d.FileSize,
		Level:        string(d.Level),
		Role:         string(d.Role),
		UserID:       d.UserID,
		CreatedAt:    d.CreatedAt,
		LastAccessed: d.LastAccessed,
	}
}

func (r *documentRow) model() *models.Document {
	return &models.Document{
		ID:           r.ID,
		FileHash:     r.FileHash,
		Filename:     r.Filename,
		FileType:     r.FileType,
		FileSize:     r.FileSize,
		Level:        models.Level(r.Level),
		Role:         models.Role(r.Role),
		UserID:       r.UserID,
		CreatedAt:    r.CreatedAt,
		LastAccessed: r.LastAccessed,
	}
}

func toContentRow(c *models.GeneratedContent) (*contentRow, error) {
	row := &contentRow{
		ID:             c.ID,
		DocumentID:     c.DocumentID,
		Summary:        c.Artifacts.Summary,
		ModelUsed:      c.ModelUsed,
		TokensUsed:     c.TokensUsed,
		ProcessingTime: c.ProcessingTime,
		CreatedAt:      c.CreatedAt,
	}
	for _, col := range []struct {
		dest *datatypes.JSON
		src  any
	}{
		{&row.MultipleChoice, c.Artifacts.MultipleChoice},
		{&row.ShortAnswer, c.Artifacts.ShortAnswer},
		{&row.FillBlank, c.Artifacts.FillBlank},
		{&row.TrueFalse, c.Artifacts.TrueFalse},
		{&row.Flashcards, c.Artifacts.Flashcards},
		{&row.Degraded, c.Artifacts.Degraded},
	} {
		raw, err := json.Marshal(col.src)
		if err != nil {
			return nil, fmt.Errorf("failed to encode generated content: %w", err)
		}
		*col.dest = datatypes.JSON(raw)
	}
	return row, nil
}

func (r *contentRow) model() (*models.GeneratedContent, error) {
	c := &models.GeneratedContent{
		ID:             r.ID,
		DocumentID:     r.DocumentID,
		ModelUsed:      r.ModelUsed,
		TokensUsed:     r.TokensUsed,
		ProcessingTime: r.ProcessingTime,
		CreatedAt:      r.CreatedAt,
	}
	c.Artifacts.Summary = r.Summary
	for _, col := range []struct {
		raw  datatypes.JSON
		dest any
	}{
		{r.MultipleChoice, &c.Artifacts.MultipleChoice},
		{r.ShortAnswer, &c.Artifacts.ShortAnswer},
		{r.FillBlank, &c.Artifacts.FillBlank},
		{r.TrueFalse, &c.Artifacts.TrueFalse},
		{r.Flashcards, &c.Artifacts.Flashcards},
		{r.Degraded, &c.Artifacts.Degraded},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dest); err != nil {
			return nil, fmt.Errorf("failed to decode generated content %s: %w", r.ID, err)
		}
	}
	return c, nil
}

func (r *subscriptionRow) model() *models.Subscription {
	return &models.Subscription{
		ID:        r.ID,
		UserID:    r.UserID,
		PlanType:  models.PlanType(r.PlanType),
		Status:    models.SubscriptionStatus(r.Status),
		PaymentID: r.PaymentID,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		CreatedAt: r.CreatedAt,
	}
}
