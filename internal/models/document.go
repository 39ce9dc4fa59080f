package models

import (
	"time"

	"github.com/google/uuid"
)

type Level string

const (
	LevelElementary   Level = "elementary"
	LevelMiddleSchool Level = "middle_school"
	LevelHighSchool   Level = "high_school"
	LevelUniversity   Level = "university"
	LevelExamPrep     Level = "exam_prep"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// CacheKey identifies one cached generation: same bytes, same audience, same owner.
type CacheKey struct {
	FileHash string
	Level    Level
	Role     Role
	UserID   uuid.UUID
}

type Document struct {
	ID           uuid.UUID `json:"id"`
	FileHash     string    `json:"file_hash"`
	Filename     string    `json:"filename"`
	FileType     string    `json:"file_type"`
	FileSize     int64     `json:"file_size"`
	Level        Level     `json:"level"`
	Role         Role      `json:"role"`
	UserID       uuid.UUID `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
}

func (d *Document) Key() CacheKey {
	return CacheKey{FileHash: d.FileHash, Level: d.Level, Role: d.Role, UserID: d.UserID}
}

type GeneratedContent struct {
	ID             uuid.UUID `json:"id"`
	DocumentID     uuid.UUID `json:"document_id"`
	Artifacts      Artifacts `json:"artifacts"`
	ModelUsed      string    `json:"model_used"`
	TokensUsed     int       `json:"tokens_used"`
	ProcessingTime float64   `json:"processing_time"`
	CreatedAt      time.Time `json:"created_at"`

	Document *Document `json:"document,omitempty"`
}
