package services

import (
	"fmt"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// RejectedInputError covers unsupported, mismatched, corrupt or empty uploads.
type RejectedInputError struct{ Message string }

func (e *RejectedInputError) Error() string { return e.Message }

type QuotaReason string

const (
	QuotaFileSize      QuotaReason = "file_size"
	QuotaTokens        QuotaReason = "insufficient_tokens"
	QuotaMonthlyUpload QuotaReason = "monthly_upload_limit"
)

// QuotaExceededError is returned before any billable work happens.
type QuotaExceededError struct {
	Reason    QuotaReason
	Message   string
	Required  int
	Available int
}

func (e *QuotaExceededError) Error() string { return e.Message }

// GenerationError wraps a provider failure. Nothing was charged or cached.
type GenerationError struct {
	Artifact models.ArtifactKind
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Artifact == "" {
		return fmt.Sprintf("content generation failed: %v", e.Err)
	}
	return fmt.Sprintf("content generation failed (%s): %v", e.Artifact, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// CommitError means the persist+deduct transaction rolled back.
type CommitError struct{ Err error }

func (e *CommitError) Error() string {
	return fmt.Sprintf("failed to save results, please retry: %v", e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
