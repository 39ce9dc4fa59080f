package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
	"github.com/tigerfox1974/StudyBuddy/internal/repository"
)

const minExtractedChars = 50

// UploadRequest is one document submitted for processing. Extension defaults
// to the filename's extension.
type UploadRequest struct {
	UserID    uuid.UUID    `json:"user_id"`
	Filename  string       `json:"filename" validate:"required,max=255"`
	Extension string       `json:"extension" validate:"omitempty,max=10"`
	Data      []byte       `json:"-"`
	Level     models.Level `json:"level" validate:"omitempty,oneof=elementary middle_school high_school university exam_prep"`
	Role      models.Role  `json:"role" validate:"omitempty,oneof=student teacher"`
	Language  string       `json:"language" validate:"omitempty,max=32"`
}

type UploadResult struct {
	Cached          bool                                    `json:"cached"`
	Content         *models.GeneratedContent                `json:"content"`
	TokensCharged   int                                     `json:"tokens_charged"`
	TokensRemaining int                                     `json:"tokens_remaining"`
	Trimmed         map[models.ArtifactKind]models.TrimInfo `json:"trimmed,omitempty"`
}

type ExportCheck struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message,omitempty"`
	Cost    int    `json:"cost"`
}

type WorkflowConfig struct {
	MaxUploadBytes int64
	MaxInputTokens int
	UploadDir      string
}

type WorkflowDeps struct {
	Store     repository.Store
	Ledger    *TokenLedger
	Cache     *ContentCache
	Extractor TextExtractor
	Generator *Generator
	Progress  ProgressPublisher
	Locker    Locker
	Log       *slog.Logger
}

// ProcessingWorkflow runs an upload from raw bytes to a stored, billed study pack.
type ProcessingWorkflow struct {
	store     repository.Store
	ledger    *TokenLedger
	cache     *ContentCache
	extractor TextExtractor
	generator *Generator
	progress  ProgressPublisher
	locker    Locker
	cfg       WorkflowConfig
	log       *slog.Logger
}

func NewProcessingWorkflow(deps WorkflowDeps, cfg WorkflowConfig) *ProcessingWorkflow {
	w := &ProcessingWorkflow{
		store:     deps.Store,
		ledger:    deps.Ledger,
		cache:     deps.Cache,
		extractor: deps.Extractor,
		generator: deps.Generator,
		progress:  deps.Progress,
		locker:    deps.Locker,
		cfg:       cfg,
		log:       deps.Log,
	}
	if w.ledger == nil {
		w.ledger = NewTokenLedger(nil)
	}
	if w.cache == nil {
		w.cache = NewContentCache(deps.Store, w.ledger.Now)
	}
	if w.extractor == nil {
		w.extractor = NewFileExtractService()
	}
	if w.progress == nil {
		w.progress = NopPublisher{}
	}
	if w.locker == nil {
		w.locker = NopLocker{}
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	if w.cfg.UploadDir == "" {
		w.cfg.UploadDir = os.TempDir()
	}
	return w
}

func (w *ProcessingWorkflow) publish(ctx context.Context, userID uuid.UUID, ev models.ProgressEvent) {
	if err := w.progress.Publish(ctx, userID, ev); err != nil {
		w.log.Warn("progress publish failed", "user_id", userID, "step", ev.Step, "error", err)
	}
}

// ProcessUpload validates, fingerprints and either serves the cached study pack
// or generates, stores and bills a new one. Nothing is charged unless the
// content is committed in the same transaction.
func (w *ProcessingWorkflow) ProcessUpload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.UserID == uuid.Nil {
		return nil, &ValidationError{Fields: map[string]string{"user_id": "is required"}}
	}
	if req.Extension == "" {
		req.Extension = filepath.Ext(req.Filename)
	}
	if req.Level == "" {
		req.Level = models.LevelHighSchool
	}
	if req.Role == "" {
		req.Role = models.RoleStudent
	}
	ext := NormalizeExtension(req.Extension)
	size := int64(len(req.Data))

	if size == 0 {
		return nil, &RejectedInputError{Message: "The uploaded file is empty."}
	}
	if w.cfg.MaxUploadBytes > 0 && size > w.cfg.MaxUploadBytes {
		return nil, &RejectedInputError{Message: fmt.Sprintf(
			"File is too large: the maximum upload size is %d MB.", w.cfg.MaxUploadBytes/(1024*1024))}
	}

	// 1. Signature
	if err := ValidateFileSignature(req.Data, ext); err != nil {
		return nil, err
	}

	// 2. Fingerprint
	hash := Fingerprint(req.Data)
	w.publish(ctx, req.UserID, models.ProgressEvent{Step: StepValidated, FileHash: hash})

	// 3. User
	user, err := w.store.GetUser(ctx, req.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Message: "User not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	// 4. Cache
	key := models.CacheKey{FileHash: hash, Level: req.Level, Role: req.Role, UserID: user.ID}
	cached, err := w.cache.Lookup(ctx, key)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		return w.serveHit(ctx, user, cached), nil
	}
	w.publish(ctx, user.ID, models.ProgressEvent{Step: StepCacheMiss, FileHash: hash})

	// 5. Quota, cheapest checks first
	plan := PlanFor(user.Plan)
	charge, err := w.checkQuota(ctx, user, plan, size)
	if err != nil {
		return nil, err
	}

	release, err := w.locker.Acquire(ctx, key)
	if errors.Is(err, ErrLockHeld) {
		return nil, &ConflictError{Message: "This document is already being processed. Please wait for it to finish."}
	}
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := w.generateAndCommit(ctx, req, ext, key, plan, charge)
	if err != nil {
		w.publish(ctx, user.ID, models.ProgressEvent{Step: StepFailed, FileHash: hash, Message: err.Error()})
		return nil, err
	}

	w.log.Info("document processed",
		"user_id", user.ID,
		"file_hash", hash,
		"tokens_charged", result.TokensCharged,
		"tokens_remaining", result.TokensRemaining,
	)
	docID := result.Content.DocumentID
	w.publish(ctx, user.ID, models.ProgressEvent{Step: StepDone, FileHash: hash, DocumentID: &docID})
	return result, nil
}

func (w *ProcessingWorkflow) serveHit(ctx context.Context, user *models.User, content *models.GeneratedContent) *UploadResult {
	hash := content.Document.FileHash
	w.publish(ctx, user.ID, models.ProgressEvent{Step: StepCacheHit, FileHash: hash, Cached: true})

	// stats are best effort; the cached content is already in hand
	if err := w.cache.RecordHit(ctx, w.store, user.ID, content.TokensUsed); err != nil {
		w.log.Warn("record cache hit failed", "user_id", user.ID, "file_hash", hash, "error", err)
	}

	w.log.Info("cache hit", "user_id", user.ID, "file_hash", hash, "tokens_saved", content.TokensUsed)
	docID := content.DocumentID
	w.publish(ctx, user.ID, models.ProgressEvent{Step: StepDone, FileHash: hash, DocumentID: &docID, Cached: true})

	return &UploadResult{
		Cached:          true,
		Content:         content,
		TokensRemaining: user.TokensRemaining,
	}
}

// checkQuota applies plan file size, the monthly upload cap and affordability,
// in that order. It returns the whole-token charge. Nothing is written here:
// a due refresh is only previewed, and the locked commit persists it.
func (w *ProcessingWorkflow) checkQuota(ctx context.Context, user *models.User, plan Plan, size int64) (int, error) {
	if size > plan.MaxFileSizeBytes() {
		return 0, &QuotaExceededError{
			Reason: QuotaFileSize,
			Message: fmt.Sprintf("File is too large for the %s plan: the limit is %d MB. Upgrade your plan to upload larger files.",
				plan.Name, plan.MaxFileSizeMB),
		}
	}

	if err := w.checkUploadCap(ctx, w.store, user.ID, plan); err != nil {
		return 0, err
	}

	charge := ChargeTokens(w.ledger.CalculateCost(nil, false, plan))
	preview := *user
	w.ledger.RefreshIfDue(&preview)
	if aff := w.ledger.CheckAffordability(&preview, charge); !aff.OK {
		return 0, &QuotaExceededError{Reason: QuotaTokens, Message: aff.Message, Required: charge, Available: aff.Available}
	}
	return charge, nil
}

// checkUploadCap enforces the plan's monthly upload limit, if it has one.
func (w *ProcessingWorkflow) checkUploadCap(ctx context.Context, q repository.Queries, userID uuid.UUID, plan Plan) error {
	if plan.MonthlyUploadLimit == nil {
		return nil
	}

	now := w.ledger.Now()
	used := 0
	usage, err := q.GetUserUsage(ctx, userID, now.Year(), int(now.Month()))
	switch {
	case err == nil:
		used = usage.DocumentsProcessed
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("load monthly usage: %w", err)
	}
	if used >= *plan.MonthlyUploadLimit {
		return &QuotaExceededError{
			Reason:    QuotaMonthlyUpload,
			Message:   fmt.Sprintf("You have reached the %s plan's limit of %d uploads this month.", plan.Name, *plan.MonthlyUploadLimit),
			Required:  1,
			Available: 0,
		}
	}
	return nil
}

func (w *ProcessingWorkflow) generateAndCommit(
	ctx context.Context,
	req UploadRequest,
	ext string,
	key models.CacheKey,
	plan Plan,
	charge int,
) (*UploadResult, error) {
	started := time.Now()

	w.publish(ctx, key.UserID, models.ProgressEvent{Step: StepExtracting, FileHash: key.FileHash})
	text, err := w.extract(ctx, req.Data, ext)
	if err != nil {
		return nil, err
	}
	text, truncated := TruncateText(text, w.cfg.MaxInputTokens)
	if truncated {
		w.log.Info("input truncated", "user_id", key.UserID, "file_hash", key.FileHash, "max_tokens", w.cfg.MaxInputTokens)
	}

	w.publish(ctx, key.UserID, models.ProgressEvent{Step: StepGenerating, FileHash: key.FileHash})
	gen, err := w.generator.Generate(ctx, GenerateRequest{
		Text:     text,
		Level:    key.Level,
		Role:     key.Role,
		Language: req.Language,
	})
	if err != nil {
		var genErr *GenerationError
		if !errors.As(err, &genErr) {
			err = &GenerationError{Err: err}
		}
		return nil, err
	}

	artifacts := gen.Artifacts
	trimmed := trimToPlan(&artifacts, plan)

	w.publish(ctx, key.UserID, models.ProgressEvent{Step: StepSaving, FileHash: key.FileHash})
	entry := CacheEntry{
		Key:            key,
		Filename:       req.Filename,
		FileType:       ext,
		FileSize:       int64(len(req.Data)),
		Artifacts:      artifacts,
		ModelUsed:      gen.Model,
		TokensUsed:     estimateUsage(text, artifacts),
		ProcessingTime: time.Since(started).Seconds(),
	}

	var (
		content   *models.GeneratedContent
		remaining int
	)
	err = w.store.WithTx(ctx, func(q repository.Queries) error {
		user, err := q.GetUserForUpdate(ctx, key.UserID)
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}
		// the balance, plan and usage may have moved while the model was running
		w.ledger.RefreshIfDue(user)
		if err := w.checkUploadCap(ctx, q, user.ID, PlanFor(user.Plan)); err != nil {
			return err
		}
		if aff := w.ledger.CheckAffordability(user, charge); !aff.OK {
			return &QuotaExceededError{Reason: QuotaTokens, Message: aff.Message, Required: charge, Available: aff.Available}
		}

		content, err = w.cache.Store(ctx, q, entry)
		if err != nil {
			return err
		}

		w.ledger.Deduct(user, charge)
		if err := q.UpdateTokenAccount(ctx, user); err != nil {
			return fmt.Errorf("update token account: %w", err)
		}
		if err := w.cache.RecordMiss(ctx, q, user.ID); err != nil {
			return fmt.Errorf("record usage: %w", err)
		}
		remaining = user.TokensRemaining
		return nil
	})
	if err != nil {
		var quotaErr *QuotaExceededError
		if errors.As(err, &quotaErr) {
			return nil, quotaErr
		}
		w.log.Error("commit failed", "user_id", key.UserID, "file_hash", key.FileHash, "error", err)
		return nil, &CommitError{Err: err}
	}

	return &UploadResult{
		Cached:          false,
		Content:         content,
		TokensCharged:   charge,
		TokensRemaining: remaining,
		Trimmed:         trimmed,
	}, nil
}

// extract writes data to a temp file for the extractor and always removes it.
func (w *ProcessingWorkflow) extract(ctx context.Context, data []byte, ext string) (string, error) {
	f, err := os.CreateTemp(w.cfg.UploadDir, "upload-*."+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	text, err := w.extractor.ExtractText(ctx, path, ext)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &RejectedInputError{Message: fmt.Sprintf("Could not read text from the file: %v", err)}
	}
	if len([]rune(strings.TrimSpace(text))) < minExtractedChars {
		return "", &RejectedInputError{Message: "The file does not contain enough text to study from."}
	}
	return text, nil
}

// trimToPlan cuts each question list to the plan's per-type cap.
func trimToPlan(a *models.Artifacts, plan Plan) map[models.ArtifactKind]models.TrimInfo {
	if plan.MaxQuestionsPerType == nil {
		return nil
	}
	perType := *plan.MaxQuestionsPerType
	trimmed := map[models.ArtifactKind]models.TrimInfo{}

	note := func(kind models.ArtifactKind, n int) int {
		if n <= perType {
			return n
		}
		trimmed[kind] = models.TrimInfo{Generated: n, Shown: perType, Limit: perType}
		return perType
	}
	a.MultipleChoice = a.MultipleChoice[:note(models.ArtifactMultipleChoice, len(a.MultipleChoice))]
	a.ShortAnswer = a.ShortAnswer[:note(models.ArtifactShortAnswer, len(a.ShortAnswer))]
	a.FillBlank = a.FillBlank[:note(models.ArtifactFillBlank, len(a.FillBlank))]
	a.TrueFalse = a.TrueFalse[:note(models.ArtifactTrueFalse, len(a.TrueFalse))]

	if len(trimmed) == 0 {
		return nil
	}
	return trimmed
}

// estimateUsage approximates the model tokens a regeneration would cost.
func estimateUsage(input string, a models.Artifacts) int {
	out, _ := json.Marshal(a)
	return EstimateTokens(input) + len(out)/charsPerToken
}

// GetTokenInfo returns the user's balance after any due monthly refresh.
func (w *ProcessingWorkflow) GetTokenInfo(ctx context.Context, userID uuid.UUID) (*models.TokenInfo, error) {
	var info *models.TokenInfo
	err := w.store.WithTx(ctx, func(q repository.Queries) error {
		user, err := q.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if w.ledger.RefreshIfDue(user) {
			if err := q.UpdateTokenAccount(ctx, user); err != nil {
				return err
			}
		}
		info = w.ledger.Info(user)
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Message: "User not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("get token info: %w", err)
	}
	return info, nil
}

// CanExport reports whether the user can pay for one export. It does not deduct.
func (w *ProcessingWorkflow) CanExport(ctx context.Context, userID uuid.UUID) (*ExportCheck, error) {
	var check *ExportCheck
	err := w.store.WithTx(ctx, func(q repository.Queries) error {
		user, err := q.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		check, err = checkExport(ctx, q, w.ledger, user)
		return err
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Message: "User not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("check export: %w", err)
	}
	return check, nil
}

// checkExport runs on a locked user row and persists a refresh if one fired.
func checkExport(ctx context.Context, q repository.Queries, ledger *TokenLedger, user *models.User) (*ExportCheck, error) {
	cost := PlanFor(user.Plan).ExportCostTokens
	if cost == 0 {
		return &ExportCheck{Allowed: true, Cost: 0}, nil
	}
	if ledger.RefreshIfDue(user) {
		if err := q.UpdateTokenAccount(ctx, user); err != nil {
			return nil, fmt.Errorf("persist token refresh: %w", err)
		}
	}
	aff := ledger.CheckAffordability(user, cost)
	if !aff.OK {
		return &ExportCheck{Allowed: false, Message: aff.Message, Cost: cost}, nil
	}
	return &ExportCheck{Allowed: true, Cost: cost}, nil
}

// History lists the user's most recently used documents.
func (w *ProcessingWorkflow) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.Document, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	docs, err := w.store.ListDocuments(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}
