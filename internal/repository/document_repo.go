package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

const documentColumns = `id, file_hash, filename, file_type, file_size, level, role, user_id, created_at, last_accessed`

func scanDocument(row pgx.Row) (*models.Document, error) {
	doc := &models.Document{}
	var level, role string
	err := row.Scan(
		&doc.ID, &doc.FileHash, &doc.Filename, &doc.FileType, &doc.FileSize,
		&level, &role, &doc.UserID, &doc.CreatedAt, &doc.LastAccessed,
	)
	if err != nil {
		return nil, err
	}
	doc.Level = models.Level(level)
	doc.Role = models.Role(role)
	return doc, nil
}

func (r *pgQueries) FindDocument(ctx context.Context, key models.CacheKey) (*models.Document, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE file_hash = $1 AND level = $2 AND role = $3 AND user_id = $4
		ORDER BY created_at DESC
		LIMIT 1`,
		key.FileHash, string(key.Level), string(key.Role), key.UserID,
	)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, notFound(err)
	}
	return doc, nil
}

func (r *pgQueries) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	doc.CreatedAt = stamp(doc.CreatedAt)
	if doc.LastAccessed.IsZero() {
		doc.LastAccessed = doc.CreatedAt
	}
	doc.LastAccessed = doc.LastAccessed.UTC()

	_, err := r.db.Exec(ctx, `
		INSERT INTO documents (id, file_hash, filename, file_type, file_size, level, role, user_id, created_at, last_accessed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.FileHash, doc.Filename, doc.FileType, doc.FileSize,
		string(doc.Level), string(doc.Role), doc.UserID, doc.CreatedAt, doc.LastAccessed,
	)
	return err
}

func (r *pgQueries) TouchDocument(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE documents SET last_accessed = $1 WHERE id = $2`, at, id)
	return err
}

func (r *pgQueries) ListDocuments(ctx context.Context, userID uuid.UUID, limit int) ([]models.Document, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *pgQueries) DeleteDocumentsAccessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE last_accessed < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *pgQueries) DeleteGeneratedContent(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM generated_content WHERE document_id = $1`, documentID)
	return err
}

func (r *pgQueries) CreateGeneratedContent(ctx context.Context, content *models.GeneratedContent) error {
	if content.ID == uuid.Nil {
		content.ID = uuid.New()
	}

	a := content.Artifacts
	mc, err := json.Marshal(a.MultipleChoice)
	if err != nil {
		return fmt.Errorf("failed to encode multiple choice: %w", err)
	}
	sa, err := json.Marshal(a.ShortAnswer)
	if err != nil {
		return fmt.Errorf("failed to encode short answer: %w", err)
	}
	fb, err := json.Marshal(a.FillBlank)
	if err != nil {
		return fmt.Errorf("failed to encode fill blank: %w", err)
	}
	tf, err := json.Marshal(a.TrueFalse)
	if err != nil {
		return fmt.Errorf("failed to encode true/false: %w", err)
	}
	fc, err := json.Marshal(a.Flashcards)
	if err != nil {
		return fmt.Errorf("failed to encode flashcards: %w", err)
	}
	dg, err := json.Marshal(a.Degraded)
	if err != nil {
		return fmt.Errorf("failed to encode degraded list: %w", err)
	}

	content.CreatedAt = stamp(content.CreatedAt)
	_, err = r.db.Exec(ctx, `
		INSERT INTO generated_content
			(id, document_id, summary, multiple_choice, short_answer, fill_blank, true_false, flashcards,
			 degraded, model_used, tokens_used, processing_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		content.ID, content.DocumentID, a.Summary, mc, sa, fb, tf, fc, dg,
		content.ModelUsed, content.TokensUsed, content.ProcessingTime, content.CreatedAt,
	)
	return err
}

const contentSelect = `
	SELECT c.id, c.document_id, c.summary, c.multiple_choice, c.short_answer, c.fill_blank, c.true_false,
		c.flashcards, c.degraded, c.model_used, c.tokens_used, c.processing_time, c.created_at,
		d.id, d.file_hash, d.filename, d.file_type, d.file_size, d.level, d.role, d.user_id, d.created_at, d.last_accessed
	FROM generated_content c
	JOIN documents d ON d.id = c.document_id`

func scanContent(row pgx.Row) (*models.GeneratedContent, error) {
	c := &models.GeneratedContent{Document: &models.Document{}}
	var mc, sa, fb, tf, fc, dg []byte
	var level, role string
	err := row.Scan(
		&c.ID, &c.DocumentID, &c.Artifacts.Summary, &mc, &sa, &fb, &tf, &fc, &dg,
		&c.ModelUsed, &c.TokensUsed, &c.ProcessingTime, &c.CreatedAt,
		&c.Document.ID, &c.Document.FileHash, &c.Document.Filename, &c.Document.FileType, &c.Document.FileSize,
		&level, &role, &c.Document.UserID, &c.Document.CreatedAt, &c.Document.LastAccessed,
	)
	if err != nil {
		return nil, err
	}
	c.Document.Level = models.Level(level)
	c.Document.Role = models.Role(role)

	for _, col := range []struct {
		raw  []byte
		dest any
	}{
		{mc, &c.Artifacts.MultipleChoice},
		{sa, &c.Artifacts.ShortAnswer},
		{fb, &c.Artifacts.FillBlank},
		{tf, &c.Artifacts.TrueFalse},
		{fc, &c.Artifacts.Flashcards},
		{dg, &c.Artifacts.Degraded},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dest); err != nil {
			return nil, fmt.Errorf("failed to decode generated content %s: %w", c.ID, err)
		}
	}
	return c, nil
}

func (r *pgQueries) LatestGeneratedContent(ctx context.Context, documentID uuid.UUID) (*models.GeneratedContent, error) {
	c, err := scanContent(r.db.QueryRow(ctx, contentSelect+`
		WHERE c.document_id = $1
		ORDER BY c.created_at DESC
		LIMIT 1`, documentID))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

func (r *pgQueries) GetGeneratedContent(ctx context.Context, id uuid.UUID) (*models.GeneratedContent, error) {
	c, err := scanContent(r.db.QueryRow(ctx, contentSelect+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}
