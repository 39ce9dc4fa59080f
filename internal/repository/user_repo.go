package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

const userColumns = `id, email, password_hash, full_name, subscription_plan, tokens_remaining,
	trial_ends_at, last_token_refresh, created_at`

func (r *pgQueries) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, full_name, subscription_plan, tokens_remaining, trial_ends_at, last_token_refresh, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Plan == "" {
		user.Plan = models.PlanFree
	}

	user.CreatedAt = stamp(user.CreatedAt)

	_, err := r.db.Exec(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FullName, string(user.Plan),
		user.TokensRemaining, user.TrialEndsAt, user.LastTokenRefresh, user.CreatedAt,
	)
	return err
}

func (r *pgQueries) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *pgQueries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *pgQueries) GetUserForUpdate(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.scanUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
}

func (r *pgQueries) scanUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var plan string
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FullName, &plan, &user.TokensRemaining,
		&user.TrialEndsAt, &user.LastTokenRefresh, &user.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	user.Plan = models.PlanType(plan)
	return user, nil
}

func (r *pgQueries) UpdateTokenAccount(ctx context.Context, user *models.User) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET subscription_plan = $1, tokens_remaining = $2, trial_ends_at = $3, last_token_refresh = $4
		WHERE id = $5`,
		string(user.Plan), user.TokensRemaining, user.TrialEndsAt, user.LastTokenRefresh, user.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
