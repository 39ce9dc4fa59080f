package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

const subscriptionColumns = `id, user_id, plan_type, status, payment_id, start_date, end_date, created_at`

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var plan, status string
	if err := row.Scan(&sub.ID, &sub.UserID, &plan, &status, &sub.PaymentID, &sub.StartDate, &sub.EndDate, &sub.CreatedAt); err != nil {
		return nil, err
	}
	sub.PlanType = models.PlanType(plan)
	sub.Status = models.SubscriptionStatus(status)
	return sub, nil
}

func (r *pgQueries) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	sub.CreatedAt = stamp(sub.CreatedAt)
	_, err := r.db.Exec(ctx, `
		INSERT INTO subscriptions (id, user_id, plan_type, status, payment_id, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sub.ID, sub.UserID, string(sub.PlanType), string(sub.Status), sub.PaymentID, sub.StartDate, sub.EndDate,
		sub.CreatedAt,
	)
	return err
}

func (r *pgQueries) GetSubscriptionByPayment(ctx context.Context, paymentID string) (*models.Subscription, error) {
	sub, err := scanSubscription(r.db.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE payment_id = $1`, paymentID))
	if err != nil {
		return nil, notFound(err)
	}
	return sub, nil
}

func (r *pgQueries) CancelActiveSubscriptions(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET status = 'cancelled' WHERE user_id = $1 AND status = 'active'`, userID)
	return err
}

func (r *pgQueries) ListExpiredSubscriptions(ctx context.Context, now time.Time) ([]models.Subscription, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE status = 'active' AND end_date IS NOT NULL AND end_date < $1
		ORDER BY end_date`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subs := []models.Subscription{}
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (r *pgQueries) SetSubscriptionStatus(ctx context.Context, id uuid.UUID, status models.SubscriptionStatus) error {
	_, err := r.db.Exec(ctx, `UPDATE subscriptions SET status = $1 WHERE id = $2`, string(status), id)
	return err
}
