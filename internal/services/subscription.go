package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
	"github.com/tigerfox1974/StudyBuddy/internal/repository"
)

const subscriptionPeriod = 30 * 24 * time.Hour

// SubscriptionService is the boundary a payment callback calls into.
type SubscriptionService struct {
	store  repository.Store
	ledger *TokenLedger
	log    *slog.Logger
}

func NewSubscriptionService(store repository.Store, ledger *TokenLedger, log *slog.Logger) *SubscriptionService {
	if log == nil {
		log = slog.Default()
	}
	return &SubscriptionService{store: store, ledger: ledger, log: log}
}

// ActivateSubscription moves the user to plan and resets their balance to the
// plan's monthly allotment. Replaying the same paymentID returns the existing
// subscription with alreadyActive set and changes nothing.
func (s *SubscriptionService) ActivateSubscription(
	ctx context.Context,
	userID uuid.UUID,
	plan models.PlanType,
	paymentID string,
) (alreadyActive bool, sub *models.Subscription, err error) {
	paymentID = strings.TrimSpace(paymentID)
	if err := validateStruct(models.ActivateSubscriptionRequest{
		UserID:    userID.String(),
		Plan:      string(plan),
		PaymentID: paymentID,
	}); err != nil {
		return false, nil, err
	}
	if !IsPaidPlan(plan) {
		return false, nil, &ValidationError{Fields: map[string]string{"plan": "must be a paid plan"}}
	}

	existing, err := s.store.GetSubscriptionByPayment(ctx, paymentID)
	if err == nil {
		return true, existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, nil, fmt.Errorf("lookup payment: %w", err)
	}

	err = s.store.WithTx(ctx, func(q repository.Queries) error {
		user, err := q.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		// a concurrent callback with the same payment may have won the lock
		if prior, err := q.GetSubscriptionByPayment(ctx, paymentID); err == nil {
			sub, alreadyActive = prior, true
			return nil
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if err := q.CancelActiveSubscriptions(ctx, userID); err != nil {
			return fmt.Errorf("cancel active subscriptions: %w", err)
		}

		now := s.ledger.Now()
		end := now.Add(subscriptionPeriod)
		sub = &models.Subscription{
			ID:        uuid.New(),
			UserID:    userID,
			PlanType:  plan,
			Status:    models.SubscriptionActive,
			PaymentID: paymentID,
			StartDate: now,
			EndDate:   &end,
			CreatedAt: now,
		}
		if err := q.CreateSubscription(ctx, sub); err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}

		user.Plan = plan
		user.TokensRemaining = PlanFor(plan).MonthlyTokens
		user.LastTokenRefresh = &now
		if err := q.UpdateTokenAccount(ctx, user); err != nil {
			return fmt.Errorf("update token account: %w", err)
		}
		return nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil, &NotFoundError{Message: "User not found"}
	}
	if err != nil {
		return false, nil, fmt.Errorf("activate subscription: %w", err)
	}

	if !alreadyActive {
		s.log.Info("subscription activated", "user_id", userID, "plan", plan, "payment_id", paymentID)
	}
	return alreadyActive, sub, nil
}

// ExpireSubscriptions ends subscriptions whose period is over and moves their
// users back to the free plan. The balance is left for the next refresh.
func (s *SubscriptionService) ExpireSubscriptions(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.ListExpiredSubscriptions(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired subscriptions: %w", err)
	}

	count := 0
	for _, sub := range expired {
		err := s.store.WithTx(ctx, func(q repository.Queries) error {
			user, err := q.GetUserForUpdate(ctx, sub.UserID)
			if err != nil {
				return err
			}
			if err := q.SetSubscriptionStatus(ctx, sub.ID, models.SubscriptionExpired); err != nil {
				return err
			}
			if user.Plan == sub.PlanType {
				user.Plan = models.PlanFree
				return q.UpdateTokenAccount(ctx, user)
			}
			return nil
		})
		if err != nil {
			s.log.Error("expire subscription failed", "subscription_id", sub.ID, "user_id", sub.UserID, "error", err)
			continue
		}
		count++
	}
	return count, nil
}

// CreditTokens tops up a balance outside the monthly cycle, for manual grants
// and one-off purchases.
func (s *SubscriptionService) CreditTokens(ctx context.Context, userID uuid.UUID, amount int) error {
	if amount <= 0 {
		return &ValidationError{Fields: map[string]string{"amount": "must be greater than 0"}}
	}
	err := s.store.WithTx(ctx, func(q repository.Queries) error {
		user, err := q.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if s.ledger.RefreshIfDue(user) {
			s.log.Info("token refresh applied before credit", "user_id", userID)
		}
		s.ledger.Credit(user, amount)
		return q.UpdateTokenAccount(ctx, user)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Message: "User not found"}
	}
	if err != nil {
		return fmt.Errorf("credit tokens: %w", err)
	}
	s.log.Info("tokens credited", "user_id", userID, "amount", amount)
	return nil
}
