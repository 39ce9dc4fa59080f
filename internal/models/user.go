package models

import (
	"time"

	"github.com/google/uuid"
)

type PlanType string

const (
	PlanFree     PlanType = "free"
	PlanStandard PlanType = "standard"
	PlanPremium  PlanType = "premium"
)

// User carries the token account alongside the identity fields.
type User struct {
	ID               uuid.UUID  `json:"id"`
	Email            string     `json:"email"`
	PasswordHash     string     `json:"-"`
	FullName         string     `json:"full_name"`
	Plan             PlanType   `json:"subscription_plan"`
	TokensRemaining  int        `json:"tokens_remaining"`
	TrialEndsAt      *time.Time `json:"trial_ends_at"`
	LastTokenRefresh *time.Time `json:"last_token_refresh"`
	CreatedAt        time.Time  `json:"created_at"`
}

type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthTokens struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// TokenInfo is the read-only ledger snapshot shown to the user.
type TokenInfo struct {
	TokensRemaining int        `json:"tokens_remaining"`
	MonthlyTokens   int        `json:"monthly_tokens"`
	TrialActive     bool       `json:"trial_active"`
	TrialEndsAt     *time.Time `json:"trial_ends_at"`
	Plan            PlanType   `json:"plan"`
}
