package models

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

type Subscription struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"user_id"`
	PlanType  PlanType           `json:"plan_type"`
	Status    SubscriptionStatus `json:"status"`
	PaymentID string             `json:"payment_id"`
	StartDate time.Time          `json:"start_date"`
	EndDate   *time.Time         `json:"end_date"`
	CreatedAt time.Time          `json:"created_at"`
}

type ActivateSubscriptionRequest struct {
	UserID    string `json:"user_id" validate:"required,uuid"`
	Plan      string `json:"plan" validate:"required,oneof=standard premium"`
	PaymentID string `json:"payment_id" validate:"required,max=128"`
}
