package services

import (
	"fmt"
	"math"
	"time"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

// Token prices. Question types are billed per type requested.
const (
	BaseProcessingCost   = 1.0
	QuestionTypeCost     = 0.5
	RefreshInterval      = 30 * 24 * time.Hour
	minRefreshSeparation = time.Hour
)

// TokenLedger applies balance rules to an in-memory user. It never persists;
// callers own the transaction.
type TokenLedger struct {
	now func() time.Time
}

func NewTokenLedger(now func() time.Time) *TokenLedger {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &TokenLedger{now: now}
}

func (l *TokenLedger) Now() time.Time { return l.now() }

// Initialize grants the trial once. It returns false when the trial was already set.
func (l *TokenLedger) Initialize(u *models.User) bool {
	if u.TrialEndsAt != nil {
		return false
	}
	plan := PlanFor(u.Plan)
	ends := l.now().Add(time.Duration(plan.TrialDays) * 24 * time.Hour)
	u.TrialEndsAt = &ends
	u.TokensRemaining = plan.TrialTokens
	return true
}

// RefreshIfDue resets the balance to the plan allotment when a refresh is due.
func (l *TokenLedger) RefreshIfDue(u *models.User) bool {
	now := l.now()
	if u.LastTokenRefresh != nil {
		elapsed := now.Sub(*u.LastTokenRefresh)
		if elapsed < minRefreshSeparation || elapsed < RefreshInterval {
			return false
		}
	}
	u.TokensRemaining = PlanFor(u.Plan).MonthlyTokens
	u.LastTokenRefresh = &now
	return true
}

func (l *TokenLedger) IsTrialActive(u *models.User) bool {
	return u.TrialEndsAt != nil && u.TrialEndsAt.After(l.now())
}

// CalculateCost prices a generation. An empty types slice means every question type.
func (l *TokenLedger) CalculateCost(types []models.ArtifactKind, includeExport bool, plan Plan) float64 {
	n := len(types)
	if n == 0 {
		n = len(models.QuestionKinds)
	}
	cost := BaseProcessingCost + float64(n)*QuestionTypeCost
	if includeExport {
		cost += float64(plan.ExportCostTokens)
	}
	return cost
}

// ChargeTokens converts a fractional cost to whole tokens, rounding up.
func ChargeTokens(cost float64) int {
	return int(math.Ceil(cost))
}

type Affordability struct {
	OK        bool
	Message   string
	Available int
}

// CheckAffordability refreshes first, so callers must persist u if its balance changed.
func (l *TokenLedger) CheckAffordability(u *models.User, required int) Affordability {
	l.RefreshIfDue(u)
	if u.TokensRemaining >= required {
		return Affordability{OK: true, Available: u.TokensRemaining}
	}
	return Affordability{
		OK:        false,
		Available: u.TokensRemaining,
		Message: fmt.Sprintf(
			"Not enough tokens: this action needs %d but you have %d. Upgrade your plan or wait for your monthly refresh.",
			required, u.TokensRemaining,
		),
	}
}

// Deduct clamps at zero. Callers check affordability first.
func (l *TokenLedger) Deduct(u *models.User, amount int) {
	if amount <= 0 {
		return
	}
	u.TokensRemaining -= amount
	if u.TokensRemaining < 0 {
		u.TokensRemaining = 0
	}
}

func (l *TokenLedger) Credit(u *models.User, amount int) {
	if amount <= 0 {
		return
	}
	u.TokensRemaining += amount
}

// Info builds the read-only snapshot. It does not refresh.
func (l *TokenLedger) Info(u *models.User) *models.TokenInfo {
	plan := PlanFor(u.Plan)
	return &models.TokenInfo{
		TokensRemaining: u.TokensRemaining,
		MonthlyTokens:   plan.MonthlyTokens,
		TrialActive:     l.IsTrialActive(u),
		TrialEndsAt:     u.TrialEndsAt,
		Plan:            plan.Type,
	}
}
