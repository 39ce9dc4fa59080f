package services

import (
	"testing"
	"time"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestInitialize_GrantsTrialOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewTokenLedger(fixedClock(now))
	u := &models.User{Plan: models.PlanFree}

	if !ledger.Initialize(u) {
		t.Fatalf("expected first initialize to act")
	}
	if u.TokensRemaining != 10 {
		t.Fatalf("expected 10 trial tokens, got %d", u.TokensRemaining)
	}
	if u.TrialEndsAt == nil || !u.TrialEndsAt.Equal(now.Add(7*24*time.Hour)) {
		t.Fatalf("expected trial to end 7 days from now, got %v", u.TrialEndsAt)
	}

	u.TokensRemaining = 3
	if ledger.Initialize(u) {
		t.Fatalf("expected second initialize to be a no-op")
	}
	if u.TokensRemaining != 3 {
		t.Fatalf("expected balance to stay 3, got %d", u.TokensRemaining)
	}
}

func TestRefreshIfDue(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(-d)
		return &ts
	}

	tests := []struct {
		name        string
		plan        models.PlanType
		lastRefresh *time.Time
		balance     int
		wantRefresh bool
		wantBalance int
	}{
		{"never refreshed", models.PlanFree, nil, 2, true, 10},
		{"refreshed 10 minutes ago", models.PlanFree, at(10 * time.Minute), 2, false, 2},
		{"refreshed 29 days ago", models.PlanStandard, at(29 * 24 * time.Hour), 4, false, 4},
		{"refreshed 30 days ago", models.PlanStandard, at(30 * 24 * time.Hour), 4, true, 25},
		{"premium after 45 days", models.PlanPremium, at(45 * 24 * time.Hour), 0, true, 60},
		{"unknown plan falls back to free", models.PlanType("gold"), nil, 0, true, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ledger := NewTokenLedger(fixedClock(now))
			u := &models.User{Plan: tc.plan, TokensRemaining: tc.balance, LastTokenRefresh: tc.lastRefresh}

			got := ledger.RefreshIfDue(u)
			if got != tc.wantRefresh {
				t.Fatalf("RefreshIfDue() = %v, want %v", got, tc.wantRefresh)
			}
			if u.TokensRemaining != tc.wantBalance {
				t.Fatalf("balance = %d, want %d", u.TokensRemaining, tc.wantBalance)
			}
			if tc.wantRefresh && (u.LastTokenRefresh == nil || !u.LastTokenRefresh.Equal(now)) {
				t.Fatalf("expected last refresh to be stamped with now")
			}
		})
	}
}

func TestCalculateCost(t *testing.T) {
	ledger := NewTokenLedger(nil)

	tests := []struct {
		name   string
		types  []models.ArtifactKind
		export bool
		plan   models.PlanType
		want   float64
	}{
		{"all types by default", nil, false, models.PlanFree, 3.0},
		{"one type", []models.ArtifactKind{models.ArtifactTrueFalse}, false, models.PlanFree, 1.5},
		{"two types", []models.ArtifactKind{models.ArtifactTrueFalse, models.ArtifactFillBlank}, false, models.PlanFree, 2.0},
		{"free export adds 2", nil, true, models.PlanFree, 5.0},
		{"standard export adds 1", nil, true, models.PlanStandard, 4.0},
		{"premium export is free", nil, true, models.PlanPremium, 3.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ledger.CalculateCost(tc.types, tc.export, PlanFor(tc.plan))
			if got != tc.want {
				t.Fatalf("CalculateCost() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestChargeTokens_RoundsUp(t *testing.T) {
	cases := map[float64]int{1.0: 1, 1.5: 2, 2.0: 2, 3.0: 3, 0: 0}
	for cost, want := range cases {
		if got := ChargeTokens(cost); got != want {
			t.Fatalf("ChargeTokens(%v) = %d, want %d", cost, got, want)
		}
	}
}

func TestCheckAffordability(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour * 2)
	ledger := NewTokenLedger(fixedClock(now))

	u := &models.User{Plan: models.PlanFree, TokensRemaining: 2, LastTokenRefresh: &recent}
	aff := ledger.CheckAffordability(u, 3)
	if aff.OK {
		t.Fatalf("expected 2 tokens to be insufficient for 3")
	}
	if aff.Available != 2 || aff.Message == "" {
		t.Fatalf("unexpected affordability result: %+v", aff)
	}

	u.TokensRemaining = 3
	if aff := ledger.CheckAffordability(u, 3); !aff.OK {
		t.Fatalf("expected exact balance to be affordable")
	}
}

func TestCheckAffordability_RefreshesFirst(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	old := now.Add(-31 * 24 * time.Hour)
	ledger := NewTokenLedger(fixedClock(now))

	u := &models.User{Plan: models.PlanFree, TokensRemaining: 0, LastTokenRefresh: &old}
	if aff := ledger.CheckAffordability(u, 3); !aff.OK {
		t.Fatalf("expected due refresh to make the request affordable, got %+v", aff)
	}
	if u.TokensRemaining != 10 {
		t.Fatalf("expected refreshed balance 10, got %d", u.TokensRemaining)
	}
}

func TestDeductAndCredit(t *testing.T) {
	ledger := NewTokenLedger(nil)
	u := &models.User{TokensRemaining: 2}

	ledger.Deduct(u, 3)
	if u.TokensRemaining != 0 {
		t.Fatalf("expected deduct to clamp at 0, got %d", u.TokensRemaining)
	}

	ledger.Deduct(u, -5)
	ledger.Credit(u, 4)
	ledger.Credit(u, 0)
	if u.TokensRemaining != 4 {
		t.Fatalf("expected balance 4, got %d", u.TokensRemaining)
	}
}

func TestInfo(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ledger := NewTokenLedger(fixedClock(now))
	trialEnd := now.Add(time.Hour)
	u := &models.User{Plan: models.PlanStandard, TokensRemaining: 7, TrialEndsAt: &trialEnd}

	info := ledger.Info(u)
	if info.TokensRemaining != 7 || info.MonthlyTokens != 25 || !info.TrialActive || info.Plan != models.PlanStandard {
		t.Fatalf("unexpected info: %+v", info)
	}

	expired := now.Add(-time.Hour)
	u.TrialEndsAt = &expired
	if ledger.Info(u).TrialActive {
		t.Fatalf("expected trial to be inactive after it ends")
	}
}

func TestPlanFor(t *testing.T) {
	if PlanFor("").Type != models.PlanFree {
		t.Fatalf("expected empty plan to resolve to free")
	}
	if PlanFor("enterprise").Type != models.PlanFree {
		t.Fatalf("expected unknown plan to resolve to free")
	}

	free := PlanFor(models.PlanFree)
	if free.MaxFileSizeBytes() != 10*1024*1024 {
		t.Fatalf("unexpected free file limit: %d", free.MaxFileSizeBytes())
	}
	if free.MaxQuestionsPerType == nil || *free.MaxQuestionsPerType != 5 {
		t.Fatalf("expected free plan to cap questions at 5")
	}
	if free.MonthlyUploadLimit == nil || *free.MonthlyUploadLimit != 20 {
		t.Fatalf("expected free plan upload cap of 20")
	}

	premium := PlanFor(models.PlanPremium)
	if premium.MaxQuestionsPerType != nil || premium.MonthlyUploadLimit != nil {
		t.Fatalf("expected premium to be unlimited")
	}
}

func TestIsPaidPlan(t *testing.T) {
	if IsPaidPlan(models.PlanFree) || IsPaidPlan("gold") {
		t.Fatalf("free and unknown plans must not be purchasable")
	}
	if !IsPaidPlan(models.PlanStandard) || !IsPaidPlan(models.PlanPremium) {
		t.Fatalf("standard and premium must be purchasable")
	}
}
