package services

import "github.com/tigerfox1974/StudyBuddy/internal/models"

// Plan holds the limits and allotments of one subscription tier.
type Plan struct {
	Type                models.PlanType
	Name                string
	MonthlyTokens       int
	TrialTokens         int
	TrialDays           int
	MaxFileSizeMB       int
	MaxQuestionsPerType *int // nil means unlimited
	ExportCostTokens    int
	MonthlyUploadLimit  *int // nil means unlimited
}

func (p Plan) MaxFileSizeBytes() int64 {
	return int64(p.MaxFileSizeMB) * 1024 * 1024
}

func limit(n int) *int { return &n }

var plans = map[models.PlanType]Plan{
	models.PlanFree: {
		Type:                models.PlanFree,
		Name:                "Free",
		MonthlyTokens:       10,
		TrialTokens:         10,
		TrialDays:           7,
		MaxFileSizeMB:       10,
		MaxQuestionsPerType: limit(5),
		ExportCostTokens:    2,
		MonthlyUploadLimit:  limit(20),
	},
	models.PlanStandard: {
		Type:                models.PlanStandard,
		Name:                "Standard",
		MonthlyTokens:       25,
		TrialTokens:         10,
		TrialDays:           7,
		MaxFileSizeMB:       25,
		MaxQuestionsPerType: limit(10),
		ExportCostTokens:    1,
	},
	models.PlanPremium: {
		Type:             models.PlanPremium,
		Name:             "Premium",
		MonthlyTokens:    60,
		TrialTokens:      10,
		TrialDays:        7,
		MaxFileSizeMB:    50,
		ExportCostTokens: 0,
	},
}

// PlanFor returns the plan for t. Unknown or empty tiers get the free plan.
func PlanFor(t models.PlanType) Plan {
	if p, ok := plans[t]; ok {
		return p
	}
	return plans[models.PlanFree]
}

// IsPaidPlan reports whether t can be bought through activate_subscription.
func IsPaidPlan(t models.PlanType) bool {
	_, ok := plans[t]
	return ok && t != models.PlanFree
}
