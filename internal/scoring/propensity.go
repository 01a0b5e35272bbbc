// Package scoring computes a case's propensity to pay and routes it to a
// collection agency.
package scoring

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Version identifies the rule set; it is reported on /health and attached to
// ingestion events so downstream consumers can tell scores apart.
const Version = "rules-1"

const (
	baseScore         = 50
	contactPenalty    = 3
	minScore          = 0
	maxScore          = 100
	smallDebtCeiling  = 5000
	mediumDebtCeiling = 15000
)

var (
	smallDebt  = decimal.NewFromInt(smallDebtCeiling)
	mediumDebt = decimal.NewFromInt(mediumDebtCeiling)
)

// FactorResult captures one rule's contribution to the propensity score.
type FactorResult struct {
	Name       string `json:"name"`
	Adjustment int    `json:"adjustment"`
	Reason     string `json:"reason"`
}

// Breakdown is the explained form of Score.
type Breakdown struct {
	Base     int            `json:"base"`
	Factors  []FactorResult `json:"factors"`
	RawScore int            `json:"raw_score"`
	Score    int            `json:"score"`
	Clamped  bool           `json:"clamped"`
}

// Score maps a case's financial attributes to a propensity in [0, 100].
// It has no error conditions: negative inputs produce degenerate but bounded
// output.
func Score(amount decimal.Decimal, daysOverdue, previousContacts int) int {
	return Explain(amount, daysOverdue, previousContacts).Score
}

// Explain runs the same rules as Score and records each adjustment.
func Explain(amount decimal.Decimal, daysOverdue, previousContacts int) Breakdown {
	factors := []FactorResult{
		amountFactor(amount),
		overdueFactor(daysOverdue),
		contactFactor(previousContacts),
	}

	raw := baseScore
	for _, f := range factors {
		raw += f.Adjustment
	}
	score := clamp(raw, minScore, maxScore)

	return Breakdown{
		Base:     baseScore,
		Factors:  factors,
		RawScore: raw,
		Score:    score,
		Clamped:  score != raw,
	}
}

// Smaller debts are more likely to be paid.
func amountFactor(amount decimal.Decimal) FactorResult {
	switch {
	case amount.LessThan(smallDebt):
		return FactorResult{Name: "amount", Adjustment: 25, Reason: "amount below 5000"}
	case amount.LessThan(mediumDebt):
		return FactorResult{Name: "amount", Adjustment: 10, Reason: "amount between 5000 and 15000"}
	default:
		return FactorResult{Name: "amount", Adjustment: -15, Reason: "amount 15000 or more"}
	}
}

// 60-90 days inclusive is neutral.
func overdueFactor(days int) FactorResult {
	switch {
	case days < 30:
		return FactorResult{Name: "days_overdue", Adjustment: 20, Reason: "under 30 days overdue"}
	case days < 60:
		return FactorResult{Name: "days_overdue", Adjustment: 5, Reason: "30-59 days overdue"}
	case days > 90:
		return FactorResult{Name: "days_overdue", Adjustment: -20, Reason: "over 90 days overdue"}
	default:
		return FactorResult{Name: "days_overdue", Adjustment: 0, Reason: "60-90 days overdue"}
	}
}

// maxContactsScored is the contact count past which the penalty alone drives
// any score below minScore. Counts beyond it saturate so the product cannot
// overflow.
const maxContactsScored = (maxScore + maxScore) / contactPenalty

func contactFactor(contacts int) FactorResult {
	scored := min(max(contacts, -maxContactsScored), maxContactsScored)
	return FactorResult{
		Name:       "previous_contacts",
		Adjustment: -contactPenalty * scored,
		Reason:     fmt.Sprintf("%d previous contacts", contacts),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
