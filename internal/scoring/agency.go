package scoring

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Agency is one of the fixed downstream collection handlers.
type Agency string

const (
	AgencyDigitalBot       Agency = "Digital Bot"
	AgencyQuickCollections Agency = "Quick Collections"
	AgencySharkRecovery    Agency = "Shark Recovery"
)

// Track thresholds, evaluated top-down.
const (
	DigitalBotThreshold       = 70
	QuickCollectionsThreshold = 40
)

var ErrUnknownAgency = errors.New("unknown agency")

// Agencies lists the agencies from the highest-propensity track down.
func Agencies() []Agency {
	return []Agency{AgencyDigitalBot, AgencyQuickCollections, AgencySharkRecovery}
}

// ParseAgency validates an agency name supplied by a user or config file.
func ParseAgency(s string) (Agency, error) {
	for _, a := range Agencies() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAgency, s)
}

// Assign routes a propensity score to an agency. It is total on all integers.
func Assign(score int) Agency {
	switch {
	case score >= DigitalBotThreshold:
		return AgencyDigitalBot
	case score >= QuickCollectionsThreshold:
		return AgencyQuickCollections
	default:
		return AgencySharkRecovery
	}
}

// AgencyProfile describes how an agency handles the cases routed to it.
type AgencyProfile struct {
	Agency            Agency `json:"agency"`
	Priority          string `json:"priority"`
	Reason            string `json:"reason"`
	RecommendedAction string `json:"recommended_action"`
}

var profiles = map[Agency]AgencyProfile{
	AgencyDigitalBot: {
		Agency:            AgencyDigitalBot,
		Priority:          "Low",
		Reason:            "High propensity - automated collection suitable",
		RecommendedAction: "Send automated SMS/Email reminder",
	},
	AgencyQuickCollections: {
		Agency:            AgencyQuickCollections,
		Priority:          "Medium",
		Reason:            "Medium propensity - standard agent needed",
		RecommendedAction: "Assign to junior collection agent",
	},
	AgencySharkRecovery: {
		Agency:            AgencySharkRecovery,
		Priority:          "High",
		Reason:            "Low propensity - expert negotiation required",
		RecommendedAction: "Escalate to senior specialist",
	},
}

// Profile returns the handling profile of a. Unknown agencies get a zero
// profile carrying only the name.
func Profile(a Agency) AgencyProfile {
	if p, ok := profiles[a]; ok {
		return p
	}
	return AgencyProfile{Agency: a}
}

// Risk categories, from safest to riskiest.
const (
	RiskMinimal  = "Minimal Risk"
	RiskLow      = "Low Risk"
	RiskMedium   = "Medium Risk"
	RiskHigh     = "High Risk"
	RiskCritical = "Critical Risk"
)

// RiskCategories lists every category in band order.
func RiskCategories() []string {
	return []string{RiskMinimal, RiskLow, RiskMedium, RiskHigh, RiskCritical}
}

func RiskCategory(score int) string {
	switch {
	case score >= 80:
		return RiskMinimal
	case score >= 60:
		return RiskLow
	case score >= 40:
		return RiskMedium
	case score >= 20:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// Assessment is every field derived from a case's financial attributes.
type Assessment struct {
	Propensity   int    `json:"propensity"`
	Agency       Agency `json:"assigned_to"`
	RiskCategory string `json:"risk_category"`
}

// Evaluate scores and routes in one step. Callers that set derived case
// fields go through here so the agency never disagrees with the score.
func Evaluate(amount decimal.Decimal, daysOverdue, previousContacts int) Assessment {
	score := Score(amount, daysOverdue, previousContacts)
	return Assessment{
		Propensity:   score,
		Agency:       Assign(score),
		RiskCategory: RiskCategory(score),
	}
}
