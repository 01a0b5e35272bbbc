package reporting

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Collector/internal/scoring"
	"github.com/MikeSquared-Agency/Collector/internal/store"
)

// HighRiskBelow is the propensity under which a case counts as high risk in
// the portfolio totals. It matches the Shark Recovery band.
const HighRiskBelow = scoring.QuickCollectionsThreshold

type Totals struct {
	Cases          int             `json:"cases"`
	Amount         decimal.Decimal `json:"amount"`
	PaidCases      int             `json:"paid_cases"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	RecoveryRate   decimal.Decimal `json:"recovery_rate"`
	AvgDaysOverdue float64         `json:"avg_days_overdue"`
	AvgPropensity  float64         `json:"avg_propensity"`
	HighRiskCases  int             `json:"high_risk_cases"`
}

type AgencySummary struct {
	Agency         scoring.Agency  `json:"agency"`
	Cases          int             `json:"cases"`
	Amount         decimal.Decimal `json:"amount"`
	PaidCases      int             `json:"paid_cases"`
	PaidAmount     decimal.Decimal `json:"paid_amount"`
	RecoveryRate   decimal.Decimal `json:"recovery_rate"`
	AvgDaysOverdue float64         `json:"avg_days_overdue"`
}

type StatusCount struct {
	Status store.CaseStatus `json:"status"`
	Cases  int              `json:"cases"`
}

type Bucket struct {
	Range  string          `json:"range"`
	Cases  int             `json:"cases"`
	Amount decimal.Decimal `json:"amount"`
}

type RiskCount struct {
	Category string `json:"category"`
	Cases    int    `json:"cases"`
}

// Report is a point-in-time summary of the case portfolio.
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Totals      Totals          `json:"totals"`
	Agencies    []AgencySummary `json:"agencies"`
	Statuses    []StatusCount   `json:"statuses"`
	Aging       []Bucket        `json:"aging"`
	Propensity  []Bucket        `json:"propensity"`
	Risk        []RiskCount     `json:"risk"`
}

type band struct {
	label    string
	min, max int // inclusive; max < 0 means unbounded
}

var agingBands = []band{
	{"0-30", 0, 30},
	{"31-60", 31, 60},
	{"61-90", 61, 90},
	{"90+", 91, -1},
}

var propensityBands = []band{
	{"0-20", math.MinInt, 20},
	{"21-40", 21, 40},
	{"41-60", 41, 60},
	{"61-80", 61, 80},
	{"81-100", 81, -1},
}

func (b band) contains(v int) bool {
	return v >= b.min && (b.max < 0 || v <= b.max)
}

// Build summarizes cases. Every agency, status, band and risk category is
// present in the result, with zero counts where nothing matched.
func Build(cases []*store.Case, now time.Time) *Report {
	r := &Report{
		GeneratedAt: now,
		Totals:      Totals{Amount: decimal.Zero, PaidAmount: decimal.Zero, RecoveryRate: decimal.Zero},
		Aging:       newBuckets(agingBands),
		Propensity:  newBuckets(propensityBands),
	}

	agencyIdx := make(map[scoring.Agency]int)
	agencyDays := make([]int, len(scoring.Agencies()))
	for i, a := range scoring.Agencies() {
		agencyIdx[a] = i
		r.Agencies = append(r.Agencies, AgencySummary{
			Agency: a, Amount: decimal.Zero, PaidAmount: decimal.Zero, RecoveryRate: decimal.Zero,
		})
	}
	statusIdx := make(map[store.CaseStatus]int)
	for i, s := range store.Statuses() {
		statusIdx[s] = i
		r.Statuses = append(r.Statuses, StatusCount{Status: s})
	}
	riskIdx := make(map[string]int)
	for i, c := range scoring.RiskCategories() {
		riskIdx[c] = i
		r.Risk = append(r.Risk, RiskCount{Category: c})
	}

	var totalDays, totalPropensity int
	for _, c := range cases {
		paid := c.Status == store.StatusPaid
		t := &r.Totals
		t.Cases++
		t.Amount = t.Amount.Add(c.Amount)
		totalDays += c.DaysOverdue
		totalPropensity += c.Propensity
		if paid {
			t.PaidCases++
			t.PaidAmount = t.PaidAmount.Add(c.Amount)
		}
		if c.Propensity < HighRiskBelow {
			t.HighRiskCases++
		}

		if i, ok := agencyIdx[c.AssignedTo]; ok {
			a := &r.Agencies[i]
			a.Cases++
			a.Amount = a.Amount.Add(c.Amount)
			agencyDays[i] += c.DaysOverdue
			if paid {
				a.PaidCases++
				a.PaidAmount = a.PaidAmount.Add(c.Amount)
			}
		}
		if i, ok := statusIdx[c.Status]; ok {
			r.Statuses[i].Cases++
		}
		if i, ok := riskIdx[c.RiskCategory]; ok {
			r.Risk[i].Cases++
		}
		addToBucket(r.Aging, agingBands, c.DaysOverdue, c.Amount)
		addToBucket(r.Propensity, propensityBands, c.Propensity, c.Amount)
	}

	r.Totals.RecoveryRate = percent(r.Totals.PaidAmount, r.Totals.Amount)
	r.Totals.AvgDaysOverdue = average(totalDays, r.Totals.Cases)
	r.Totals.AvgPropensity = average(totalPropensity, r.Totals.Cases)
	for i := range r.Agencies {
		a := &r.Agencies[i]
		a.RecoveryRate = percent(a.PaidAmount, a.Amount)
		a.AvgDaysOverdue = average(agencyDays[i], a.Cases)
	}
	return r
}

func newBuckets(bands []band) []Bucket {
	out := make([]Bucket, len(bands))
	for i, b := range bands {
		out[i] = Bucket{Range: b.label, Amount: decimal.Zero}
	}
	return out
}

func addToBucket(buckets []Bucket, bands []band, v int, amount decimal.Decimal) {
	for i, b := range bands {
		if b.contains(v) {
			buckets[i].Cases++
			buckets[i].Amount = buckets[i].Amount.Add(amount)
			return
		}
	}
}

// percent returns part/whole as a percentage with one decimal place, or zero
// when whole is zero.
func percent(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(1)
}

func average(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return math.Round(float64(sum)/float64(n)*10) / 10
}
