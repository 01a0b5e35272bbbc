package scoring

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestScoreScenarios(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		days     int
		contacts int
		want     int
	}{
		{"small recent debt", d(4500), 25, 1, 92},
		{"large stale debt clamps to zero", d(18000), 95, 6, 0},
		{"band edges 5000 and 30", d(5000), 30, 2, 59},
		{"upper band edge 15000", d(15000), 10, 0, 55},
		{"neutral overdue band low edge", d(1000), 60, 0, 75},
		{"neutral overdue band high edge", d(1000), 90, 0, 75},
		{"just past 90 days", d(1000), 91, 0, 55},
		{"fractional amount below 5000", decimal.RequireFromString("4999.99"), 0, 0, 95},
		{"zero amount fresh debt", d(0), 0, 0, 95},
		{"negative contacts push above 100", d(10), 10, -5, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.amount, tt.days, tt.contacts))
		})
	}
}

func TestScoreBoundedForValidInputs(t *testing.T) {
	amounts := []decimal.Decimal{d(0), d(1), d(4999), d(5000), d(14999), d(15000), d(1_000_000)}
	for _, amount := range amounts {
		for days := 0; days <= 400; days += 7 {
			for contacts := 0; contacts <= 50; contacts++ {
				s := Score(amount, days, contacts)
				if s < 0 || s > 100 {
					t.Fatalf("Score(%s, %d, %d) = %d, out of range", amount, days, contacts, s)
				}
			}
		}
	}
}

func TestScoreNonIncreasingInContacts(t *testing.T) {
	amounts := []decimal.Decimal{d(100), d(7000), d(20000)}
	for _, amount := range amounts {
		for days := 0; days <= 120; days += 5 {
			prev := Score(amount, days, 0)
			for contacts := 1; contacts <= 40; contacts++ {
				s := Score(amount, days, contacts)
				if s > prev {
					t.Fatalf("score rose from %d to %d at contacts=%d (amount=%s, days=%d)", prev, s, contacts, amount, days)
				}
				prev = s
			}
			for _, contacts := range []int{maxContactsScored, maxContactsScored + 1, 4_000_000_000_000_000_000, math.MaxInt64} {
				s := Score(amount, days, contacts)
				if s > prev {
					t.Fatalf("score rose from %d to %d at contacts=%d (amount=%s, days=%d)", prev, s, contacts, amount, days)
				}
				prev = s
			}
		}
	}
}

func TestScoreSaturatesHugeContactCounts(t *testing.T) {
	assert.Equal(t, 15, Score(d(18000), 95, 0))
	assert.Equal(t, 0, Score(d(18000), 95, 4_000_000_000_000_000_000))
	assert.Equal(t, 0, Score(d(100), 0, math.MaxInt64))
	assert.Equal(t, AgencySharkRecovery, Evaluate(d(18000), 95, math.MaxInt64).Agency)
	assert.Equal(t, 100, Score(d(18000), 95, math.MinInt64))

	b := Explain(d(100), 0, math.MaxInt64)
	assert.Equal(t, -contactPenalty*maxContactsScored, b.Factors[2].Adjustment)
	assert.True(t, b.Clamped)
}

func TestExplainMatchesScore(t *testing.T) {
	b := Explain(d(4500), 25, 1)
	require.Len(t, b.Factors, 3)
	assert.Equal(t, 50, b.Base)
	assert.Equal(t, 25, b.Factors[0].Adjustment)
	assert.Equal(t, 20, b.Factors[1].Adjustment)
	assert.Equal(t, -3, b.Factors[2].Adjustment)
	assert.Equal(t, 92, b.RawScore)
	assert.Equal(t, 92, b.Score)
	assert.False(t, b.Clamped)

	b = Explain(d(18000), 95, 6)
	assert.Equal(t, -3, b.RawScore)
	assert.Equal(t, 0, b.Score)
	assert.True(t, b.Clamped)
	assert.Equal(t, Score(d(18000), 95, 6), b.Score)
}
