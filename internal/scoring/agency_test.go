package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssignThresholds(t *testing.T) {
	tests := []struct {
		score int
		want  Agency
	}{
		{100, AgencyDigitalBot},
		{92, AgencyDigitalBot},
		{70, AgencyDigitalBot},
		{69, AgencyQuickCollections},
		{59, AgencyQuickCollections},
		{40, AgencyQuickCollections},
		{39, AgencySharkRecovery},
		{0, AgencySharkRecovery},
		{-10, AgencySharkRecovery},
		{250, AgencyDigitalBot},
	}
	for _, tt := range tests {
		if got := Assign(tt.score); got != tt.want {
			t.Errorf("Assign(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

// A higher score never lands on a lower track than a smaller score.
func TestAssignMonotonic(t *testing.T) {
	rank := map[Agency]int{AgencySharkRecovery: 0, AgencyQuickCollections: 1, AgencyDigitalBot: 2}
	for s := -5; s < 105; s++ {
		if rank[Assign(s+1)] < rank[Assign(s)] {
			t.Fatalf("Assign(%d)=%q ranks below Assign(%d)=%q", s+1, Assign(s+1), s, Assign(s))
		}
	}
}

func TestParseAgency(t *testing.T) {
	for _, a := range Agencies() {
		got, err := ParseAgency(string(a))
		assert.NoError(t, err)
		assert.Equal(t, a, got)
	}

	_, err := ParseAgency("digital bot")
	assert.True(t, errors.Is(err, ErrUnknownAgency))
}

func TestProfile(t *testing.T) {
	assert.Equal(t, "Low", Profile(AgencyDigitalBot).Priority)
	assert.Equal(t, "Medium", Profile(AgencyQuickCollections).Priority)
	assert.Equal(t, "High", Profile(AgencySharkRecovery).Priority)
	assert.Equal(t, Agency("Elsewhere"), Profile("Elsewhere").Agency)
	assert.Empty(t, Profile("Elsewhere").Priority)
}

func TestRiskCategory(t *testing.T) {
	assert.Equal(t, RiskMinimal, RiskCategory(80))
	assert.Equal(t, RiskLow, RiskCategory(79))
	assert.Equal(t, RiskLow, RiskCategory(60))
	assert.Equal(t, RiskMedium, RiskCategory(40))
	assert.Equal(t, RiskHigh, RiskCategory(20))
	assert.Equal(t, RiskCritical, RiskCategory(19))
	assert.Equal(t, RiskCritical, RiskCategory(0))
}

func TestEvaluate(t *testing.T) {
	a := Evaluate(d(4500), 25, 1)
	assert.Equal(t, Assessment{Propensity: 92, Agency: AgencyDigitalBot, RiskCategory: RiskMinimal}, a)

	a = Evaluate(d(18000), 95, 6)
	assert.Equal(t, Assessment{Propensity: 0, Agency: AgencySharkRecovery, RiskCategory: RiskCritical}, a)

	a = Evaluate(d(5000), 30, 2)
	assert.Equal(t, 59, a.Propensity)
	assert.Equal(t, AgencyQuickCollections, a.Agency)
	assert.Equal(t, Assign(a.Propensity), a.Agency)
}
