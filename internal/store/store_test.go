package store

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Collector/internal/scoring"
)

func TestCaseStatusValues(t *testing.T) {
	expected := []string{"Pending", "Contacted", "Promised", "Paid", "Refused"}
	for i, s := range Statuses() {
		if string(s) != expected[i] {
			t.Errorf("expected %s, got %s", expected[i], s)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range Statuses() {
		got, err := ParseStatus(string(s))
		if err != nil || got != s {
			t.Errorf("ParseStatus(%q) = %q, %v", s, got, err)
		}
	}
	for _, bad := range []string{"", "paid", "Closed", "Pending "} {
		if _, err := ParseStatus(bad); !errors.Is(err, ErrInvalidStatus) {
			t.Errorf("ParseStatus(%q): expected ErrInvalidStatus, got %v", bad, err)
		}
	}
}

func TestTransitionTableAllowsAnyToAny(t *testing.T) {
	for _, from := range Statuses() {
		for _, to := range Statuses() {
			if !CanTransition(from, to) {
				t.Errorf("expected %s -> %s to be allowed", from, to)
			}
		}
	}
	if CanTransition("Bogus", StatusPaid) {
		t.Error("unknown source status must not transition")
	}
}

func TestNewCaseDerivesScoring(t *testing.T) {
	now := time.Now()
	c := NewCase(1, "CUST001", decimal.NewFromInt(5000), 30, 2, now)
	if c.Propensity != 59 {
		t.Errorf("expected propensity 59, got %d", c.Propensity)
	}
	if c.AssignedTo != scoring.AgencyQuickCollections {
		t.Errorf("expected Quick Collections, got %s", c.AssignedTo)
	}
	if c.Status != StatusPending {
		t.Errorf("expected Pending, got %s", c.Status)
	}
	if !c.LastUpdated.Equal(now) {
		t.Error("expected last_updated to be the ingestion time")
	}
	if c.Assess() != c.Assessment() {
		t.Error("stored assessment disagrees with a fresh evaluation")
	}
}

func TestCaseFilterMatches(t *testing.T) {
	c := NewCase(1, "C", decimal.NewFromInt(100), 5, 0, time.Now())
	paid := StatusPaid
	if !(CaseFilter{}).Matches(c) {
		t.Error("empty filter should match")
	}
	if !(CaseFilter{Agency: scoring.AgencyDigitalBot}).Matches(c) {
		t.Error("agency filter should match")
	}
	if (CaseFilter{Agency: scoring.AgencySharkRecovery}).Matches(c) {
		t.Error("other agency should not match")
	}
	if (CaseFilter{Status: &paid}).Matches(c) {
		t.Error("status filter should not match a Pending case")
	}
}
