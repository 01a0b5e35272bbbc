//go:build integration

package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *PostgresStore {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	_, _ = s.pool.Exec(ctx, "TRUNCATE collection_cases, collection_users, collection_login_attempts")

	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, "TRUNCATE collection_cases, collection_users, collection_login_attempts")
		s.Close()
	})

	return s
}

func TestCaseRoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	cases := []*Case{
		NewCase(1, "CUST001", decimal.RequireFromString("4500.50"), 25, 1, now),
		NewCase(2, "CUST002", decimal.NewFromInt(18000), 95, 6, now),
	}
	if err := s.AppendCases(ctx, cases); err != nil {
		t.Fatalf("AppendCases failed: %v", err)
	}

	got, err := s.GetCase(ctx, 1)
	if err != nil {
		t.Fatalf("GetCase failed: %v", err)
	}
	if !got.Amount.Equal(cases[0].Amount) {
		t.Errorf("amount: expected %s, got %s", cases[0].Amount, got.Amount)
	}
	if got.Propensity != cases[0].Propensity || got.AssignedTo != cases[0].AssignedTo {
		t.Errorf("scoring fields not preserved: %+v", got)
	}

	max, err := s.MaxCaseID(ctx)
	if err != nil || max != 2 {
		t.Fatalf("MaxCaseID: got %d, %v", max, err)
	}

	err = s.AppendCases(ctx, []*Case{NewCase(3, "CUST003", decimal.NewFromInt(1), 1, 0, now), NewCase(2, "DUP", decimal.NewFromInt(1), 1, 0, now)})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if _, err := s.GetCase(ctx, 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("failed batch should not persist case 3, got %v", err)
	}
}

func TestCaseStatusUpdate(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	if err := s.AppendCases(ctx, []*Case{NewCase(1, "CUST001", decimal.NewFromInt(5000), 30, 2, now)}); err != nil {
		t.Fatalf("AppendCases failed: %v", err)
	}
	later := now.Add(time.Hour)
	c, err := s.UpdateCaseStatus(ctx, 1, StatusPaid, later)
	if err != nil {
		t.Fatalf("UpdateCaseStatus failed: %v", err)
	}
	if c.Status != StatusPaid || !c.LastUpdated.Equal(later) {
		t.Errorf("unexpected case after update: %+v", c)
	}
	if _, err := s.UpdateCaseStatus(ctx, 2, StatusPaid, later); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	stats, err := s.CaseStats(ctx)
	if err != nil {
		t.Fatalf("CaseStats failed: %v", err)
	}
	if stats.Total != 1 || stats.ByStatus[StatusPaid] != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestUserLifecycle(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	u := &User{Username: "shark", Email: "shark@example.com", Role: RoleAgency, AgencyName: "Shark Recovery", PasswordHash: "x", IsActive: true}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.ID == uuid.Nil {
		t.Fatal("expected id to be assigned")
	}
	if err := s.CreateUser(ctx, &User{Username: "SHARK", Email: "b@example.com", Role: RoleAdmin}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if err := s.TouchLastLogin(ctx, u.ID, time.Now().UTC()); err != nil {
		t.Fatalf("TouchLastLogin failed: %v", err)
	}
	got, err := s.GetUserByUsername(ctx, "shark")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if got.LastLoginAt == nil {
		t.Error("expected last login to be recorded")
	}
	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := s.GetUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
