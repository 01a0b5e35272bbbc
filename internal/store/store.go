package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeSquared-Agency/Collector/internal/scoring"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicateID       = errors.New("duplicate case id")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrUserExists        = errors.New("user already exists")
)

type CaseStatus string

const (
	StatusPending   CaseStatus = "Pending"
	StatusContacted CaseStatus = "Contacted"
	StatusPromised  CaseStatus = "Promised"
	StatusPaid      CaseStatus = "Paid"
	StatusRefused   CaseStatus = "Refused"
)

// Statuses lists every case status in workflow order.
func Statuses() []CaseStatus {
	return []CaseStatus{StatusPending, StatusContacted, StatusPromised, StatusPaid, StatusRefused}
}

// ParseStatus rejects anything outside the status enumeration.
func ParseStatus(s string) (CaseStatus, error) {
	for _, st := range Statuses() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// transitions lists, for each status, the statuses a case may move to.
// Every status may currently follow every other, so manual corrections
// stay possible; tightening the workflow is an edit to this table.
var transitions = map[CaseStatus][]CaseStatus{
	StatusPending:   Statuses(),
	StatusContacted: Statuses(),
	StatusPromised:  Statuses(),
	StatusPaid:      Statuses(),
	StatusRefused:   Statuses(),
}

func CanTransition(from, to CaseStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Case is one overdue receivable. Propensity, AssignedTo and RiskCategory are
// derived from the financial attributes and only change together.
type Case struct {
	ID               int64           `json:"id"`
	CustomerID       string          `json:"customer_id"`
	Amount           decimal.Decimal `json:"amount"`
	DaysOverdue      int             `json:"days_overdue"`
	PreviousContacts int             `json:"previous_contacts"`

	Propensity   int            `json:"propensity"`
	AssignedTo   scoring.Agency `json:"assigned_to"`
	RiskCategory string         `json:"risk_category"`

	Status      CaseStatus `json:"status"`
	LastUpdated time.Time  `json:"last_updated"`
}

// NewCase builds a Pending case and derives its scoring fields.
func NewCase(id int64, customerID string, amount decimal.Decimal, daysOverdue, previousContacts int, now time.Time) *Case {
	c := &Case{
		ID:               id,
		CustomerID:       customerID,
		Amount:           amount,
		DaysOverdue:      daysOverdue,
		PreviousContacts: previousContacts,
		Status:           StatusPending,
		LastUpdated:      now,
	}
	c.ApplyAssessment(scoring.Evaluate(amount, daysOverdue, previousContacts))
	return c
}

// Assess re-runs the scoring rules over the case's current attributes.
func (c *Case) Assess() scoring.Assessment {
	return scoring.Evaluate(c.Amount, c.DaysOverdue, c.PreviousContacts)
}

func (c *Case) ApplyAssessment(a scoring.Assessment) {
	c.Propensity = a.Propensity
	c.AssignedTo = a.Agency
	c.RiskCategory = a.RiskCategory
}

func (c *Case) Assessment() scoring.Assessment {
	return scoring.Assessment{Propensity: c.Propensity, Agency: c.AssignedTo, RiskCategory: c.RiskCategory}
}

func (c *Case) Clone() *Case {
	cp := *c
	return &cp
}

type CaseFilter struct {
	Agency scoring.Agency
	Status *CaseStatus
	Limit  int
	Offset int
}

func (f CaseFilter) Matches(c *Case) bool {
	if f.Agency != "" && c.AssignedTo != f.Agency {
		return false
	}
	if f.Status != nil && c.Status != *f.Status {
		return false
	}
	return true
}

type CaseStats struct {
	Total       int                    `json:"total"`
	TotalAmount decimal.Decimal        `json:"total_amount"`
	ByStatus    map[CaseStatus]int     `json:"by_status"`
	ByAgency    map[scoring.Agency]int `json:"by_agency"`
}

func newCaseStats() *CaseStats {
	s := &CaseStats{
		ByStatus: make(map[CaseStatus]int),
		ByAgency: make(map[scoring.Agency]int),
	}
	for _, st := range Statuses() {
		s.ByStatus[st] = 0
	}
	for _, a := range scoring.Agencies() {
		s.ByAgency[a] = 0
	}
	return s
}

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleAgency Role = "agency"
)

type User struct {
	ID           uuid.UUID      `json:"id"`
	Username     string         `json:"username"`
	Email        string         `json:"email"`
	FullName     string         `json:"full_name"`
	Role         Role           `json:"role"`
	AgencyName   scoring.Agency `json:"agency_name,omitempty"`
	PasswordHash string         `json:"-"`
	IsActive     bool           `json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
}

type LoginAttempt struct {
	Username    string    `json:"username"`
	IPAddress   string    `json:"ip_address"`
	Success     bool      `json:"success"`
	AttemptedAt time.Time `json:"attempted_at"`
}

type Store interface {
	// AppendCases adds cases atomically; it fails with ErrDuplicateID and
	// stores nothing if any id is already taken.
	AppendCases(ctx context.Context, cases []*Case) error
	GetCase(ctx context.Context, id int64) (*Case, error)
	ListCases(ctx context.Context, filter CaseFilter) ([]*Case, error)
	MaxCaseID(ctx context.Context) (int64, error)
	UpdateCaseStatus(ctx context.Context, id int64, status CaseStatus, at time.Time) (*Case, error)
	UpdateCaseAssessment(ctx context.Context, id int64, a scoring.Assessment) error
	CaseStats(ctx context.Context) (*CaseStats, error)

	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordLoginAttempt(ctx context.Context, a *LoginAttempt) error

	Close() error
}
