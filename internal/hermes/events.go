package hermes

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CasesIngestedEvent struct {
	BatchID     uuid.UUID      `json:"batch_id"`
	UploadedBy  string         `json:"uploaded_by"`
	Accepted    int            `json:"accepted"`
	Rejected    int            `json:"rejected"`
	FirstCaseID int64          `json:"first_case_id,omitempty"`
	LastCaseID  int64          `json:"last_case_id,omitempty"`
	ByAgency    map[string]int `json:"by_agency"`
	Timestamp   time.Time      `json:"timestamp"`
}

// CaseCreatedEvent records the scoring outcome for one ingested case,
// including the inputs and the rule version that produced it.
type CaseCreatedEvent struct {
	CaseID           int64           `json:"case_id"`
	BatchID          uuid.UUID       `json:"batch_id"`
	CustomerID       string          `json:"customer_id"`
	Amount           decimal.Decimal `json:"amount"`
	DaysOverdue      int             `json:"days_overdue"`
	PreviousContacts int             `json:"previous_contacts"`
	Propensity       int             `json:"propensity"`
	AssignedTo       string          `json:"assigned_to"`
	RiskCategory     string          `json:"risk_category"`
	ScoringVersion   string          `json:"scoring_version"`
	Timestamp        time.Time       `json:"timestamp"`
}

type CaseStatusChangedEvent struct {
	CaseID     int64     `json:"case_id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	AssignedTo string    `json:"assigned_to"`
	ChangedBy  string    `json:"changed_by"`
	Timestamp  time.Time `json:"timestamp"`
}

type CaseMove struct {
	CaseID     int64  `json:"case_id"`
	From       string `json:"from"`
	To         string `json:"to"`
	Propensity int    `json:"propensity"`
}

type CasesReallocatedEvent struct {
	Examined  int        `json:"examined"`
	Moved     int        `json:"moved"`
	Moves     []CaseMove `json:"moves,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

type StatsEvent struct {
	Total       int             `json:"total"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ByStatus    map[string]int  `json:"by_status"`
	ByAgency    map[string]int  `json:"by_agency"`
	Timestamp   time.Time       `json:"timestamp"`
}

type ReallocateCommand struct {
	RequestedBy string `json:"requested_by,omitempty"`
}
