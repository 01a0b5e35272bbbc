package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Collector/internal/hermes"
	"github.com/MikeSquared-Agency/Collector/internal/metrics"
	"github.com/MikeSquared-Agency/Collector/internal/scoring"
	"github.com/MikeSquared-Agency/Collector/internal/store"
)

// Batch is the result of one ingestion.
type Batch struct {
	*Result
	ID         uuid.UUID `json:"batch_id"`
	UploadedBy string    `json:"uploaded_by"`
}

// Pipeline appends uploaded cases to the store. Ingestions run one at a time
// so the id range read from the store is still free when the batch lands.
type Pipeline struct {
	mu      sync.Mutex
	store   store.Store
	events  *hermes.Publisher
	metrics *metrics.Metrics
	logger  *slog.Logger
	maxRows int
	now     func() time.Time
}

func NewPipeline(s store.Store, events *hermes.Publisher, m *metrics.Metrics, maxRows int, logger *slog.Logger) *Pipeline {
	if maxRows == 0 {
		maxRows = DefaultMaxRows
	}
	return &Pipeline{
		store:   s,
		events:  events,
		metrics: m,
		logger:  logger.With("component", "ingest"),
		maxRows: maxRows,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (p *Pipeline) Ingest(ctx context.Context, r io.Reader, uploadedBy string) (*Batch, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	startID, err := p.store.MaxCaseID(ctx)
	if err != nil {
		return nil, fmt.Errorf("read max case id: %w", err)
	}
	now := p.now()
	res, err := ParseLimited(r, startID, now, p.maxRows)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(res.Cases) > 0 {
		if err := p.store.AppendCases(ctx, res.Cases); err != nil {
			return nil, fmt.Errorf("append cases: %w", err)
		}
	}

	batch := &Batch{Result: res, ID: uuid.New(), UploadedBy: uploadedBy}
	p.metrics.ObserveIngest(res.Accepted(), res.Rejected(), res.ByAgency())
	p.publish(batch, now)

	p.logger.Info("cases ingested",
		"batch_id", batch.ID,
		"uploaded_by", uploadedBy,
		"rows", res.Rows,
		"accepted", res.Accepted(),
		"rejected", res.Rejected(),
		"first_id", startID+1,
	)
	return batch, nil
}

func (p *Pipeline) publish(b *Batch, now time.Time) {
	if b.Rows == 0 {
		return
	}
	evt := hermes.CasesIngestedEvent{
		BatchID:    b.ID,
		UploadedBy: b.UploadedBy,
		Accepted:   b.Accepted(),
		Rejected:   b.Rejected(),
		ByAgency:   b.ByAgency(),
		Timestamp:  now,
	}
	if n := len(b.Cases); n > 0 {
		evt.FirstCaseID = b.Cases[0].ID
		evt.LastCaseID = b.Cases[n-1].ID
	}
	p.events.Publish(hermes.SubjectCasesIngested, evt)

	for _, c := range b.Cases {
		p.events.Publish(hermes.SubjectCaseCreated(c.ID), hermes.CaseCreatedEvent{
			CaseID:           c.ID,
			BatchID:          b.ID,
			CustomerID:       c.CustomerID,
			Amount:           c.Amount,
			DaysOverdue:      c.DaysOverdue,
			PreviousContacts: c.PreviousContacts,
			Propensity:       c.Propensity,
			AssignedTo:       string(c.AssignedTo),
			RiskCategory:     c.RiskCategory,
			ScoringVersion:   scoring.Version,
			Timestamp:        now,
		})
	}
}

// Seed loads the demo portfolio when the store holds no cases. It returns a
// nil batch when the store is already populated.
func (p *Pipeline) Seed(ctx context.Context) (*Batch, error) {
	max, err := p.store.MaxCaseID(ctx)
	if err != nil {
		return nil, fmt.Errorf("read max case id: %w", err)
	}
	if max > 0 {
		p.logger.Debug("store already populated, skipping seed", "max_case_id", max)
		return nil, nil
	}
	return p.Ingest(ctx, strings.NewReader(SeedCSV()), "seed")
}
