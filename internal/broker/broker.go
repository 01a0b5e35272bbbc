package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/Collector/internal/auth"
	"github.com/MikeSquared-Agency/Collector/internal/config"
	"github.com/MikeSquared-Agency/Collector/internal/hermes"
	"github.com/MikeSquared-Agency/Collector/internal/metrics"
	"github.com/MikeSquared-Agency/Collector/internal/store"
)

var ErrForbidden = errors.New("case belongs to another agency")

// Broker owns case mutations after ingestion: status updates, re-allocation
// and the periodic stats report.
type Broker struct {
	store   store.Store
	hermes  hermes.Client
	events  *hermes.Publisher
	metrics *metrics.Metrics
	cfg     *config.Config
	logger  *slog.Logger
	now     func() time.Time

	reallocMu sync.Mutex

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func New(s store.Store, h hermes.Client, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Broker {
	logger = logger.With("component", "broker")
	return &Broker{
		store:   s,
		hermes:  h,
		events:  hermes.NewPublisher(h, logger),
		metrics: m,
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
		stopCh:  make(chan struct{}),
	}
}

func (b *Broker) Start(ctx context.Context) {
	b.wg.Add(1)
	go b.statsLoop(ctx)
}

func (b *Broker) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
	b.wg.Wait()
}

// UpdateStatus moves a case to a new status on behalf of actor. Only the
// status and last-updated stamp change.
func (b *Broker) UpdateStatus(ctx context.Context, actor auth.Actor, id int64, raw string) (*store.Case, error) {
	status, err := store.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	current, err := b.store.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAccess(current) {
		return nil, ErrForbidden
	}
	if !store.CanTransition(current.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", store.ErrInvalidTransition, current.Status, status)
	}

	now := b.now()
	updated, err := b.store.UpdateCaseStatus(ctx, id, status, now)
	if err != nil {
		return nil, err
	}

	b.metrics.ObserveStatusChange(string(status))
	b.events.Publish(hermes.SubjectCaseStatus(id), hermes.CaseStatusChangedEvent{
		CaseID:     id,
		From:       string(current.Status),
		To:         string(status),
		AssignedTo: string(updated.AssignedTo),
		ChangedBy:  actor.Username,
		Timestamp:  now,
	})
	b.logger.Info("case status updated",
		"case_id", id,
		"from", current.Status,
		"to", status,
		"actor", actor.Username,
	)
	return updated, nil
}

type ReallocationResult struct {
	Examined int               `json:"examined"`
	Rescored int               `json:"rescored"`
	Moved    int               `json:"moved"`
	Moves    []hermes.CaseMove `json:"moves"`
}

// Reallocate re-scores every Pending case and persists assessments that no
// longer match the scoring rules. Cases in any other status keep their agency.
func (b *Broker) Reallocate(ctx context.Context) (*ReallocationResult, error) {
	b.reallocMu.Lock()
	defer b.reallocMu.Unlock()

	pending := store.StatusPending
	cases, err := b.store.ListCases(ctx, store.CaseFilter{Status: &pending})
	if err != nil {
		return nil, fmt.Errorf("list pending cases: %w", err)
	}

	res := &ReallocationResult{Examined: len(cases), Moves: []hermes.CaseMove{}}
	for _, c := range cases {
		a := c.Assess()
		if a == c.Assessment() {
			continue
		}
		if err := b.store.UpdateCaseAssessment(ctx, c.ID, a); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("update case %d: %w", c.ID, err)
		}
		res.Rescored++
		if a.Agency != c.AssignedTo {
			res.Moved++
			res.Moves = append(res.Moves, hermes.CaseMove{
				CaseID:     c.ID,
				From:       string(c.AssignedTo),
				To:         string(a.Agency),
				Propensity: a.Propensity,
			})
		}
	}

	b.events.Publish(hermes.SubjectCasesReallocated, hermes.CasesReallocatedEvent{
		Examined:  res.Examined,
		Moved:     res.Moved,
		Moves:     res.Moves,
		Timestamp: b.now(),
	})
	b.logger.Info("reallocation complete", "examined", res.Examined, "rescored", res.Rescored, "moved", res.Moved)
	return res, nil
}

// SetupSubscriptions registers NATS command handlers.
func (b *Broker) SetupSubscriptions() {
	if b.hermes == nil {
		return
	}

	err := b.hermes.Subscribe(hermes.SubjectReallocateCommand, func(_ string, data []byte) {
		var cmd hermes.ReallocateCommand
		if len(data) > 0 {
			if err := json.Unmarshal(data, &cmd); err != nil {
				b.logger.Warn("invalid reallocate command", "error", err)
				return
			}
		}
		b.logger.Info("reallocation requested over nats", "requested_by", cmd.RequestedBy)
		if _, err := b.Reallocate(context.Background()); err != nil {
			b.logger.Error("reallocation failed", "error", err)
		}
	})
	if err != nil {
		b.logger.Warn("failed to subscribe", "subject", hermes.SubjectReallocateCommand, "error", err)
	}
}
