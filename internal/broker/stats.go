package broker

import (
	"context"
	"time"

	"github.com/MikeSquared-Agency/Collector/internal/hermes"
	"github.com/MikeSquared-Agency/Collector/internal/store"
)

func (b *Broker) statsLoop(ctx context.Context) {
	defer b.wg.Done()
	interval := b.cfg.StatsInterval()
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.reportStats(ctx)
	for {
		select {
		case <-b.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.reportStats(ctx)
		}
	}
}

func (b *Broker) reportStats(ctx context.Context) {
	if _, err := b.PublishStats(ctx); err != nil {
		b.logger.Error("failed to collect case stats", "error", err)
	}
}

// PublishStats reads portfolio counts, refreshes the gauges and publishes a
// stats event.
func (b *Broker) PublishStats(ctx context.Context) (*store.CaseStats, error) {
	stats, err := b.store.CaseStats(ctx)
	if err != nil {
		return nil, err
	}
	byStatus := make(map[string]int, len(stats.ByStatus))
	for s, n := range stats.ByStatus {
		byStatus[string(s)] = n
	}
	byAgency := make(map[string]int, len(stats.ByAgency))
	for a, n := range stats.ByAgency {
		byAgency[string(a)] = n
	}

	b.metrics.SetCaseCounts(byStatus, byAgency)
	b.events.Publish(hermes.SubjectCollectorStats, hermes.StatsEvent{
		Total:       stats.Total,
		TotalAmount: stats.TotalAmount,
		ByStatus:    byStatus,
		ByAgency:    byAgency,
		Timestamp:   b.now(),
	})
	return stats, nil
}
