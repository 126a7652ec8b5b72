package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/replikit/internal/infra/storage"
)

// Pruner deletes finished predictions based on retention policy.
type Pruner struct {
	retention time.Duration
	repo      storage.PredictionRepository
	log       *slog.Logger
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, repo storage.PredictionRepository) *Pruner {
	return &Pruner{
		retention: retention,
		repo:      repo,
		log:       slog.Default().With("component", "pruner"),
		now:       time.Now,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check every 10% of the retention period, between 1 minute and 1 hour
	interval := min(p.retention/10, 1*time.Hour)
	interval = max(interval, 1*time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

// PruneOnce deletes finished predictions older than the retention period.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	if p.retention <= 0 {
		return 0, nil
	}
	return p.repo.DeleteFinishedBefore(ctx, p.now().Add(-p.retention))
}

func (p *Pruner) prune(ctx context.Context) {
	n, err := p.PruneOnce(ctx)
	if err != nil {
		p.log.Error("Failed to prune predictions", "error", err)
		return
	}
	if n > 0 {
		p.log.Info("Pruned finished predictions", "count", n, "retention", p.retention)
	}
}
