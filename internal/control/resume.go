package control

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/replikit/internal/core/domain"
)

// ResumeConfig bounds a resume run.
type ResumeConfig struct {
	Concurrency int // parallel waits, default 4
	Limit       int // max predictions, 0 = all
}

// ResumeReport counts how resumed predictions ended.
type ResumeReport struct {
	Resumed    int
	Succeeded  int
	Terminated int
	TimedOut   int
	Failed     int
}

// PendingIDs lists stored predictions that have not reached a terminal
// state, merging the repository and the Redis pending index.
func (a *App) PendingIDs(ctx context.Context, limit int) ([]string, error) {
	pending, err := a.repo.ListPending(ctx, limit)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(pending))
	ids := make([]string, 0, len(pending))
	for _, s := range pending {
		seen[s.ID] = true
		ids = append(ids, s.ID)
	}

	if a.redisClient != nil {
		cached, err := a.redisClient.PendingIDs(ctx, limit)
		if err != nil {
			a.log.Warn("Failed to read Redis pending index", "error", err)
		}
		for _, id := range cached {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Resume re-polls every pending prediction with the configured strategy.
// Individual failures are counted, not returned; only context
// cancellation aborts the run.
func (a *App) Resume(ctx context.Context, cfg ResumeConfig) (ResumeReport, error) {
	var report ResumeReport

	ids, err := a.PendingIDs(ctx, cfg.Limit)
	if err != nil {
		return report, err
	}
	if len(ids) == 0 {
		a.log.Info("No pending predictions to resume")
		return report, nil
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	a.log.Info("Resuming predictions", "count", len(ids), "concurrency", concurrency)
	for _, id := range ids {
		g.Go(func() error {
			outcome := a.resumeOne(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			report.Resumed++
			switch {
			case outcome == nil:
				report.Succeeded++
			case errors.Is(outcome, domain.ErrTerminated):
				report.Terminated++
			case errors.Is(outcome, domain.ErrTimeout):
				report.TimedOut++
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				report.Failed++
			}
			return nil
		})
	}

	err = g.Wait()
	a.log.Info("Resume finished",
		"succeeded", report.Succeeded,
		"terminated", report.Terminated,
		"timed_out", report.TimedOut,
		"failed", report.Failed,
	)
	return report, err
}

func (a *App) resumeOne(ctx context.Context, id string) error {
	p, err := a.lifecycle.Fetch(ctx, id)
	if err != nil {
		a.log.Warn("Failed to fetch prediction", "id", id, "error", err)
		return err
	}
	if _, err := a.lifecycle.Await(ctx, p, a.strategy); err != nil {
		a.log.Warn("Prediction did not succeed", "id", id, "error", err)
		return err
	}
	return nil
}
