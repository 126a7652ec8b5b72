package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vietddude/replikit/internal/core/domain"
	"github.com/vietddude/replikit/internal/infra/storage"
	"github.com/vietddude/replikit/internal/metrics"
)

// PredictionRepo is an in-process storage.PredictionRepository.
type PredictionRepo struct {
	snapshots map[string]domain.Snapshot
	mu        sync.RWMutex
}

func NewPredictionRepo() *PredictionRepo {
	return &PredictionRepo{
		snapshots: make(map[string]domain.Snapshot),
	}
}

func (r *PredictionRepo) Save(ctx context.Context, s domain.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(s.Output) > 0 {
		s.Output = append([]byte(nil), s.Output...)
	}
	r.snapshots[s.ID] = s
	metrics.SnapshotsStored.WithLabelValues("memory").Inc()
	return nil
}

func (r *PredictionRepo) Record(ctx context.Context, s domain.Snapshot) error {
	return r.Save(ctx, s)
}

func (r *PredictionRepo) Get(ctx context.Context, id string) (*domain.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[id]
	if !ok {
		return nil, storage.ErrPredictionNotFound
	}
	return &s, nil
}

func (r *PredictionRepo) ListPending(ctx context.Context, limit int) ([]*domain.Snapshot, error) {
	out := r.collect(func(s domain.Snapshot) bool { return !s.Status.IsTerminated() })
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return head(out, limit), nil
}

func (r *PredictionRepo) List(ctx context.Context, limit int) ([]*domain.Snapshot, error) {
	out := r.collect(func(domain.Snapshot) bool { return true })
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return head(out, limit), nil
}

func (r *PredictionRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.snapshots {
		if s.Status.IsTerminated() && s.UpdatedAt.Before(cutoff) {
			delete(r.snapshots, id)
			n++
		}
	}
	return n, nil
}

func (r *PredictionRepo) collect(keep func(domain.Snapshot) bool) []*domain.Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Snapshot, 0, len(r.snapshots))
	for _, s := range r.snapshots {
		if keep(s) {
			s := s
			out = append(out, &s)
		}
	}
	return out
}

// head truncates to limit; limit <= 0 means no limit.
func head(s []*domain.Snapshot, limit int) []*domain.Snapshot {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
