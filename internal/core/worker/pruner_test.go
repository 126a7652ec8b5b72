package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/replikit/internal/core/domain"
	"github.com/vietddude/replikit/internal/infra/storage"
	"github.com/vietddude/replikit/internal/infra/storage/memory"
)

func TestPruner_PruneOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	repo := memory.NewPredictionRepo()

	for _, s := range []domain.Snapshot{
		{ID: "old-done", Status: domain.StatusSucceeded, UpdatedAt: now.Add(-48 * time.Hour)},
		{ID: "old-failed", Status: domain.StatusFailed, UpdatedAt: now.Add(-25 * time.Hour)},
		{ID: "old-running", Status: domain.StatusProcessing, UpdatedAt: now.Add(-48 * time.Hour)},
		{ID: "new-done", Status: domain.StatusSucceeded, UpdatedAt: now.Add(-time.Hour)},
	} {
		if err := repo.Save(ctx, s); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	p := NewPruner(24*time.Hour, repo)
	p.now = func() time.Time { return now }

	n, err := p.PruneOnce(ctx)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Errorf("pruned %d, want 2", n)
	}

	for _, id := range []string{"old-done", "old-failed"} {
		if _, err := repo.Get(ctx, id); !errors.Is(err, storage.ErrPredictionNotFound) {
			t.Errorf("%s should be pruned, got %v", id, err)
		}
	}
	for _, id := range []string{"old-running", "new-done"} {
		if _, err := repo.Get(ctx, id); err != nil {
			t.Errorf("%s should be kept: %v", id, err)
		}
	}
}

func TestPruner_Disabled(t *testing.T) {
	repo := memory.NewPredictionRepo()
	if err := repo.Save(context.Background(), domain.Snapshot{ID: "x", Status: domain.StatusSucceeded}); err != nil {
		t.Fatalf("save: %v", err)
	}

	p := NewPruner(0, repo)
	n, err := p.PruneOnce(context.Background())
	if err != nil || n != 0 {
		t.Errorf("disabled pruner removed %d (%v)", n, err)
	}

	done := make(chan struct{})
	go func() {
		p.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return immediately when retention is disabled")
	}
}
