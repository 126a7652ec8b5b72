package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/replikit/internal/core/domain"
	"github.com/vietddude/replikit/internal/infra/storage"
)

var _ storage.PredictionRepository = (*PredictionRepo)(nil)

func TestPredictionRepo_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewPredictionRepo()

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, storage.ErrPredictionNotFound) {
		t.Fatalf("expected ErrPredictionNotFound, got %v", err)
	}

	now := time.Now()
	if err := repo.Save(ctx, domain.Snapshot{ID: "p1", Status: domain.StatusStarting, UpdatedAt: now}); err != nil {
		t.Fatalf("save: %v", err)
	}
	out := json.RawMessage(`["a"]`)
	if err := repo.Record(ctx, domain.Snapshot{ID: "p1", Status: domain.StatusSucceeded, Output: out, UpdatedAt: now.Add(time.Second)}); err != nil {
		t.Fatalf("record: %v", err)
	}
	out[1] = 'X'

	got, err := repo.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusSucceeded {
		t.Errorf("status = %s, want latest snapshot", got.Status)
	}
	if string(got.Output) != `["a"]` {
		t.Errorf("output aliased caller buffer: %s", got.Output)
	}
}

func TestPredictionRepo_Listing(t *testing.T) {
	ctx := context.Background()
	repo := NewPredictionRepo()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	snapshots := []domain.Snapshot{
		{ID: "a", Status: domain.StatusProcessing, UpdatedAt: base.Add(3 * time.Minute)},
		{ID: "b", Status: domain.StatusSucceeded, UpdatedAt: base.Add(4 * time.Minute)},
		{ID: "c", Status: domain.StatusStarting, UpdatedAt: base.Add(1 * time.Minute)},
		{ID: "d", Status: domain.StatusFailed, UpdatedAt: base},
		{ID: "e", Status: domain.StatusProcessing, UpdatedAt: base.Add(2 * time.Minute)},
	}
	for _, s := range snapshots {
		if err := repo.Save(ctx, s); err != nil {
			t.Fatalf("save %s: %v", s.ID, err)
		}
	}

	tests := []struct {
		name string
		list func() ([]*domain.Snapshot, error)
		want []string
	}{
		{"pending oldest first", func() ([]*domain.Snapshot, error) { return repo.ListPending(ctx, 0) }, []string{"c", "e", "a"}},
		{"pending limited", func() ([]*domain.Snapshot, error) { return repo.ListPending(ctx, 2) }, []string{"c", "e"}},
		{"all newest first", func() ([]*domain.Snapshot, error) { return repo.List(ctx, 0) }, []string{"b", "a", "e", "c", "d"}},
		{"all limited", func() ([]*domain.Snapshot, error) { return repo.List(ctx, 1) }, []string{"b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.list()
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d snapshots, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("position %d = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}
