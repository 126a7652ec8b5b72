package sqldb

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vietddude/replikit/internal/core/domain"
	"github.com/vietddude/replikit/internal/infra/storage"
)

var _ storage.PredictionRepository = (*PredictionRepo)(nil)

func newTestRepo(t *testing.T) *PredictionRepo {
	t.Helper()
	ctx := context.Background()

	db, err := NewDB(ctx, Config{Driver: "sqlite", URL: filepath.Join(t.TempDir(), "replikit.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewPredictionRepo(db)
}

func TestNewDB_UnsupportedDriver(t *testing.T) {
	if _, err := NewDB(context.Background(), Config{Driver: "mysql"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestPredictionRepo_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, storage.ErrPredictionNotFound) {
		t.Fatalf("expected ErrPredictionNotFound, got %v", err)
	}

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Save(ctx, domain.Snapshot{
		ID:        "p1",
		Version:   "v1",
		Source:    "api",
		Status:    domain.StatusStarting,
		UpdatedAt: start,
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusStarting || got.PredictTime != nil || got.Output != nil {
		t.Errorf("unexpected snapshot %+v", got)
	}

	predictTime := 3.25
	if err := repo.Record(ctx, domain.Snapshot{
		ID:          "p1",
		Version:     "v1",
		Source:      "api",
		Status:      domain.StatusSucceeded,
		PredictTime: &predictTime,
		Output:      json.RawMessage(`{"image":"https://x/1.png"}`),
		UpdatedAt:   start.Add(5 * time.Second),
	}); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err = repo.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusSucceeded {
		t.Errorf("status = %s", got.Status)
	}
	if got.PredictTime == nil || *got.PredictTime != predictTime {
		t.Errorf("predict time = %v", got.PredictTime)
	}
	if string(got.Output) != `{"image":"https://x/1.png"}` {
		t.Errorf("output = %s", got.Output)
	}
	if !got.UpdatedAt.Equal(start.Add(5 * time.Second)) {
		t.Errorf("updated at = %s", got.UpdatedAt)
	}

	var created int64
	if err := repo.db.GetContext(ctx, &created, `SELECT created_at FROM predictions WHERE id = ?`, "p1"); err != nil {
		t.Fatalf("read created_at: %v", err)
	}
	if created != start.UnixMilli() {
		t.Errorf("created_at was overwritten: %d", created)
	}
}

func TestPredictionRepo_Listing(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for _, s := range []domain.Snapshot{
		{ID: "a", Status: domain.StatusProcessing, UpdatedAt: base.Add(3 * time.Minute)},
		{ID: "b", Status: domain.StatusSucceeded, UpdatedAt: base.Add(4 * time.Minute)},
		{ID: "c", Status: domain.StatusStarting, UpdatedAt: base.Add(1 * time.Minute)},
		{ID: "d", Status: domain.StatusCanceled, UpdatedAt: base},
	} {
		if err := repo.Save(ctx, s); err != nil {
			t.Fatalf("save %s: %v", s.ID, err)
		}
	}

	pending, err := repo.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if ids(pending) != "c,a" {
		t.Errorf("pending = %s, want c,a", ids(pending))
	}

	all, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if ids(all) != "b,a,c,d" {
		t.Errorf("all = %s, want b,a,c,d", ids(all))
	}

	limited, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if ids(limited) != "b,a" {
		t.Errorf("limited = %s, want b,a", ids(limited))
	}
}

func TestPredictionRepo_DeleteFinishedBefore(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	cutoff := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	for _, s := range []domain.Snapshot{
		{ID: "old-ok", Status: domain.StatusSucceeded, UpdatedAt: cutoff.Add(-time.Hour)},
		{ID: "old-canceled", Status: domain.StatusCanceled, UpdatedAt: cutoff.Add(-time.Minute)},
		{ID: "old-running", Status: domain.StatusProcessing, UpdatedAt: cutoff.Add(-time.Hour)},
		{ID: "new-ok", Status: domain.StatusSucceeded, UpdatedAt: cutoff.Add(time.Hour)},
	} {
		if err := repo.Save(ctx, s); err != nil {
			t.Fatalf("save %s: %v", s.ID, err)
		}
	}

	n, err := repo.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d rows, want 2", n)
	}

	all, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if ids(all) != "new-ok,old-running" {
		t.Errorf("remaining = %s", ids(all))
	}
}

func ids(s []*domain.Snapshot) string {
	out := ""
	for i, snap := range s {
		if i > 0 {
			out += ","
		}
		out += snap.ID
	}
	return out
}
