package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/replikit/internal/core/domain"
)

var (
	// ErrPredictionNotFound is returned when no snapshot exists for an ID
	ErrPredictionNotFound = errors.New("prediction not found")
)

// PredictionRepository keeps the latest snapshot of each prediction.
// Implementations also satisfy prediction.Recorder through Record.
type PredictionRepository interface {
	// Save inserts or replaces the snapshot for s.ID
	Save(ctx context.Context, s domain.Snapshot) error

	// Record is Save under the recorder contract
	Record(ctx context.Context, s domain.Snapshot) error

	// Get retrieves the latest snapshot of a prediction
	Get(ctx context.Context, id string) (*domain.Snapshot, error)

	// ListPending returns non-terminal predictions, least recently updated first
	ListPending(ctx context.Context, limit int) ([]*domain.Snapshot, error)

	// List returns predictions, most recently updated first
	List(ctx context.Context, limit int) ([]*domain.Snapshot, error)

	// DeleteFinishedBefore removes terminal snapshots last updated before cutoff
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
