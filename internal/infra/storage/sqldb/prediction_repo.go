package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/replikit/internal/core/domain"
	"github.com/vietddude/replikit/internal/infra/storage"
	"github.com/vietddude/replikit/internal/metrics"
)

const predictionColumns = `id, version, source, status, error, predict_time, output, created_at, updated_at`

type predictionRow struct {
	ID          string          `db:"id"`
	Version     string          `db:"version"`
	Source      string          `db:"source"`
	Status      string          `db:"status"`
	Error       string          `db:"error"`
	PredictTime sql.NullFloat64 `db:"predict_time"`
	Output      sql.NullString  `db:"output"`
	CreatedAt   int64           `db:"created_at"`
	UpdatedAt   int64           `db:"updated_at"`
}

func toRow(s domain.Snapshot) predictionRow {
	updated := s.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	row := predictionRow{
		ID:        s.ID,
		Version:   s.Version,
		Source:    s.Source,
		Status:    string(s.Status),
		Error:     s.Error,
		CreatedAt: updated.UnixMilli(),
		UpdatedAt: updated.UnixMilli(),
	}
	if s.PredictTime != nil {
		row.PredictTime = sql.NullFloat64{Float64: *s.PredictTime, Valid: true}
	}
	if len(s.Output) > 0 {
		row.Output = sql.NullString{String: string(s.Output), Valid: true}
	}
	return row
}

func (r predictionRow) toSnapshot() *domain.Snapshot {
	s := &domain.Snapshot{
		ID:        r.ID,
		Version:   r.Version,
		Source:    r.Source,
		Status:    domain.Status(r.Status),
		Error:     r.Error,
		UpdatedAt: time.UnixMilli(r.UpdatedAt),
	}
	if r.PredictTime.Valid {
		v := r.PredictTime.Float64
		s.PredictTime = &v
	}
	if r.Output.Valid {
		s.Output = json.RawMessage(r.Output.String)
	}
	return s
}

// PredictionRepo implements storage.PredictionRepository using SQL.
type PredictionRepo struct {
	db *DB
}

// NewPredictionRepo creates a new SQL prediction repository.
func NewPredictionRepo(db *DB) *PredictionRepo {
	return &PredictionRepo{db: db}
}

// Save upserts the snapshot. created_at keeps the first value written.
func (r *PredictionRepo) Save(ctx context.Context, s domain.Snapshot) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO predictions (`+predictionColumns+`)
		VALUES (:id, :version, :source, :status, :error, :predict_time, :output, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			version = excluded.version,
			source = excluded.source,
			status = excluded.status,
			error = excluded.error,
			predict_time = excluded.predict_time,
			output = excluded.output,
			updated_at = excluded.updated_at`,
		toRow(s),
	)
	if err != nil {
		return fmt.Errorf("failed to save prediction %s: %w", s.ID, err)
	}
	metrics.SnapshotsStored.WithLabelValues(r.db.driver).Inc()
	return nil
}

// Record stores a snapshot observed by the lifecycle.
func (r *PredictionRepo) Record(ctx context.Context, s domain.Snapshot) error {
	return r.Save(ctx, s)
}

// Get retrieves the latest snapshot by prediction ID.
func (r *PredictionRepo) Get(ctx context.Context, id string) (*domain.Snapshot, error) {
	var row predictionRow
	query := r.db.Rebind(`SELECT ` + predictionColumns + ` FROM predictions WHERE id = ?`)
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrPredictionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction %s: %w", id, err)
	}
	return row.toSnapshot(), nil
}

// ListPending returns starting and processing predictions, oldest update first.
func (r *PredictionRepo) ListPending(ctx context.Context, limit int) ([]*domain.Snapshot, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions
		WHERE status IN (?, ?)
		ORDER BY updated_at ASC, id ASC`
	args := []any{string(domain.StatusStarting), string(domain.StatusProcessing)}
	return r.list(ctx, query, args, limit)
}

// List returns predictions, newest update first.
func (r *PredictionRepo) List(ctx context.Context, limit int) ([]*domain.Snapshot, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions
		ORDER BY updated_at DESC, id ASC`
	return r.list(ctx, query, nil, limit)
}

// DeleteFinishedBefore removes terminal predictions last updated before cutoff.
func (r *PredictionRepo) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := r.db.Rebind(`DELETE FROM predictions WHERE status IN (?, ?, ?) AND updated_at < ?`)
	res, err := r.db.ExecContext(ctx, query,
		string(domain.StatusSucceeded),
		string(domain.StatusFailed),
		string(domain.StatusCanceled),
		cutoff.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune predictions: %w", err)
	}
	return res.RowsAffected()
}

func (r *PredictionRepo) list(ctx context.Context, query string, args []any, limit int) ([]*domain.Snapshot, error) {
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []predictionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}

	out := make([]*domain.Snapshot, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toSnapshot())
	}
	return out, nil
}
