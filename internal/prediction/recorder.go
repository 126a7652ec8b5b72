package prediction

import (
	"context"
	"errors"

	"github.com/vietddude/replikit/internal/core/domain"
)

// Recorder stores prediction snapshots as they are observed.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, s domain.Snapshot) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, s domain.Snapshot) error

func (f RecorderFunc) Record(ctx context.Context, s domain.Snapshot) error {
	return f(ctx, s)
}

// Recorders fans a snapshot out to every non-nil recorder.
// All recorders are called; their errors are joined.
func Recorders(rs ...Recorder) Recorder {
	var out multiRecorder
	for _, r := range rs {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type multiRecorder []Recorder

func (m multiRecorder) Record(ctx context.Context, s domain.Snapshot) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
