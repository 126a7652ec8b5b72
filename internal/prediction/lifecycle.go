// Package prediction drives a prediction from submission to a terminal state.
//
// CreateAndAwait submits a job and, when asked to, polls it with a
// retry.Strategy. Waits happen before each poll, never before the first
// submission, and are interrupted by context cancellation. Every snapshot
// observed is handed to the configured Recorder.
package prediction

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/replikit/internal/core/domain"
	"github.com/vietddude/replikit/internal/core/retry"
	"github.com/vietddude/replikit/internal/core/value"
	"github.com/vietddude/replikit/internal/infra/api"
	"github.com/vietddude/replikit/internal/metrics"
)

// DefaultStrategy polls every two seconds for at most a minute.
var DefaultStrategy retry.Strategy = retry.Constant{
	MaxAttempts: retry.Unbounded,
	Interval:    2 * time.Second,
	Timeout:     60 * time.Second,
}

// Request describes a prediction to create.
type Request struct {
	Version string
	Input   value.Value
	// Webhook is passed through untouched.
	Webhook string
}

// Expect tells CreateAndAwait whether to wait for a result.
type Expect struct {
	await    bool
	strategy retry.Strategy
}

// ExpectNone returns right after submission.
func ExpectNone() Expect {
	return Expect{}
}

// ExpectResult polls with s until the prediction terminates.
// A nil strategy means DefaultStrategy.
func ExpectResult(s retry.Strategy) Expect {
	if s == nil {
		s = DefaultStrategy
	}
	return Expect{await: true, strategy: s}
}

// Config holds optional lifecycle collaborators.
type Config struct {
	Recorder Recorder
	Logger   *slog.Logger
	// Now is the clock used for deadlines. Defaults to time.Now.
	Now func() time.Time
}

// Lifecycle submits, fetches and awaits predictions whose output decodes into Out.
type Lifecycle[Out any] struct {
	client   *api.Client
	recorder Recorder
	log      *slog.Logger
	now      func() time.Time
}

// New creates a lifecycle bound to client.
func New[Out any](client *api.Client, cfg Config) *Lifecycle[Out] {
	l := &Lifecycle[Out]{
		client:   client,
		recorder: cfg.Recorder,
		log:      cfg.Logger,
		now:      cfg.Now,
	}
	if l.log == nil {
		l.log = slog.Default().With("component", "prediction")
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// Submit creates a prediction with a single request.
func (l *Lifecycle[Out]) Submit(ctx context.Context, req Request) (*domain.Prediction[Out], error) {
	p, err := api.CreatePrediction[Out](ctx, l.client, api.CreateRequest{
		Version: req.Version,
		Input:   req.Input,
		Webhook: req.Webhook,
	})
	if err != nil {
		return nil, err
	}

	metrics.PredictionsSubmitted.Inc()
	l.log.Info("Prediction submitted", "id", p.ID, "version", p.Version, "status", p.Status)
	l.record(ctx, p)
	return p, nil
}

// Fetch retrieves the current snapshot of id. It does not retry.
func (l *Lifecycle[Out]) Fetch(ctx context.Context, id string) (*domain.Prediction[Out], error) {
	p, err := api.GetPrediction[Out](ctx, l.client, id)
	if err != nil {
		return nil, err
	}
	l.record(ctx, p)
	return p, nil
}

// Cancel asks the API to stop id.
func (l *Lifecycle[Out]) Cancel(ctx context.Context, id string) (*domain.Prediction[Out], error) {
	p, err := api.CancelPrediction[Out](ctx, l.client, id)
	if err != nil {
		return nil, err
	}
	l.log.Info("Prediction cancel requested", "id", p.ID, "status", p.Status)
	l.record(ctx, p)
	return p, nil
}

// CreateAndAwait submits req and, depending on expect, waits for the result.
//
// With ExpectResult the returned prediction is succeeded, or the error is
// domain.ErrTerminated, domain.ErrTimeout, a context error or an API error.
// Once the prediction exists, errors come with its latest snapshot so the
// caller keeps the ID.
func (l *Lifecycle[Out]) CreateAndAwait(ctx context.Context, req Request, expect Expect) (*domain.Prediction[Out], error) {
	p, err := l.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	if !expect.await {
		return p, nil
	}
	return l.Await(ctx, p, expect.strategy)
}

// Await polls p until it terminates or strategy runs out.
func (l *Lifecycle[Out]) Await(ctx context.Context, p *domain.Prediction[Out], strategy retry.Strategy) (*domain.Prediction[Out], error) {
	if strategy == nil {
		strategy = DefaultStrategy
	}

	start := l.now()
	seq := strategy.Begin(l.now)
	polls := 0
	log := l.log.With("id", p.ID)

	finish := func(outcome string) {
		metrics.PredictionOutcomesTotal.WithLabelValues(outcome).Inc()
		metrics.PredictionWaitSeconds.Observe(l.now().Sub(start).Seconds())
	}

	for {
		if err := p.Validate(); err != nil {
			finish("error")
			return p, fmt.Errorf("await prediction %s: %w", p.ID, &domain.InvalidResponseError{Err: err})
		}
		switch p.Status {
		case domain.StatusSucceeded:
			finish("succeeded")
			log.Info("Prediction succeeded", "polls", polls)
			return p, nil
		case domain.StatusFailed, domain.StatusCanceled:
			finish(string(p.Status))
			log.Warn("Prediction terminated", "status", p.Status, "error", p.Error)
			return p, &domain.TerminatedError{ID: p.ID, Status: p.Status, Message: p.Error}
		}

		wait, ok := seq.Next()
		if !ok {
			finish("timeout")
			log.Warn("Gave up waiting for prediction", "polls", polls, "status", p.Status)
			return p, &domain.TimeoutError{
				ID:       p.ID,
				Polls:    polls,
				Elapsed:  l.now().Sub(start),
				LastSeen: p.Status,
			}
		}

		if err := sleep(ctx, wait); err != nil {
			finish("interrupted")
			return p, fmt.Errorf("await prediction %s: %w", p.ID, err)
		}

		next, err := l.Fetch(ctx, p.ID)
		polls++
		if err != nil {
			finish("error")
			log.Error("Failed to poll prediction", "polls", polls, "error", err)
			return p, fmt.Errorf("await prediction %s: %w", p.ID, err)
		}
		p = next
		metrics.PredictionPollsTotal.WithLabelValues(string(p.Status)).Inc()
		log.Debug("Polled prediction", "polls", polls, "status", p.Status)
	}
}

// record hands p to the recorder. Failures are logged only.
func (l *Lifecycle[Out]) record(ctx context.Context, p *domain.Prediction[Out]) {
	if l.recorder == nil {
		return
	}
	s, err := p.Snapshot()
	if err != nil {
		l.log.Warn("Failed to snapshot prediction", "id", p.ID, "error", err)
		return
	}
	s.UpdatedAt = l.now()

	if err := l.recorder.Record(context.WithoutCancel(ctx), s); err != nil {
		metrics.SnapshotRecordErrors.WithLabelValues(fmt.Sprintf("%T", l.recorder)).Inc()
		l.log.Warn("Failed to record snapshot", "id", p.ID, "error", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
