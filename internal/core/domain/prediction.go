package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a prediction.
// starting -> processing -> succeeded | failed | canceled; starting may jump
// straight to a terminal state and nothing leaves one.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// IsTerminated reports whether no further transitions can occur.
func (s Status) IsTerminated() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusStarting, StatusProcessing, StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// UnmarshalJSON rejects statuses outside the state machine.
func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("prediction status: %w", err)
	}
	if !Status(raw).Valid() {
		return fmt.Errorf("unknown prediction status %q", raw)
	}
	*s = Status(raw)
	return nil
}

// Metrics reports resource usage of a prediction.
type Metrics struct {
	// PredictTime is CPU or GPU time in seconds.
	PredictTime *float64 `json:"predict_time,omitempty"`
}

// URLs are API links for a prediction.
type URLs struct {
	Get    string `json:"get,omitempty"`
	Cancel string `json:"cancel,omitempty"`
}

// Prediction is one snapshot of a job run against a model version.
// Output is only present once the prediction succeeded; its shape is
// chosen by the caller.
type Prediction[Out any] struct {
	ID          string     `json:"id"`
	Version     string     `json:"version"`
	Source      string     `json:"source,omitempty"` // web or api
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Logs        string     `json:"logs,omitempty"`
	Metrics     *Metrics   `json:"metrics,omitempty"`
	Output      *Out       `json:"output,omitempty"`
	URLs        *URLs      `json:"urls,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Validate checks the fields every API snapshot must carry. A missing
// status key decodes to the zero Status, which is not a valid state.
func (p *Prediction[Out]) Validate() error {
	if p.ID == "" {
		return errors.New("prediction id is missing")
	}
	if !p.Status.Valid() {
		return fmt.Errorf("prediction %s: missing or unknown status %q", p.ID, p.Status)
	}
	return nil
}

// Snapshot projects the prediction into its storable form.
func (p *Prediction[Out]) Snapshot() (Snapshot, error) {
	s := Snapshot{
		ID:        p.ID,
		Version:   p.Version,
		Source:    p.Source,
		Status:    p.Status,
		Error:     p.Error,
		UpdatedAt: time.Now(),
	}
	if p.Metrics != nil {
		s.PredictTime = p.Metrics.PredictTime
	}
	if p.Output != nil {
		out, err := json.Marshal(p.Output)
		if err != nil {
			return Snapshot{}, fmt.Errorf("marshal output of %s: %w", p.ID, err)
		}
		s.Output = out
	}
	return s, nil
}

// Snapshot is the output-agnostic record of a prediction kept by stores and caches.
type Snapshot struct {
	ID          string          `json:"id"`
	Version     string          `json:"version"`
	Source      string          `json:"source,omitempty"`
	Status      Status          `json:"status"`
	Error       string          `json:"error,omitempty"`
	PredictTime *float64        `json:"predict_time,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
