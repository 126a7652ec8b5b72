package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBaseURL is returned when the API base endpoint is invalid.
	ErrBaseURL = errors.New("base url is invalid or missing")

	// ErrTimeout is matched by *TimeoutError.
	ErrTimeout = errors.New("prediction polling timed out")

	// ErrTerminated is matched by *TerminatedError.
	ErrTerminated = errors.New("prediction was terminated")

	// ErrInvalidResponse is matched by *InvalidResponseError.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrCouldNotDecodeErrorContainer is matched by a *TransportError
	// for a 4xx response without a usable detail.
	ErrCouldNotDecodeErrorContainer = errors.New("could not decode error response")
)

// ResponseError is a 4xx rejection explained by the API.
type ResponseError struct {
	StatusCode int
	Detail     string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("response error (http %d): %s", e.StatusCode, e.Detail)
}

// TransportError is a non-2xx response that carries no domain explanation.
type TransportError struct {
	StatusCode int
	Body       []byte
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, truncate(e.Body, 512))
}

func (e *TransportError) Unwrap() error {
	if e.StatusCode >= 400 && e.StatusCode <= 499 {
		return ErrCouldNotDecodeErrorContainer
	}
	return nil
}

// InvalidResponseError is a successful response whose body could not be decoded.
type InvalidResponseError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid response (http %d): %v", e.StatusCode, e.Err)
}

func (e *InvalidResponseError) Unwrap() error { return e.Err }

func (e *InvalidResponseError) Is(target error) bool { return target == ErrInvalidResponse }

// TimeoutError reports a polling strategy exhausted before a terminal status.
// The prediction may still complete; poll it again by ID.
type TimeoutError struct {
	ID       string
	Polls    int
	Elapsed  time.Duration
	LastSeen Status
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("prediction %s still %s after %d polls (%s): %v",
		e.ID, e.LastSeen, e.Polls, e.Elapsed.Round(time.Millisecond), ErrTimeout)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

// TerminatedError reports a prediction that ended failed or canceled.
type TerminatedError struct {
	ID      string
	Status  Status
	Message string
}

func (e *TerminatedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("prediction %s %s: %s", e.ID, e.Status, e.Message)
	}
	return fmt.Sprintf("prediction %s %s", e.ID, e.Status)
}

func (e *TerminatedError) Is(target error) bool { return target == ErrTerminated }

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
