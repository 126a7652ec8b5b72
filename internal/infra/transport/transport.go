// Package transport implements the HTTP collaborator used by the API client.
//
// This package contains:
//   - Transport interface: one request, one raw response, no status validation
//   - HTTPProvider: JSON over HTTP with token auth and request ids
//   - Monitor: latency and rate limit tracking
package transport

import (
	"context"
	"net/http"
	"time"
)

// Request is a single call relative to the provider's base URL.
type Request struct {
	// Method is the HTTP method, e.g. "GET".
	Method string

	// Path is joined onto the base URL, e.g. "predictions/abc".
	Path string

	// Route labels metrics and logs. Defaults to Method + " " + Path.
	Route string

	// Body is JSON-encoded when non-nil.
	Body any
}

// Response is the raw outcome of a request. Any status code is returned;
// classification is left to the caller.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Latency    time.Duration
	RequestID  string
}

// Transport sends requests to the API.
type Transport interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// HealthStatus represents the health state of a provider.
type HealthStatus struct {
	Available     bool          `json:"available"`
	Latency       time.Duration `json:"latency"`
	ErrorRate     float64       `json:"error_rate"`
	LastSuccessAt time.Time     `json:"last_success_at"`
	LastFailureAt time.Time     `json:"last_failure_at"`
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}
