package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/replikit/internal/metrics"
)

const userAgent = "replikit/1.0"

// HTTPProvider implements Transport for a JSON HTTP API.
type HTTPProvider struct {
	name       string
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	log        *slog.Logger

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int

	Monitor *Monitor
}

// NewHTTPProvider creates a provider for baseURL. When token is set every
// request carries "Authorization: Token <token>".
func NewHTTPProvider(name string, baseURL *url.URL, token string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		name:    name,
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		log: slog.Default().With("component", "transport", "provider", name),
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewMonitor(),
	}
}

// Do sends req and returns the raw response. Only network, encoding and
// context failures are returned as errors.
func (p *HTTPProvider) Do(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	route := req.Route
	if route == "" {
		route = req.Method + " " + req.Path
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	target := p.baseURL.JoinPath(req.Path)
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("X-Request-Id", requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if p.token != "" {
		httpReq.Header.Set("Authorization", "Token "+p.token)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.recordFailure()
		metrics.APIErrorsTotal.WithLabelValues(route, "network").Inc()
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		p.recordFailure()
		metrics.APIErrorsTotal.WithLabelValues(route, "read").Inc()
		return nil, fmt.Errorf("read response: %w", err)
	}

	latency := time.Since(start)
	metrics.APIRequestsTotal.WithLabelValues(route, strconv.Itoa(resp.StatusCode)).Inc()
	metrics.APIRequestLatency.WithLabelValues(route).Observe(latency.Seconds())

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		p.Monitor.RecordThrottle(resp.Header.Get("Retry-After"))
		p.recordFailure()
	case resp.StatusCode >= 500:
		p.recordFailure()
	default:
		p.Monitor.RecordRequest(latency)
		p.recordSuccess(latency)
	}

	p.log.Debug("API call",
		"route", route,
		"status", resp.StatusCode,
		"latency", latency,
		"request_id", requestID,
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Latency:    latency,
		RequestID:  requestID,
	}, nil
}

// GetName returns the provider's name.
func (p *HTTPProvider) GetName() string {
	return p.name
}

// BaseURL returns the endpoint requests are resolved against.
func (p *HTTPProvider) BaseURL() *url.URL {
	cp := *p.baseURL
	return &cp
}

// GetHealth returns the provider's health status.
func (p *HTTPProvider) GetHealth() HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	h := p.health
	stats := p.Monitor.GetStats()
	h.MonitorStats = &stats
	return h
}

// IsAvailable checks if the provider is available.
func (p *HTTPProvider) IsAvailable() bool {
	status := p.Monitor.CheckStatus()
	return status == StatusHealthy || status == StatusDegraded
}

// Close cleans up resources.
func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

func (p *HTTPProvider) recordSuccess(latency time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.successCount++
	p.requestCount++
	p.totalLatency += latency
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true

	if p.requestCount > 0 {
		p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	}
	if p.successCount > 0 {
		p.health.Latency = p.totalLatency / time.Duration(p.successCount)
	}
}

func (p *HTTPProvider) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.requestCount++
	p.health.LastFailureAt = time.Now()

	if p.requestCount > 0 {
		p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	}

	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}
}
