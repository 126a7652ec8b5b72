package transport

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ProviderStatus represents the health state of a provider.
type ProviderStatus int

const (
	StatusHealthy   ProviderStatus = iota // Provider is working normally
	StatusDegraded                        // Provider is slow but working
	StatusThrottled                       // Provider is rate limiting
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	default:
		return "unknown"
	}
}

// MonitorStats holds monitoring statistics for a provider.
type MonitorStats struct {
	Status            ProviderStatus `json:"status"`
	AverageLatency    time.Duration  `json:"average_latency"`
	ThrottleCount     int            `json:"throttle_count"`
	RetryAfter        time.Duration  `json:"retry_after"`
	RequestsLast1Hour int            `json:"requests_last_1h"`
}

// Monitor tracks latency and rate limiting of a provider.
type Monitor struct {
	mu sync.RWMutex

	// Response time tracking
	recentLatencies  []time.Duration
	maxLatencyWindow int

	// Throttle tracking
	throttleCount      int
	lastThrottleTime   time.Time
	retryAfterDuration time.Duration

	// Sliding window
	requestTimestamps []time.Time
	windowDuration    time.Duration

	slowResponseThreshold time.Duration
	now                   func() time.Time
}

// NewMonitor creates a new monitor with default settings.
func NewMonitor() *Monitor {
	return &Monitor{
		recentLatencies:       make([]time.Duration, 0, 100),
		maxLatencyWindow:      100,
		requestTimestamps:     make([]time.Time, 0),
		windowDuration:        time.Hour,
		slowResponseThreshold: 3 * time.Second,
		now:                   time.Now,
	}
}

// RecordRequest records a completed request with its latency.
func (m *Monitor) RecordRequest(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}

	m.requestTimestamps = append(m.requestTimestamps, now)

	// Drop timestamps outside the window
	cutoff := now.Add(-m.windowDuration)
	filtered := m.requestTimestamps[:0]
	for _, t := range m.requestTimestamps {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	m.requestTimestamps = filtered
}

// RecordThrottle records a 429 response and its Retry-After header.
func (m *Monitor) RecordThrottle(retryAfter string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.lastThrottleTime = now
	m.throttleCount++
	m.retryAfterDuration = parseRetryAfter(retryAfter, now)
}

// CheckStatus returns the current status of the provider.
func (m *Monitor) CheckStatus() ProviderStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.statusLocked()
}

func (m *Monitor) statusLocked() ProviderStatus {
	if m.throttleCount > 0 && m.now().Sub(m.lastThrottleTime) < m.retryAfterDuration {
		return StatusThrottled
	}

	if len(m.recentLatencies) > 10 && m.averageLocked() > m.slowResponseThreshold {
		return StatusDegraded
	}

	return StatusHealthy
}

// GetRetryAfter returns remaining time before the API accepts requests again.
func (m *Monitor) GetRetryAfter() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.retryAfterLocked()
}

func (m *Monitor) retryAfterLocked() time.Duration {
	if m.retryAfterDuration > 0 {
		remaining := m.retryAfterDuration - m.now().Sub(m.lastThrottleTime)
		if remaining > 0 {
			return remaining
		}
	}
	return 0
}

// GetAverageLatency returns the average latency of recent requests.
func (m *Monitor) GetAverageLatency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.averageLocked()
}

func (m *Monitor) averageLocked() time.Duration {
	if len(m.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(m.recentLatencies))
}

// GetStats returns current monitoring statistics.
func (m *Monitor) GetStats() MonitorStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MonitorStats{
		Status:            m.statusLocked(),
		AverageLatency:    m.averageLocked(),
		ThrottleCount:     m.throttleCount,
		RetryAfter:        m.retryAfterLocked(),
		RequestsLast1Hour: len(m.requestTimestamps),
	}
}

// parseRetryAfter accepts delay-seconds or an HTTP date; anything else
// falls back to one minute.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return time.Minute
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
		return 0
	}
	return time.Minute
}
