package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/replikit/internal/infra/storage"
	"github.com/vietddude/replikit/internal/infra/transport"
)

// ProviderHealth reports the state of the API transport.
type ProviderHealth interface {
	GetName() string
	GetHealth() transport.HealthStatus
}

// Pinger is a store that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Thresholds bound when the pending backlog and error rate degrade health.
type Thresholds struct {
	MaxPending        int
	DegradedErrorRate float64
}

// DefaultThresholds returns default health thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxPending:        100,
		DegradedErrorRate: 0.2,
	}
}

// Monitor aggregates health status from various system components.
type Monitor struct {
	provider   ProviderHealth
	stores     map[string]Pinger
	repo       storage.PredictionRepository
	thresholds Thresholds
	cacheFor   time.Duration
	lastCheck  time.Time
	lastReport HealthReport
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor. Any collaborator may be nil.
func NewMonitor(provider ProviderHealth, repo storage.PredictionRepository, stores map[string]Pinger, thresholds Thresholds) *Monitor {
	return &Monitor{
		provider:   provider,
		stores:     stores,
		repo:       repo,
		thresholds: thresholds,
		cacheFor:   10 * time.Second,
	}
}

// CheckHealth checks every component. Results are reused for a short while.
func (m *Monitor) CheckHealth(ctx context.Context) HealthReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	if time.Since(m.lastCheck) < m.cacheFor && m.lastReport.Components != nil {
		return m.lastReport
	}

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Components:   make(map[string]ComponentHealth),
	}
	add := func(c ComponentHealth) {
		report.Components[c.Name] = c
		report.SystemStatus = worst(report.SystemStatus, c.Status)
	}

	if m.provider != nil {
		add(m.checkProvider())
	}

	for name, store := range m.stores {
		c := ComponentHealth{Name: name, Status: StatusHealthy}
		if err := store.Ping(ctx); err != nil {
			c.Status = StatusCritical
			c.Error = err.Error()
		}
		add(c)
	}

	if m.repo != nil {
		c := ComponentHealth{Name: "predictions", Status: StatusHealthy}
		pending, err := m.repo.ListPending(ctx, m.thresholds.MaxPending+1)
		if err != nil {
			c.Status = StatusDegraded
			c.Error = err.Error()
		} else {
			c.Pending = len(pending)
			if c.Pending > m.thresholds.MaxPending {
				c.Status = StatusDegraded
			}
		}
		add(c)
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}

func (m *Monitor) checkProvider() ComponentHealth {
	h := m.provider.GetHealth()
	c := ComponentHealth{
		Name:      m.provider.GetName(),
		Status:    StatusHealthy,
		ErrorRate: h.ErrorRate,
		LatencyMS: h.Latency.Milliseconds(),
	}

	switch {
	case !h.Available:
		c.Status = StatusCritical
	case h.ErrorRate > m.thresholds.DegradedErrorRate:
		c.Status = StatusDegraded
	case h.MonitorStats != nil && h.MonitorStats.Status != transport.StatusHealthy:
		c.Status = StatusDegraded
	}
	return c
}
