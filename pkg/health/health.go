package health

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/zoned/pkg/log"
	"github.com/cuemby/zoned/pkg/metrics"
)

// CheckType represents the type of health check
type CheckType string

const (
	CheckTypeDNS CheckType = "dns"
)

// Result represents the outcome of a health check
type Result struct {
	Healthy   bool
	Message   string
	CheckedAt time.Time
	Duration  time.Duration
}

// Checker is the interface that all health checkers must implement
type Checker interface {
	// Check performs the health check and returns the result
	Check(ctx context.Context) Result

	// Type returns the type of health check
	Type() CheckType
}

// Config contains common configuration for all health checks
type Config struct {
	// Interval is the time between health checks
	Interval time.Duration

	// Timeout is the maximum time to wait for a health check to complete
	Timeout time.Duration

	// Retries is the number of consecutive failures before marking as unhealthy
	Retries int

	// StartPeriod is the grace period before the first check
	StartPeriod time.Duration
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		Interval:    30 * time.Second,
		Timeout:     5 * time.Second,
		Retries:     3,
		StartPeriod: 0,
	}
}

// Status tracks the current health status of a probed component
type Status struct {
	// ConsecutiveFailures tracks the number of consecutive failed checks
	ConsecutiveFailures int

	// ConsecutiveSuccesses tracks the number of consecutive successful checks
	ConsecutiveSuccesses int

	// LastCheck is the timestamp of the last health check
	LastCheck time.Time

	// LastResult is the result of the last health check
	LastResult Result

	// Healthy indicates if the component is currently considered healthy
	Healthy bool

	// StartedAt is when monitoring started
	StartedAt time.Time
}

// NewStatus creates a new Status with default values
func NewStatus() *Status {
	return &Status{
		Healthy:   true, // Assume healthy until proven otherwise
		StartedAt: time.Now(),
	}
}

// Update updates the status based on a new health check result
func (s *Status) Update(result Result, config Config) {
	s.LastCheck = result.CheckedAt
	s.LastResult = result

	if result.Healthy {
		s.ConsecutiveSuccesses++
		s.ConsecutiveFailures = 0

		// Mark as healthy after first success
		s.Healthy = true
	} else {
		s.ConsecutiveFailures++
		s.ConsecutiveSuccesses = 0

		// Mark as unhealthy after reaching retry threshold
		if s.ConsecutiveFailures >= config.Retries {
			s.Healthy = false
		}
	}
}

// InStartPeriod returns true if we're still in the startup grace period
func (s *Status) InStartPeriod(config Config) bool {
	if config.StartPeriod == 0 {
		return false
	}
	return time.Since(s.StartedAt) < config.StartPeriod
}

// Monitor runs a checker periodically and reports its status to the
// health registry under a component name
type Monitor struct {
	name    string
	checker Checker
	config  Config

	mu     sync.Mutex
	status *Status
}

// NewMonitor creates a monitor. Zero config fields take DefaultConfig values.
func NewMonitor(name string, checker Checker, config Config) *Monitor {
	def := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.Retries <= 0 {
		config.Retries = def.Retries
	}
	return &Monitor{
		name:    name,
		checker: checker,
		config:  config,
		status:  NewStatus(),
	}
}

// Run checks on every interval until ctx is done
func (m *Monitor) Run(ctx context.Context) error {
	metrics.RegisterComponent(m.name, true, "starting")

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		m.mu.Lock()
		wait := m.status.InStartPeriod(m.config)
		m.mu.Unlock()
		if !wait {
			m.CheckNow(ctx)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// CheckNow runs one check and records its result
func (m *Monitor) CheckNow(ctx context.Context) Result {
	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()
	result := m.checker.Check(ctx)

	m.mu.Lock()
	was := m.status.Healthy
	m.status.Update(result, m.config)
	healthy := m.status.Healthy
	failures := m.status.ConsecutiveFailures
	m.mu.Unlock()

	metrics.UpdateComponent(m.name, healthy, result.Message)

	if was != healthy {
		logger := log.WithComponent("health")
		ev := logger.Info()
		if !healthy {
			ev = logger.Warn()
		}
		ev.Str("check", m.name).
			Str("type", string(m.checker.Type())).
			Bool("healthy", healthy).
			Int("failures", failures).
			Msg(result.Message)
	}
	return result
}

// Status returns a copy of the current status
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.status
}
