// Package health watches the service's dependencies with periodic checks and
// keeps a per-dependency verdict.
//
// A target starts as StatusUnknown. A successful check makes it healthy and
// resets its failure count; DefaultMaxFailures consecutive failures mark it
// unhealthy. Each transition into or out of the unhealthy state is logged
// once and reported to the OnChange callback.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Status is a target's current verdict.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

const (
	// DefaultMaxFailures is the number of consecutive failures that mark a
	// target unhealthy.
	DefaultMaxFailures = 3

	// DefaultTimeout bounds a single check.
	DefaultTimeout = 2 * time.Second
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// TargetHealth represents the health state of a monitored dependency.
type TargetHealth struct {
	LastCheck        time.Time `json:"last_check"`   // Last check attempt
	LastHealthy      time.Time `json:"last_healthy"` // Last successful check
	Name             string    `json:"name"`
	Status           Status    `json:"status"`
	LastError        string    `json:"last_error,omitempty"`
	ConsecutiveFails int       `json:"consecutive_fails"`
}

// Monitor runs registered checks on a fixed interval.
type Monitor struct {
	targets     map[string]*TargetHealth
	checks      map[string]Check
	onChange    func(name string, healthy bool)
	log         logrus.FieldLogger
	ctx         context.Context    // Internal cancellation
	cancel      context.CancelFunc // Cancels ctx on Stop
	interval    time.Duration
	timeout     time.Duration
	mu          sync.RWMutex   // Protects targets and checks
	wg          sync.WaitGroup // Tracks Start for Stop
	maxFailures int
}

// NewMonitor creates a monitor that checks every interval.
func NewMonitor(interval time.Duration, log logrus.FieldLogger) *Monitor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		targets:     make(map[string]*TargetHealth),
		checks:      make(map[string]Check),
		log:         log.WithField("component", "health"),
		ctx:         ctx,
		cancel:      cancel,
		interval:    interval,
		timeout:     DefaultTimeout,
		maxFailures: DefaultMaxFailures,
	}
}

// Register adds a target. Registering an existing name replaces its check.
func (m *Monitor) Register(name string, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.checks[name] = check
	if _, ok := m.targets[name]; !ok {
		m.targets[name] = &TargetHealth{Name: name, Status: StatusUnknown}
	}
}

// SetOnChange sets the callback invoked when a target turns unhealthy
// (healthy=false) or recovers from unhealthy (healthy=true). The first
// successful check of an unknown target also reports healthy=true.
func (m *Monitor) SetOnChange(fn func(name string, healthy bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Start checks every target immediately and then on each tick until ctx or
// Stop ends it. It blocks; run it in a goroutine.
func (m *Monitor) Start(ctx context.Context) {
	m.wg.Add(1)
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.WithField("interval", m.interval).Info("health monitor started")
	m.CheckNow(ctx)

	for {
		select {
		case <-ticker.C:
			m.CheckNow(ctx)
		case <-ctx.Done():
			return
		case <-m.ctx.Done():
			return
		}
	}
}

// Stop ends Start and waits for it to return.
func (m *Monitor) Stop() {
	m.cancel()
	m.wg.Wait()
	m.log.Info("health monitor stopped")
}

// CheckNow runs one round of checks.
func (m *Monitor) CheckNow(ctx context.Context) {
	m.mu.RLock()
	checks := make(map[string]Check, len(m.checks))
	for name, c := range m.checks {
		checks[name] = c
	}
	m.mu.RUnlock()

	for name, check := range checks {
		cctx, cancel := context.WithTimeout(ctx, m.timeout)
		err := check(cctx)
		cancel()
		m.record(name, err)
	}
}

func (m *Monitor) record(name string, err error) {
	m.mu.Lock()
	t := m.targets[name]
	now := time.Now()
	t.LastCheck = now
	previous := t.Status
	onChange := m.onChange

	log := m.log.WithField("target", name)
	if err != nil {
		t.ConsecutiveFails++
		t.LastError = err.Error()
		log.WithError(err).Debugf("health check failed (%d/%d)", t.ConsecutiveFails, m.maxFailures)
		if t.ConsecutiveFails >= m.maxFailures {
			t.Status = StatusUnhealthy
		}
	} else {
		t.Status = StatusHealthy
		t.ConsecutiveFails = 0
		t.LastError = ""
		t.LastHealthy = now
	}
	current, fails := t.Status, t.ConsecutiveFails
	m.mu.Unlock()

	if current == previous {
		return
	}
	switch current {
	case StatusUnhealthy:
		log.WithError(err).Errorf("%s marked unhealthy after %d failures", name, fails)
	case StatusHealthy:
		if previous == StatusUnhealthy {
			log.Infof("%s recovered", name)
		}
	}
	if onChange != nil {
		onChange(name, current == StatusHealthy)
	}
}

// Get returns a copy of the target's health, or nil if unknown.
func (m *Monitor) Get(name string) *TargetHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.targets[name]
	if !ok {
		return nil
	}
	cp := *t
	return &cp
}

// All returns copies of every target's health.
func (m *Monitor) All() map[string]TargetHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]TargetHealth, len(m.targets))
	for name, t := range m.targets {
		out[name] = *t
	}
	return out
}

// Healthy reports whether no target is currently unhealthy. Targets not yet
// checked count as healthy.
func (m *Monitor) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, t := range m.targets {
		if t.Status == StatusUnhealthy {
			return false
		}
	}
	return true
}
