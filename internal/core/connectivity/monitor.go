// Package connectivity tracks whether the remote session store is
// reachable and notifies subscribers when that changes.
package connectivity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
	"github.com/yndnr/sessbox-go/internal/telemetry/metric"
)

// Listener is called with the new state on every online/offline edge.
type Listener func(online bool)

// Monitor holds a binary reachability signal.
type Monitor struct {
	mu        sync.Mutex
	online    bool
	nextID    int
	listeners map[int]Listener
	changedAt time.Time

	logger  logger.Logger
	metrics *metric.Registry
}

// NewMonitor creates a monitor with the given initial state.
func NewMonitor(online bool, l logger.Logger, m *metric.Registry) *Monitor {
	if l == nil {
		l = logger.Default()
	}
	m.SetOnline(online)
	return &Monitor{
		online:    online,
		listeners: make(map[int]Listener),
		changedAt: time.Now(),
		logger:    l.With("component", "connectivity"),
		metrics:   m,
	}
}

// IsOnline reports the current state.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Since returns when the state last changed.
func (m *Monitor) Since() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.changedAt
}

// SetOnline updates the state. Listeners run synchronously, outside the
// monitor lock, and only when the state actually changes.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	m.changedAt = time.Now()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	m.metrics.SetOnline(online)
	if online {
		m.logger.Info("remote store reachable")
	} else {
		m.logger.Warn("remote store unreachable")
	}
	for _, fn := range listeners {
		fn(online)
	}
}

// Subscribe registers fn and returns a function that removes it.
func (m *Monitor) Subscribe(fn Listener) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Observe feeds the outcome of a remote call into the monitor: a
// NetworkUnavailable error marks the store offline, any other outcome
// proves it reachable.
func (m *Monitor) Observe(err error) {
	switch {
	case err == nil:
		m.SetOnline(true)
	case errors.Is(err, domain.ErrNetworkUnavailable):
		m.SetOnline(false)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Says nothing about the remote side.
	default:
		m.SetOnline(true)
	}
}
