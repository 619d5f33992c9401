package connectivity

import (
	"context"
	"time"

	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
)

// Pinger checks remote reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Prober periodically pings the remote store and feeds the result into a
// Monitor.
type Prober struct {
	pinger   Pinger
	monitor  *Monitor
	interval time.Duration
	timeout  time.Duration
	logger   logger.Logger
}

// NewProber creates a prober. interval must be positive.
func NewProber(p Pinger, m *Monitor, interval time.Duration, l logger.Logger) *Prober {
	if l == nil {
		l = logger.Default()
	}
	timeout := interval / 2
	if timeout > 10*time.Second || timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prober{
		pinger:   p,
		monitor:  m,
		interval: interval,
		timeout:  timeout,
		logger:   l.With("component", "prober"),
	}
}

// ProbeOnce pings once and updates the monitor.
func (p *Prober) ProbeOnce(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.pinger.Ping(ctx)
	if err != nil {
		p.logger.Debug("probe failed", "error", err)
	}
	p.monitor.Observe(err)
	return p.monitor.IsOnline()
}

// Run probes immediately and then every interval until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	p.ProbeOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProbeOnce(ctx)
		}
	}
}
