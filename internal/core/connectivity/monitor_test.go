package connectivity

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
)

func TestMonitor_EdgesOnly(t *testing.T) {
	m := NewMonitor(false, logger.NewNop(), nil)

	var got []bool
	unsubscribe := m.Subscribe(func(online bool) { got = append(got, online) })

	m.SetOnline(false)
	m.SetOnline(true)
	m.SetOnline(true)
	m.SetOnline(false)

	if len(got) != 2 || got[0] != true || got[1] != false {
		t.Errorf("notifications = %v, want [true false]", got)
	}

	unsubscribe()
	m.SetOnline(true)
	if len(got) != 2 {
		t.Error("unsubscribed listener was called")
	}
	if !m.IsOnline() {
		t.Error("IsOnline() = false after SetOnline(true)")
	}
}

func TestMonitor_ListenerMayCallBack(t *testing.T) {
	m := NewMonitor(false, logger.NewNop(), nil)
	m.Subscribe(func(online bool) {
		// Must not deadlock.
		_ = m.IsOnline()
	})
	m.SetOnline(true)
}

func TestMonitor_Observe(t *testing.T) {
	tests := []struct {
		name  string
		start bool
		err   error
		want  bool
	}{
		{"success marks online", false, nil, true},
		{"network error marks offline", true, domain.ErrNetworkUnavailable.WithDetails("dial"), false},
		{"auth error proves reachability", false, domain.ErrAuthenticationRequired, true},
		{"rejection proves reachability", false, domain.ErrServerRejected, true},
		{"cancellation changes nothing", true, context.Canceled, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(tt.start, logger.NewNop(), nil)
			m.Observe(tt.err)
			if m.IsOnline() != tt.want {
				t.Errorf("IsOnline() = %v, want %v", m.IsOnline(), tt.want)
			}
		})
	}
}

type stubPinger struct {
	mu    sync.Mutex
	err   error
	calls atomic.Int32
}

func (p *stubPinger) Ping(ctx context.Context) error {
	p.calls.Add(1)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *stubPinger) set(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func TestProber_ProbeOnce(t *testing.T) {
	p := &stubPinger{}
	m := NewMonitor(false, logger.NewNop(), nil)
	pr := NewProber(p, m, time.Minute, logger.NewNop())

	if !pr.ProbeOnce(context.Background()) {
		t.Error("ProbeOnce() = false with healthy pinger")
	}

	p.set(domain.ErrNetworkUnavailable)
	if pr.ProbeOnce(context.Background()) {
		t.Error("ProbeOnce() = true with failing pinger")
	}
}

func TestProber_RunStopsWithContext(t *testing.T) {
	p := &stubPinger{}
	m := NewMonitor(false, logger.NewNop(), nil)
	pr := NewProber(p, m, 5*time.Millisecond, logger.NewNop())

	edges := make(chan bool, 4)
	m.Subscribe(func(online bool) { edges <- online })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pr.Run(ctx)
		close(done)
	}()

	select {
	case online := <-edges:
		if !online {
			t.Error("first edge should be online")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("prober never reported online")
	}

	p.set(errors.Join(domain.ErrNetworkUnavailable, errors.New("connection refused")))
	select {
	case online := <-edges:
		if online {
			t.Error("second edge should be offline")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("prober never reported offline")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if p.calls.Load() < 2 {
		t.Errorf("Ping calls = %d, want >= 2", p.calls.Load())
	}
}
