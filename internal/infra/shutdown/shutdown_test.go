package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
)

func newTestHandler() *Handler {
	return NewHandler(time.Second, WithLogger(logger.NewNop()))
}

func TestHandler_Done(t *testing.T) {
	h := newTestHandler()
	select {
	case <-h.Done():
		t.Fatal("Done channel should not be closed initially")
	default:
	}

	if err := h.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	select {
	case <-h.Done():
	default:
		t.Error("Done channel should be closed after Shutdown")
	}
}

func TestHandler_HookOrder(t *testing.T) {
	h := newTestHandler()

	var (
		mu    sync.Mutex
		order []string
	)
	for _, name := range []string{"store", "engine", "http"} {
		h.OnShutdown(name, func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Errorf("hook %s ran without a deadline", name)
			}
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after cancel")
	}

	want := []string{"http", "engine", "store"}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("hooks called = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("hooks called = %v, want %v", order, want)
			break
		}
	}
}

func TestHandler_HookErrors(t *testing.T) {
	h := newTestHandler()
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	var ran int
	h.OnShutdown("a", func(context.Context) error { ran++; return errA })
	h.OnShutdown("ok", func(context.Context) error { ran++; return nil })
	h.OnShutdown("b", func(context.Context) error { ran++; return errB })

	err := h.Shutdown()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Shutdown() error = %v, want both hook errors", err)
	}
	if ran != 3 {
		t.Errorf("hooks run = %d, want 3 (a failure must not stop the rest)", ran)
	}

	if again := h.Shutdown(); again != err || ran != 3 {
		t.Errorf("second Shutdown() = %v, ran %d; want cached result", again, ran)
	}
}

func TestHandler_Wait_Signal(t *testing.T) {
	h := newTestHandler()
	called := make(chan struct{}, 1)
	h.OnShutdown("probe", func(context.Context) error {
		called <- struct{}{}
		return nil
	})

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait(context.Background()) }()

	// Give Wait time to install its signal handler.
	time.Sleep(50 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not complete in time")
	}
	select {
	case <-called:
	default:
		t.Error("hook not called on signal")
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := newTestHandler()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown("noop", func(context.Context) error { return nil })
		}()
	}
	wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.hooks) != 10 {
		t.Errorf("hooks = %d, want 10", len(h.hooks))
	}
}
