package httpserver

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/sessbox-go/internal/core/syncer"
	"github.com/yndnr/sessbox-go/internal/server/httpserver/handler"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
	"github.com/yndnr/sessbox-go/internal/telemetry/metric"
)

type stubSyncer struct{}

func (stubSyncer) State() syncer.State                 { return syncer.State{Online: true} }
func (stubSyncer) Trigger()                            {}
func (stubSyncer) Sync(context.Context) *syncer.Report { return &syncer.Report{} }

func newTestRouter(m *metric.Registry) http.Handler {
	return NewRouter(&RouterConfig{
		Handler: handler.Config{Engine: stubSyncer{}},
		Metrics: m,
		Logger:  logger.NewNop(),
	})
}

func TestRouter_Routes(t *testing.T) {
	m := metric.NewRegistry()
	m.SetOnline(true)
	h := newTestRouter(m)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/v1/status", http.StatusOK},
		{http.MethodPost, "/v1/sync", http.StatusAccepted},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/v1/sync", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
		})
	}
}

func TestRouter_MetricsBody(t *testing.T) {
	m := metric.NewRegistry()
	m.SetOnline(true)
	rec := httptest.NewRecorder()
	newTestRouter(m).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "sessbox_online 1") {
		t.Errorf("metrics body missing sessbox_online:\n%s", rec.Body.String())
	}
}

func TestRouter_NoMetrics(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics without registry = %d, want 404", rec.Code)
	}
}

func TestRequestID_Propagates(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req-given")
	newTestRouter(nil).ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "req-given" {
		t.Errorf("X-Request-ID = %q, want req-given", got)
	}
	if !strings.Contains(rec.Body.String(), `"request_id":"req-given"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRecover(t *testing.T) {
	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	h := Chain(panicky, RequestID(), Recover(logger.NewNop()))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if rec.Header().Get("X-Error-Code") == "" {
		t.Error("missing X-Error-Code")
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}), mark("a"), mark("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if strings.Join(order, ",") != "a,b" {
		t.Errorf("order = %v, want [a b]", order)
	}
}

func TestServer_ServeShutdown(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	s := New(l.Addr().String(), newTestRouter(nil))

	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Serve() error = %v, want ErrServerClosed", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for Serve to return")
	}
}
