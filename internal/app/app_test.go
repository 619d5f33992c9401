package app

import (
	"bytes"
	"context"
	"testing"

	"github.com/yndnr/sessbox-go/internal/config"
	"github.com/yndnr/sessbox-go/internal/core/service"
	"github.com/yndnr/sessbox-go/internal/remote"
	"github.com/yndnr/sessbox-go/internal/remote/remotetest"
	"github.com/yndnr/sessbox-go/internal/storage"
	"github.com/yndnr/sessbox-go/internal/storage/memory"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
	"github.com/yndnr/sessbox-go/internal/telemetry/metric"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Storage.Engine = config.EngineMemory
	cfg.Remote.RateLimit = 0
	return cfg
}

func newApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithLogger(logger.NewNop())}, opts...)
	a, err := New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_LocalOnly(t *testing.T) {
	a := newApp(t, memoryConfig())
	ctx := context.Background()

	if a.Client != nil || a.Prober != nil {
		t.Fatal("no remote configured, want nil client and prober")
	}
	if a.Monitor.IsOnline() {
		t.Error("local-only monitor should start offline")
	}

	s, err := a.Sessions.Create(ctx, &service.CreateSessionRequest{Domain: "example.com", Name: "work"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !a.Queue.HasPending(s.LocalID) {
		t.Error("local-only create should stay queued")
	}

	rep := a.Engine.Sync(ctx)
	if rep.Result != metric.ResultOffline {
		t.Errorf("Sync() result = %q, want %q", rep.Result, metric.ResultOffline)
	}
}

func TestNew_WithRemote(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()

	cfg := memoryConfig()
	cfg.Remote.BaseURL = srv.URL
	cfg.Remote.Token = remotetest.Token
	a := newApp(t, cfg, WithMetrics(metric.NewRegistry()))
	ctx := context.Background()

	if a.Client == nil || a.Prober == nil {
		t.Fatal("remote configured, want client and prober")
	}
	if !a.Prober.ProbeOnce(ctx) {
		t.Fatal("ProbeOnce() = false against a healthy server")
	}

	s, err := a.Sessions.Create(ctx, &service.CreateSessionRequest{Domain: "example.com", Name: "work"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if srv.Len() != 1 {
		t.Fatalf("server records = %d, want 1", srv.Len())
	}
	got, err := a.Cache.Get(s.LocalID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.RemoteID == "" {
		t.Error("RemoteID not written back after direct create")
	}

	rep := a.Engine.Sync(ctx)
	if rep.Result != metric.ResultSuccess {
		t.Errorf("Sync() result = %q, err %v", rep.Result, rep.Err)
	}
}

func TestNew_CredentialHook(t *testing.T) {
	srv := remotetest.NewServer()
	defer srv.Close()

	cfg := memoryConfig()
	cfg.Remote.BaseURL = srv.URL
	a := newApp(t, cfg)
	if a.Remote.HasCredentials(context.Background()) {
		t.Error("HasCredentials() = true with no token configured")
	}

	b := newApp(t, cfg, WithCredentials(remote.StaticToken(remotetest.Token)))
	if !b.Remote.HasCredentials(context.Background()) {
		t.Error("HasCredentials() = false with credential hook")
	}
}

func TestNew_SealedStore(t *testing.T) {
	raw := memory.New()
	cfg := memoryConfig()
	cfg.Security.Passphrase = "correct horse battery staple"

	a := newApp(t, cfg, WithStore(raw))
	if _, err := a.Sessions.Create(context.Background(), &service.CreateSessionRequest{Domain: "secret.example", Name: "x"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	data, ok := raw.Raw(storage.KeySessions)
	if !ok {
		t.Fatal("sessions not persisted")
	}
	if bytes.Contains(data, []byte("secret.example")) {
		t.Error("persisted sessions are readable without the passphrase")
	}
}

func TestNew_BadgerReopen(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	ctx := context.Background()

	a, err := New(ctx, cfg, WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s, err := a.Sessions.Create(ctx, &service.CreateSessionRequest{Domain: "example.com", Name: "kept"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	b, err := New(ctx, cfg, WithLogger(logger.NewNop()))
	if err != nil {
		t.Fatalf("reopen New() error = %v", err)
	}
	defer b.Close()

	got, err := b.Sessions.Get(s.LocalID)
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got.Name != "kept" {
		t.Errorf("Name = %q, want kept", got.Name)
	}
	if !b.Queue.HasPending(s.LocalID) {
		t.Error("pending create lost across reopen")
	}
}

func TestNew_InvalidRemote(t *testing.T) {
	cfg := memoryConfig()
	cfg.Remote.BaseURL = "https://example.com"
	cfg.Remote.TLSCAFile = "/nonexistent/ca.pem"

	if _, err := New(context.Background(), cfg, WithLogger(logger.NewNop())); err == nil {
		t.Fatal("New() should fail with an unreadable CA file")
	}
}
