package app

import (
	"context"
	"fmt"

	"github.com/yndnr/sessbox-go/internal/config"
	"github.com/yndnr/sessbox-go/internal/core/cache"
	"github.com/yndnr/sessbox-go/internal/core/connectivity"
	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/core/queue"
	"github.com/yndnr/sessbox-go/internal/core/service"
	"github.com/yndnr/sessbox-go/internal/core/syncer"
	"github.com/yndnr/sessbox-go/internal/infra/buildinfo"
	"github.com/yndnr/sessbox-go/internal/remote"
	"github.com/yndnr/sessbox-go/internal/storage"
	"github.com/yndnr/sessbox-go/internal/storage/memory"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
	"github.com/yndnr/sessbox-go/internal/telemetry/metric"
)

// App holds the wired components.
type App struct {
	Config *config.Config

	Store     storage.KeyValueStore
	Remote    syncer.Remote
	Client    *remote.Client // nil when no remote is configured
	Monitor   *connectivity.Monitor
	Prober    *connectivity.Prober // nil when no remote is configured
	Cache     *cache.Cache
	Queue     *queue.Queue
	Blocklist *service.BlocklistService
	Engine    *syncer.Engine
	Sessions  *service.SessionService
	Metrics   *metric.Registry

	logger logger.Logger
}

// Option configures New.
type Option func(*options)

type options struct {
	logger    logger.Logger
	metrics   *metric.Registry
	store     storage.KeyValueStore
	program   string
	credsHook remote.CredentialSource
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics enables metrics on every component.
func WithMetrics(m *metric.Registry) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithStore uses store instead of opening one from the configuration.
// The App takes ownership and closes it.
func WithStore(store storage.KeyValueStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithProgram sets the program name sent in the User-Agent.
func WithProgram(name string) Option {
	return func(o *options) {
		o.program = name
	}
}

// WithCredentials adds a credential source consulted before the
// configured token and token file.
func WithCredentials(src remote.CredentialSource) Option {
	return func(o *options) {
		o.credsHook = src
	}
}

// New opens the store, loads persisted state and wires the engine.
// The caller must Close the App.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	o := options{program: "sessbox"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Default()
	}

	a := &App{Config: cfg, Metrics: o.metrics, logger: o.logger}

	store := o.store
	if store == nil {
		var err error
		if store, err = OpenStore(cfg, o.logger, o.metrics); err != nil {
			return nil, err
		}
	}
	if cfg.Security.Passphrase != "" {
		sealed, err := storage.NewSealedStore(ctx, store, cfg.Security.Passphrase)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("open sealed store: %w", err)
		}
		store = sealed
	}
	a.Store = store

	if err := a.wire(ctx, o); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context, o options) error {
	cfg := a.Config

	if cfg.Remote.BaseURL != "" {
		rc := remote.DefaultConfig(cfg.Remote.BaseURL)
		rc.Timeout = cfg.Remote.Timeout
		rc.RateLimit = cfg.Remote.RateLimit
		if cfg.Remote.Burst > 0 {
			rc.Burst = cfg.Remote.Burst
		}
		rc.TLSCAFile = cfg.Remote.TLSCAFile
		rc.UserAgent = buildinfo.UserAgent(o.program)
		rc.Credentials = credentials(cfg.Remote, o.credsHook)

		client, err := remote.New(rc, o.logger)
		if err != nil {
			return err
		}
		a.Client = client
		a.Remote = client
	} else {
		a.Remote = localOnly{}
	}

	a.Monitor = connectivity.NewMonitor(a.Client != nil, o.logger, o.metrics)
	if a.Client != nil {
		a.Prober = connectivity.NewProber(a.Client, a.Monitor, cfg.Sync.ProbeInterval, o.logger)
	}

	a.Cache = cache.New(a.Store, cache.WithLogger(o.logger), cache.WithMetrics(o.metrics))
	if err := a.Cache.Load(ctx); err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	a.Queue = queue.New(a.Store,
		queue.WithRetryPolicy(queue.RetryPolicy{
			BaseDelay:   cfg.Sync.Retry.BaseDelay,
			MaxDelay:    cfg.Sync.Retry.MaxDelay,
			MaxAttempts: cfg.Sync.Retry.MaxAttempts,
		}),
		queue.WithLogger(o.logger),
		queue.WithMetrics(o.metrics),
	)
	if err := a.Queue.Load(ctx); err != nil {
		return fmt.Errorf("load pending operations: %w", err)
	}

	a.Blocklist = service.NewBlocklistService(a.Store)
	if err := a.Blocklist.Load(ctx); err != nil {
		return fmt.Errorf("load blocklist: %w", err)
	}

	a.Engine = syncer.New(a.Cache, a.Queue, a.Remote, a.Monitor,
		syncer.Config{Interval: cfg.Sync.Interval, CycleTimeout: cfg.Sync.CycleTimeout},
		syncer.WithLogger(o.logger),
		syncer.WithMetrics(o.metrics),
	)
	a.Sessions = service.NewSessionService(a.Cache, a.Engine, a.Blocklist, service.WithLogger(o.logger))

	a.logger.Debug("application wired",
		"remote", a.Client != nil,
		"sessions", a.Cache.Len(),
		"pending", a.Queue.Len())
	return nil
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// OpenStore opens the store selected by cfg.Storage.
func OpenStore(cfg *config.Config, log logger.Logger, m *metric.Registry) (storage.KeyValueStore, error) {
	switch cfg.Storage.Engine {
	case config.EngineMemory:
		return memory.New(), nil
	case config.EngineBadger, "":
		sc := storage.DefaultConfig(cfg.Storage.DataDir)
		sc.Badger.SyncWrites = cfg.Storage.SyncWrites
		bs, err := storage.NewBadgerStore(sc, log)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		if m != nil {
			bs.RegisterMetrics(m.Registerer())
		}
		return bs, nil
	}
	return nil, fmt.Errorf("unknown storage engine %q", cfg.Storage.Engine)
}

func credentials(cfg config.RemoteSection, extra remote.CredentialSource) remote.CredentialSource {
	chain := remote.Chain{}
	if extra != nil {
		chain = append(chain, extra)
	}
	if cfg.Token != "" {
		chain = append(chain, remote.StaticToken(cfg.Token))
	}
	if cfg.TokenFile != "" {
		chain = append(chain, remote.TokenFile(cfg.TokenFile))
	}
	return chain
}

// errLocalOnly is returned by every remote call when no server is
// configured.
var errLocalOnly = domain.ErrNetworkUnavailable.WithDetails("remote.base_url is not configured")

// localOnly stands in for the remote store when none is configured.
// Every call fails as unreachable, so local changes stay queued.
type localOnly struct{}

func (localOnly) Create(context.Context, *domain.Session) (*remote.Record, error) {
	return nil, errLocalOnly
}

func (localOnly) Update(context.Context, string, *domain.Session) (*remote.Record, error) {
	return nil, errLocalOnly
}

func (localOnly) Delete(context.Context, string) error { return errLocalOnly }

func (localOnly) List(context.Context) ([]*remote.Record, error) { return nil, errLocalOnly }

func (localOnly) HasCredentials(context.Context) bool { return false }
