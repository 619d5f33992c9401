package syncer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/sessbox-go/internal/core/cache"
	"github.com/yndnr/sessbox-go/internal/core/connectivity"
	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/core/queue"
	"github.com/yndnr/sessbox-go/internal/remote"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
	"github.com/yndnr/sessbox-go/internal/telemetry/metric"
)

// outcomeDirect labels operations applied by Submit without queueing.
const outcomeDirect = "direct"

// Remote is the remote session API the engine consumes.
type Remote interface {
	Create(ctx context.Context, s *domain.Session) (*remote.Record, error)
	Update(ctx context.Context, remoteID string, s *domain.Session) (*remote.Record, error)
	Delete(ctx context.Context, remoteID string) error
	List(ctx context.Context) ([]*remote.Record, error)
	HasCredentials(ctx context.Context) bool
}

// Config configures the Engine.
type Config struct {
	// Interval between periodic cycles in Run.
	Interval time.Duration

	// CycleTimeout bounds a single cycle.
	CycleTimeout time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Interval:     5 * time.Minute,
		CycleTimeout: 2 * time.Minute,
	}
}

// Report describes one Sync call.
type Report struct {
	CycleID  string            `json:"cycleId,omitempty" yaml:"cycle_id,omitempty"`
	Result   string            `json:"result" yaml:"result"`
	Drain    queue.DrainResult `json:"drain" yaml:"drain"`
	Merge    MergeStats        `json:"merge" yaml:"merge"`
	Duration time.Duration     `json:"duration" yaml:"duration"`

	// Err is the failure that ended the cycle early, if any.
	Err error `json:"-" yaml:"-"`
}

// Engine orchestrates reconciliation between the cache and the remote
// store.
type Engine struct {
	cache   *cache.Cache
	queue   *queue.Queue
	remote  Remote
	monitor *connectivity.Monitor
	cfg     Config

	state *stateKeeper

	// remoteMu is held while the remote set is fetched and merged. Direct
	// applies skip the remote call while it is held, so a record created
	// after the fetch is never mistaken for a remote deletion.
	remoteMu sync.Mutex

	trigger   chan struct{}
	reconnect chan struct{}

	now     func() time.Time
	logger  logger.Logger
	metrics *metric.Registry
}

// Option configures the Engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithMetrics enables cycle metrics.
func WithMetrics(m *metric.Registry) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates a sync engine.
func New(c *cache.Cache, q *queue.Queue, r Remote, m *connectivity.Monitor, cfg Config, opts ...Option) *Engine {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = def.CycleTimeout
	}
	e := &Engine{
		cache:     c,
		queue:     q,
		remote:    r,
		monitor:   m,
		cfg:       cfg,
		state:     newStateKeeper(),
		trigger:   make(chan struct{}, 1),
		reconnect: make(chan struct{}, 1),
		now:       time.Now,
		logger:    logger.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "syncer")
	return e
}

// State returns a snapshot of the engine state.
func (e *Engine) State() State {
	s := e.state.snapshot()
	s.Online = e.monitor.IsOnline()
	s.PendingOps = e.queue.Len()
	return s
}

// Trigger requests a cycle from Run. It never blocks; a request made
// while one is already pending is merged with it.
func (e *Engine) Trigger() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// Run performs a cycle immediately, then on every tick, on Trigger and
// whenever connectivity comes back, until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	unsubscribe := e.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		select {
		case e.reconnect <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	e.logger.Info("sync engine started", "interval", e.cfg.Interval)
	e.Sync(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("sync engine stopped")
			return nil
		case <-ticker.C:
			e.Sync(ctx)
		case <-e.trigger:
			e.Sync(ctx)
		case <-e.reconnect:
			e.logger.Info("connectivity restored, syncing")
			if err := e.queue.ResetBackoff(ctx); err != nil {
				e.logger.Warn("reset queue backoff failed", "error", err)
			}
			e.Sync(ctx)
		}
	}
}

// Sync runs one reconciliation cycle and reports its outcome. If a cycle
// is already running it returns at once with result "skipped".
func (e *Engine) Sync(ctx context.Context) *Report {
	if !e.state.acquire() {
		e.metrics.ObserveCycle(metric.ResultSkipped, 0)
		e.logger.Debug("sync already in progress, skipping")
		return &Report{Result: metric.ResultSkipped}
	}

	start := e.now()
	rep := &Report{CycleID: strings.ToLower(ulid.Make().String())}
	defer func() {
		rep.Duration = e.now().Sub(start)
		e.state.release(rep, e.now())
		e.metrics.ObserveCycle(rep.Result, rep.Duration)
	}()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.CycleTimeout)
	defer cancel()
	ctx = logger.WithCycleID(logger.WithLogger(ctx, e.logger), rep.CycleID)

	e.cycle(ctx, rep)

	log := logger.L(ctx)
	switch rep.Result {
	case metric.ResultSuccess:
		log.Info("sync cycle finished",
			"applied", rep.Drain.Applied,
			"dropped", rep.Drain.Dropped,
			"pending", rep.Drain.Remaining,
			"inserted", rep.Merge.Inserted,
			"overwritten", rep.Merge.Overwritten,
			"enqueued", rep.Merge.Enqueued,
			"removed", rep.Merge.Removed,
			"duration", e.now().Sub(start))
	case metric.ResultOffline:
		log.Info("sync cycle skipped, remote unreachable", "error", rep.Err)
	case metric.ResultAuth:
		log.Warn("sync cycle aborted, authentication required", "error", rep.Err)
	default:
		log.Error("sync cycle failed", "error", rep.Err)
	}
	return rep
}

func (e *Engine) cycle(ctx context.Context, rep *Report) {
	if !e.monitor.IsOnline() {
		rep.Result = metric.ResultOffline
		return
	}
	if !e.remote.HasCredentials(ctx) {
		rep.Result = metric.ResultAuth
		rep.Err = domain.ErrAuthenticationRequired.WithDetails("no credentials")
		return
	}

	e.state.setPhase(PhaseDraining)
	res, err := e.queue.Drain(ctx, e.remoteApply)
	rep.Drain = res
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAuthenticationRequired):
		e.monitor.Observe(err)
		rep.Result, rep.Err = metric.ResultAuth, err
		return
	case errors.Is(err, domain.ErrStorage), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		rep.Result, rep.Err = metric.ResultError, err
		return
	default:
		// The remote snapshot is still useful for records the failed
		// operation does not touch.
		logger.L(ctx).Info("draining stopped early", "error", err, "remaining", res.Remaining)
	}

	e.remoteMu.Lock()
	defer e.remoteMu.Unlock()

	e.state.setPhase(PhaseFetching)
	records, err := e.remote.List(ctx)
	e.monitor.Observe(err)
	if err != nil {
		rep.Err = err
		switch {
		case errors.Is(err, domain.ErrNetworkUnavailable):
			rep.Result = metric.ResultOffline
		case errors.Is(err, domain.ErrAuthenticationRequired):
			rep.Result = metric.ResultAuth
		default:
			rep.Result = metric.ResultError
		}
		return
	}

	e.state.setPhase(PhaseMerging)
	now := e.now().UnixMilli()
	plan, err := merge(ctx, e.cache, records, newPendingView(e.queue.Snapshot()), now)
	if err != nil {
		rep.Result, rep.Err = metric.ResultError, err
		return
	}
	rep.Merge = plan.stats

	for _, target := range plan.discard {
		if _, err := e.queue.Discard(ctx, target); err != nil {
			rep.Result, rep.Err = metric.ResultError, err
			return
		}
	}
	for _, op := range plan.enqueue {
		if err := e.queue.Enqueue(ctx, op); err != nil {
			rep.Result, rep.Err = metric.ResultError, err
			return
		}
	}
	for change, n := range plan.stats.counts() {
		e.metrics.CountMergeChange(change, n)
	}
	rep.Result = metric.ResultSuccess
}

// Submit hands a local mutation, already applied to the cache, to the
// remote store. It is applied directly when the store is reachable,
// credentials exist and nothing is queued for the target; otherwise, or
// if the direct call fails, it is queued for the next cycle.
func (e *Engine) Submit(ctx context.Context, op *domain.Operation) error {
	if err := op.Validate(); err != nil {
		return err
	}
	if e.applyDirect(ctx, op) {
		return nil
	}
	return e.queue.Enqueue(ctx, op)
}

func (e *Engine) applyDirect(ctx context.Context, op *domain.Operation) bool {
	if !e.monitor.IsOnline() || e.queue.HasPending(op.TargetID) || !e.remote.HasCredentials(ctx) {
		return false
	}
	if !e.remoteMu.TryLock() {
		return false
	}
	defer e.remoteMu.Unlock()

	_, err := e.remoteApply(ctx, op)
	e.monitor.Observe(err)
	if err != nil {
		e.logger.Info("remote apply failed, queued", "op", op.String(), "error", err)
		return false
	}
	e.metrics.CountQueueOp(string(op.Kind), outcomeDirect)
	e.logger.Debug("operation applied", "op", op.String())
	return true
}
