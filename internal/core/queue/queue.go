// Package queue implements the durable pending-operation queue: the
// ordered log of local mutations the remote store has not acknowledged.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/storage"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
	"github.com/yndnr/sessbox-go/internal/telemetry/metric"
)

// Outcome labels for queue metrics.
const (
	outcomeEnqueued  = "enqueued"
	outcomeCoalesced = "coalesced"
	outcomeCancelled = "cancelled"
	outcomeAcked     = "acked"
	outcomeRetry     = "retry"
	outcomeDropped   = "dropped"
	outcomeDiscarded = "discarded"
)

// Queue is the pending-operation queue.
//
// Operations for one target are applied in enqueue order. Coalescing
// keeps at most one create or update per target waiting, plus an
// optional trailing delete. The operation currently being applied by
// Drain is never rewritten; mutations that arrive meanwhile are queued
// behind it.
type Queue struct {
	mu      sync.Mutex
	store   storage.KeyValueStore
	ops     []*domain.Operation
	nextSeq int64

	// inflight is the Seq of the operation Drain is applying, or 0.
	inflight int64
	drainMu  sync.Mutex

	policy  RetryPolicy
	now     func() time.Time
	logger  logger.Logger
	metrics *metric.Registry
}

// Option configures the Queue.
type Option func(*Queue)

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(q *Queue) {
		q.policy = p
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) {
		q.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(q *Queue) {
		q.logger = l
	}
}

// WithMetrics enables queue metrics.
func WithMetrics(m *metric.Registry) Option {
	return func(q *Queue) {
		q.metrics = m
	}
}

// New creates an empty queue backed by store.
func New(store storage.KeyValueStore, opts ...Option) *Queue {
	q := &Queue{
		store:   store,
		nextSeq: 1,
		policy:  DefaultRetryPolicy(),
		now:     time.Now,
		logger:  logger.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.logger = q.logger.With("component", "queue")
	return q
}

// Load replaces the in-memory queue with the persisted one.
func (q *Queue) Load(ctx context.Context) error {
	data, err := q.store.Get(ctx, storage.KeyQueue)
	if errors.Is(err, storage.ErrKeyNotFound) {
		data = nil
	} else if err != nil {
		return domain.ErrStorage.WithDetails("read queue").WithCause(err)
	}

	var ops []*domain.Operation
	if len(data) > 0 {
		if err := json.Unmarshal(data, &ops); err != nil {
			return domain.ErrStorage.WithDetails("decode queue").WithCause(err)
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.ops = q.ops[:0]
	q.nextSeq = 1
	for _, op := range ops {
		if op == nil {
			continue
		}
		if err := op.Validate(); err != nil {
			q.logger.Warn("skipping invalid queued operation", "op", op.String(), "error", err)
			continue
		}
		if op.Seq >= q.nextSeq {
			q.nextSeq = op.Seq + 1
		}
		q.ops = append(q.ops, op)
	}
	// Entries written without a sequence number get one now.
	for _, op := range q.ops {
		if op.Seq == 0 {
			op.Seq = q.nextSeq
			q.nextSeq++
		}
	}
	q.metrics.SetQueueDepth(len(q.ops))
	q.logger.Debug("queue loaded", "depth", len(q.ops))
	return nil
}

// Enqueue records op, applying the coalescing rules for its target:
//
//   - update: replaces the snapshot of a waiting create or update; dropped
//     if a delete is already waiting
//   - delete: cancels a waiting create together with everything queued
//     after it (nothing reaches the server); otherwise replaces waiting
//     updates and is appended
//   - create: replaces the snapshot of a waiting create
func (q *Queue) Enqueue(ctx context.Context, op *domain.Operation) error {
	if op == nil {
		return domain.ErrInvalidArgument.WithDetails("operation is required")
	}
	if err := op.Validate(); err != nil {
		return err
	}
	op = op.Clone()
	if op.EnqueuedAt == 0 {
		op.EnqueuedAt = q.now().UnixMilli()
	}
	op.Attempts, op.NextAttemptAt, op.LastError = 0, 0, ""

	q.mu.Lock()
	defer q.mu.Unlock()

	next, outcome := q.coalesce(cloneOps(q.ops), op)
	if err := q.persist(ctx, next); err != nil {
		return err
	}
	q.ops = next
	if outcome == outcomeEnqueued {
		q.nextSeq++
	}
	q.metrics.SetQueueDepth(len(q.ops))
	q.metrics.CountQueueOp(string(op.Kind), outcome)
	q.logger.Debug("operation queued", "op", op.String(), "outcome", outcome, "depth", len(q.ops))
	return nil
}

// coalesce returns ops with op merged in, and what happened to op.
// Must be called with lock held.
func (q *Queue) coalesce(ops []*domain.Operation, op *domain.Operation) ([]*domain.Operation, string) {
	waiting := func(o *domain.Operation) bool {
		return o.TargetID == op.TargetID && o.Seq != q.inflight
	}

	switch op.Kind {
	case domain.OpCreate:
		for _, o := range ops {
			if waiting(o) && o.Kind == domain.OpCreate {
				o.Snapshot = op.Snapshot
				return ops, outcomeCoalesced
			}
		}

	case domain.OpUpdate:
		for _, o := range ops {
			if !waiting(o) {
				continue
			}
			switch o.Kind {
			case domain.OpDelete:
				return ops, outcomeCoalesced
			case domain.OpCreate, domain.OpUpdate:
				o.Snapshot = op.Snapshot
				if op.RemoteID != "" {
					o.RemoteID = op.RemoteID
				}
				return ops, outcomeCoalesced
			}
		}

	case domain.OpDelete:
		cancelled := false
		kept := ops[:0]
		for _, o := range ops {
			if waiting(o) {
				if o.Kind == domain.OpCreate {
					cancelled = true
				}
				if op.RemoteID == "" && o.RemoteID != "" {
					op.RemoteID = o.RemoteID
				}
				continue
			}
			if o.TargetID == op.TargetID && op.RemoteID == "" && o.RemoteID != "" {
				op.RemoteID = o.RemoteID
			}
			kept = append(kept, o)
		}
		if cancelled {
			return kept, outcomeCancelled
		}
		ops = kept
	}

	op.Seq = q.nextSeq
	return append(ops, op), outcomeEnqueued
}

// ApplyFunc applies one operation remotely. For a create it returns the
// server-assigned remote ID, which the queue copies into later operations
// for the same target.
type ApplyFunc func(ctx context.Context, op *domain.Operation) (remoteID string, err error)

// DrainResult summarizes one Drain call.
type DrainResult struct {
	Applied   int `json:"applied" yaml:"applied"`
	Dropped   int `json:"dropped" yaml:"dropped"`
	Remaining int `json:"remaining" yaml:"remaining"`

	// Deferred is set when draining stopped at an operation still waiting
	// out its backoff.
	Deferred bool `json:"deferred,omitempty" yaml:"deferred,omitempty"`
}

// Drain applies queued operations in order until the queue is empty, an
// operation fails, or the head operation is still in backoff.
//
// The returned error is the failure that stopped draining (nil when it
// stopped for any other reason):
//
//   - AuthenticationRequired: stops without touching retry bookkeeping
//   - NetworkUnavailable and other unexpected errors: the operation is
//     kept and scheduled for a later attempt
//   - ServerRejected: dropped once MaxAttempts is reached (at once under
//     the default policy) and draining continues; before that it is
//     scheduled like a transient failure
func (q *Queue) Drain(ctx context.Context, apply ApplyFunc) (res DrainResult, err error) {
	q.drainMu.Lock()
	defer q.drainMu.Unlock()

	defer func() {
		res.Remaining = q.Len()
	}()

	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		q.mu.Lock()
		if len(q.ops) == 0 {
			q.mu.Unlock()
			return res, nil
		}
		head := q.ops[0]
		if head.NextAttemptAt > q.now().UnixMilli() {
			q.mu.Unlock()
			res.Deferred = true
			return res, nil
		}
		q.inflight = head.Seq
		op := head.Clone()
		q.mu.Unlock()

		remoteID, err := apply(ctx, op)

		q.mu.Lock()
		q.inflight = 0
		switch {
		case err == nil:
			if perr := q.ackLocked(ctx, op, remoteID); perr != nil {
				q.mu.Unlock()
				return res, perr
			}
			res.Applied++
			q.mu.Unlock()

		case errors.Is(err, domain.ErrAuthenticationRequired):
			q.mu.Unlock()
			return res, err

		case errors.Is(err, domain.ErrServerRejected):
			dropped, perr := q.failLocked(ctx, op, err, true)
			q.mu.Unlock()
			if perr != nil {
				return res, perr
			}
			if !dropped {
				return res, err
			}
			res.Dropped++

		default:
			_, perr := q.failLocked(ctx, op, err, false)
			q.mu.Unlock()
			if perr != nil {
				return res, perr
			}
			return res, err
		}
	}
}

// ackLocked removes an applied operation. Must be called with lock held.
func (q *Queue) ackLocked(ctx context.Context, op *domain.Operation, remoteID string) error {
	next := make([]*domain.Operation, 0, len(q.ops))
	for _, o := range q.ops {
		if o.Seq == op.Seq {
			continue
		}
		if remoteID != "" && o.TargetID == op.TargetID && o.RemoteID == "" {
			o = o.Clone()
			o.RemoteID = remoteID
		}
		next = append(next, o)
	}
	if err := q.persist(ctx, next); err != nil {
		return err
	}
	q.ops = next
	q.metrics.SetQueueDepth(len(q.ops))
	q.metrics.CountQueueOp(string(op.Kind), outcomeAcked)
	q.logger.Debug("operation acknowledged", "op", op.String(), "remote_id", remoteID)
	return nil
}

// failLocked records a failed attempt. A rejected operation that has used
// up its attempts is removed; it reports whether that happened.
// Must be called with lock held.
func (q *Queue) failLocked(ctx context.Context, op *domain.Operation, cause error, rejected bool) (bool, error) {
	idx := q.indexLocked(op.Seq)
	if idx < 0 {
		// Discarded while in flight.
		return true, nil
	}

	next := cloneOps(q.ops)
	cur := next[idx]
	cur.Attempts++
	cur.LastError = cause.Error()

	dropped := rejected && q.policy.MaxAttempts > 0 && cur.Attempts >= q.policy.MaxAttempts
	if dropped {
		next = append(next[:idx], next[idx+1:]...)
	} else {
		cur.NextAttemptAt = q.now().Add(q.policy.Backoff(cur.Attempts)).UnixMilli()
	}

	if err := q.persist(ctx, next); err != nil {
		return false, err
	}
	q.ops = next
	q.metrics.SetQueueDepth(len(q.ops))

	if dropped {
		q.metrics.CountQueueOp(string(op.Kind), outcomeDropped)
		q.logger.Warn("dropping rejected operation",
			"op", op.String(),
			"attempts", cur.Attempts,
			"error", cause)
		return true, nil
	}
	q.metrics.CountQueueOp(string(op.Kind), outcomeRetry)
	q.logger.Info("operation failed, will retry",
		"op", op.String(),
		"attempts", cur.Attempts,
		"next_attempt_at", time.UnixMilli(cur.NextAttemptAt),
		"error", cause)
	return false, nil
}

// Discard removes every operation for targetID and returns how many
// were removed.
func (q *Queue) Discard(ctx context.Context, targetID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	next := make([]*domain.Operation, 0, len(q.ops))
	for _, o := range q.ops {
		if o.TargetID != targetID {
			next = append(next, o)
		}
	}
	n := len(q.ops) - len(next)
	if n == 0 {
		return 0, nil
	}
	if err := q.persist(ctx, next); err != nil {
		return 0, err
	}
	q.ops = next
	q.metrics.SetQueueDepth(len(q.ops))
	q.metrics.CountQueueOp("any", outcomeDiscarded)
	return n, nil
}

// ResetBackoff makes every operation eligible for the next drain.
func (q *Queue) ResetBackoff(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	next := cloneOps(q.ops)
	for _, o := range next {
		o.NextAttemptAt = 0
	}
	if err := q.persist(ctx, next); err != nil {
		return err
	}
	q.ops = next
	return nil
}

// Pending returns copies of the operations for targetID, in order.
func (q *Queue) Pending(targetID string) []*domain.Operation {
	q.mu.Lock()
	defer q.mu.Unlock()

	var out []*domain.Operation
	for _, o := range q.ops {
		if o.TargetID == targetID {
			out = append(out, o.Clone())
		}
	}
	return out
}

// HasPending reports whether any operation targets targetID.
func (q *Queue) HasPending(targetID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, o := range q.ops {
		if o.TargetID == targetID {
			return true
		}
	}
	return false
}

// Snapshot returns copies of all queued operations, in order.
func (q *Queue) Snapshot() []*domain.Operation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return cloneOps(q.ops)
}

// Len returns the number of queued operations.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// IsEmpty reports whether nothing is queued.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

func (q *Queue) indexLocked(seq int64) int {
	for i, o := range q.ops {
		if o.Seq == seq {
			return i
		}
	}
	return -1
}

func (q *Queue) persist(ctx context.Context, ops []*domain.Operation) error {
	if ops == nil {
		ops = []*domain.Operation{}
	}
	data, err := json.Marshal(ops)
	if err != nil {
		return domain.ErrInternal.WithDetails("encode queue").WithCause(err)
	}
	if err := q.store.Set(ctx, storage.KeyQueue, data); err != nil {
		return domain.ErrStorage.WithDetails("write queue").WithCause(err)
	}
	return nil
}

func cloneOps(ops []*domain.Operation) []*domain.Operation {
	out := make([]*domain.Operation, len(ops))
	for i, o := range ops {
		out[i] = o.Clone()
	}
	return out
}
