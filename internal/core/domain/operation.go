package domain

import "fmt"

// OpKind is the kind of a pending remote mutation.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Valid reports whether k is a known operation kind.
func (k OpKind) Valid() bool {
	switch k {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// Operation is a locally queued mutation not yet acknowledged by the
// remote store.
//
// TargetID is always the LocalID of the affected record. For update and
// delete it doubles as a forward reference to a pending create: RemoteID
// is filled in once known and resolved from the cache at drain time
// otherwise.
type Operation struct {
	// Seq is assigned by the queue and identifies the operation within it.
	Seq int64 `json:"seq"`

	Kind     OpKind   `json:"kind"`
	TargetID string   `json:"targetId"`
	RemoteID string   `json:"remoteId,omitempty"`
	Snapshot *Session `json:"snapshot,omitempty"`

	// EnqueuedAt orders the queue (Unix milliseconds).
	EnqueuedAt int64 `json:"enqueuedAt"`

	// Retry bookkeeping.
	Attempts      int    `json:"attempts,omitempty"`
	NextAttemptAt int64  `json:"nextAttemptAt,omitempty"`
	LastError     string `json:"lastError,omitempty"`
}

// NewOperation builds an operation for the given record state.
// For deletes the snapshot is dropped.
func NewOperation(kind OpKind, s *Session, now int64) *Operation {
	op := &Operation{
		Kind:       kind,
		TargetID:   s.LocalID,
		RemoteID:   s.RemoteID,
		EnqueuedAt: now,
	}
	if kind != OpDelete {
		op.Snapshot = s.Clone()
	}
	return op
}

// Validate checks structural invariants of the operation.
func (o *Operation) Validate() error {
	if !o.Kind.Valid() {
		return ErrInvalidArgument.WithDetailsf("unknown operation kind %q", o.Kind)
	}
	if o.TargetID == "" {
		return ErrInvalidArgument.WithDetails("operation target is required")
	}
	if o.Kind != OpDelete && o.Snapshot == nil {
		return ErrInvalidArgument.WithDetailsf("%s operation requires a snapshot", o.Kind)
	}
	return nil
}

// Clone returns a deep copy of the operation.
func (o *Operation) Clone() *Operation {
	c := *o
	c.Snapshot = o.Snapshot.Clone()
	return &c
}

func (o *Operation) String() string {
	if o.RemoteID != "" {
		return fmt.Sprintf("%s(%s->%s)", o.Kind, o.TargetID, o.RemoteID)
	}
	return fmt.Sprintf("%s(%s)", o.Kind, o.TargetID)
}
