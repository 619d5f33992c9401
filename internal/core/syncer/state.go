package syncer

import (
	"sync"
	"time"

	"github.com/yndnr/sessbox-go/internal/telemetry/metric"
)

// Phase is the step a sync cycle is in.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseDraining Phase = "draining"
	PhaseFetching Phase = "fetching"
	PhaseMerging  Phase = "merging"
)

// State is a snapshot of the engine.
type State struct {
	Phase   Phase `json:"phase" yaml:"phase"`
	Syncing bool  `json:"syncing" yaml:"syncing"`
	Online  bool  `json:"online" yaml:"online"`

	// LastSyncedAt is the end of the last successful cycle (Unix ms).
	LastSyncedAt int64  `json:"lastSyncedAt" yaml:"last_synced_at"`
	LastResult   string `json:"lastResult,omitempty" yaml:"last_result,omitempty"`
	LastError    string `json:"lastError,omitempty" yaml:"last_error,omitempty"`
	Cycles       int64  `json:"cycles" yaml:"cycles"`
	PendingOps   int    `json:"pendingOps" yaml:"pending_ops"`
}

// stateKeeper guards State. acquire and release bracket a cycle.
type stateKeeper struct {
	mu sync.Mutex
	s  State
}

func newStateKeeper() *stateKeeper {
	return &stateKeeper{s: State{Phase: PhaseIdle}}
}

// acquire marks a cycle as running. It returns false if one already is.
func (k *stateKeeper) acquire() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.s.Syncing {
		return false
	}
	k.s.Syncing = true
	return true
}

func (k *stateKeeper) setPhase(p Phase) {
	k.mu.Lock()
	k.s.Phase = p
	k.mu.Unlock()
}

// release ends the cycle and records its outcome.
func (k *stateKeeper) release(rep *Report, finishedAt time.Time) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.s.Syncing = false
	k.s.Phase = PhaseIdle
	k.s.Cycles++
	k.s.LastResult = rep.Result
	k.s.LastError = ""
	if rep.Err != nil {
		k.s.LastError = rep.Err.Error()
	}
	if rep.Err == nil && rep.Result == metric.ResultSuccess {
		k.s.LastSyncedAt = finishedAt.UnixMilli()
	}
}

func (k *stateKeeper) snapshot() State {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.s
}
