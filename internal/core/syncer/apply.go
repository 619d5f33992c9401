package syncer

import (
	"context"
	"errors"

	"github.com/yndnr/sessbox-go/internal/core/cache"
	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/remote"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
)

// remoteApply performs op against the remote store. It is the queue's
// ApplyFunc and the direct path of Submit.
//
// Operations made moot by later local changes succeed without a remote
// call: the target record is gone, or a create was already acknowledged.
func (e *Engine) remoteApply(ctx context.Context, op *domain.Operation) (string, error) {
	log := logger.L(ctx).With("op", op.String())

	switch op.Kind {
	case domain.OpCreate:
		cur, err := e.cache.Get(op.TargetID)
		if errors.Is(err, domain.ErrNotFound) {
			log.Debug("create target gone, skipping")
			return "", nil
		}
		if err != nil {
			return "", err
		}
		if cur.RemoteID != "" {
			return cur.RemoteID, nil
		}
		rec, err := e.remote.Create(ctx, op.Snapshot)
		if err != nil {
			return "", err
		}
		if err := e.writeBack(ctx, op, rec); err != nil {
			return "", err
		}
		return rec.ID, nil

	case domain.OpUpdate:
		cur, err := e.cache.Get(op.TargetID)
		if errors.Is(err, domain.ErrNotFound) {
			log.Debug("update target gone, skipping")
			return "", nil
		}
		if err != nil {
			return "", err
		}
		remoteID := op.RemoteID
		if remoteID == "" {
			remoteID = cur.RemoteID
		}
		if remoteID == "" {
			// The next merge queues a create for it.
			log.Warn("update target was never created remotely, dropping")
			return "", nil
		}
		rec, err := e.remote.Update(ctx, remoteID, op.Snapshot)
		if errors.Is(err, domain.ErrNotFound) {
			log.Info("update target deleted remotely")
			return "", nil
		}
		if err != nil {
			return "", err
		}
		if err := e.writeBack(ctx, op, rec); err != nil {
			return "", err
		}
		return "", nil

	case domain.OpDelete:
		if op.RemoteID == "" {
			return "", nil
		}
		return "", e.remote.Delete(ctx, op.RemoteID)
	}
	return "", domain.ErrInvalidArgument.WithDetailsf("unknown operation kind %q", op.Kind)
}

// writeBack records the server's answer for op in the cache: the remote
// ID of a new record, and the server timestamp when the record has not
// changed since op was queued.
func (e *Engine) writeBack(ctx context.Context, op *domain.Operation, rec *remote.Record) error {
	return e.cache.Batch(ctx, func(tx *cache.Tx) error {
		s, ok := tx.Get(op.TargetID)
		if !ok {
			return nil
		}
		if s.RemoteID == "" {
			if dup, taken := tx.ByRemoteID(rec.ID); taken && dup.LocalID != s.LocalID {
				// A merge already inserted this record from the remote set.
				tx.Remove(dup.LocalID)
			}
			s.RemoteID = rec.ID
		}
		if op.Snapshot != nil && s.ModifiedAt == op.Snapshot.ModifiedAt && rec.ModifiedAt > s.ModifiedAt {
			s.ModifiedAt = rec.ModifiedAt
		}
		s.LastSyncedAt = tx.Now()
		return tx.Put(s)
	})
}
