package syncer

import (
	"context"

	"github.com/yndnr/sessbox-go/internal/core/cache"
	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/remote"
)

// MergeStats counts what a merge pass did.
type MergeStats struct {
	// Inserted remote records new to this device.
	Inserted int `json:"inserted" yaml:"inserted"`
	// Overwritten local records by a strictly newer remote one.
	Overwritten int `json:"overwritten" yaml:"overwritten"`
	// Kept local records already equal to the remote one.
	Kept int `json:"kept" yaml:"kept"`
	// Enqueued updates for records where the local side wins.
	Enqueued int `json:"enqueued" yaml:"enqueued"`
	// Removed local records deleted on the server.
	Removed int `json:"removed" yaml:"removed"`
	// Adopted remote records matched to a local-only record by clientId.
	Adopted int `json:"adopted" yaml:"adopted"`
	// Recreated local-only records without a pending create.
	Recreated int `json:"recreated" yaml:"recreated"`
	// Skipped remote records with a delete still pending locally.
	Skipped int `json:"skipped" yaml:"skipped"`
}

// Changed reports whether the pass changed anything.
func (m MergeStats) Changed() bool {
	return m.Inserted+m.Overwritten+m.Enqueued+m.Removed+m.Adopted+m.Recreated > 0
}

func (m MergeStats) counts() map[string]int {
	return map[string]int{
		"inserted":    m.Inserted,
		"overwritten": m.Overwritten,
		"kept":        m.Kept,
		"enqueued":    m.Enqueued,
		"removed":     m.Removed,
		"adopted":     m.Adopted,
		"recreated":   m.Recreated,
		"skipped":     m.Skipped,
	}
}

// mergePlan is what a merge pass leaves for the queue once the cache
// changes are durable.
type mergePlan struct {
	stats   MergeStats
	enqueue []*domain.Operation
	discard []string
}

// pendingView is the part of the queue the merge rules look at.
type pendingView struct {
	creates map[string]bool // targetID
	deletes map[string]bool // remoteID
}

func newPendingView(ops []*domain.Operation) pendingView {
	v := pendingView{creates: make(map[string]bool), deletes: make(map[string]bool)}
	for _, op := range ops {
		switch op.Kind {
		case domain.OpCreate:
			v.creates[op.TargetID] = true
		case domain.OpDelete:
			if op.RemoteID != "" {
				v.deletes[op.RemoteID] = true
			}
		}
	}
	return v
}

// merge applies the remote set to the cache in one batch and returns the
// queue changes that follow from it.
func merge(ctx context.Context, c *cache.Cache, records []*remote.Record, pending pendingView, now int64) (*mergePlan, error) {
	var plan *mergePlan
	err := c.Batch(ctx, func(tx *cache.Tx) error {
		plan = &mergePlan{}
		seen := make(map[string]bool, len(records))

		for _, rec := range records {
			if pending.deletes[rec.ID] {
				plan.stats.Skipped++
				continue
			}
			seen[rec.ID] = true
			if err := mergeRecord(tx, rec, plan, now); err != nil {
				return err
			}
		}

		for _, s := range tx.List() {
			switch {
			case s.RemoteID != "" && !seen[s.RemoteID]:
				tx.Remove(s.LocalID)
				plan.discard = append(plan.discard, s.LocalID)
				plan.stats.Removed++
			case s.RemoteID == "" && !pending.creates[s.LocalID]:
				plan.enqueue = append(plan.enqueue, domain.NewOperation(domain.OpCreate, s, now))
				plan.stats.Recreated++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func mergeRecord(tx *cache.Tx, rec *remote.Record, plan *mergePlan, now int64) error {
	incoming := rec.Session()

	local, ok := tx.ByRemoteID(rec.ID)
	if !ok && rec.ClientID != "" {
		if cand, found := tx.Get(rec.ClientID); found && cand.RemoteID == "" && cand.LocalID == rec.ClientID {
			// Created remotely, acknowledgement never arrived.
			cand.RemoteID = rec.ID
			local, ok = cand, true
			plan.stats.Adopted++
			if rec.ModifiedAt <= cand.ModifiedAt {
				cand.LastSyncedAt = now
				if err := tx.Put(cand); err != nil {
					return err
				}
			}
		}
	}

	if !ok {
		id, err := domain.NewLocalID()
		if err != nil {
			return err
		}
		incoming.LocalID = id
		incoming.LastSyncedAt = now
		plan.stats.Inserted++
		return tx.Put(incoming)
	}

	switch {
	case rec.ModifiedAt > local.ModifiedAt:
		local.AdoptContent(incoming)
		local.LastSyncedAt = now
		plan.discard = append(plan.discard, local.LocalID)
		plan.stats.Overwritten++
		return tx.Put(local)

	case rec.ModifiedAt < local.ModifiedAt, local.Fingerprint() != incoming.Fingerprint():
		plan.enqueue = append(plan.enqueue, domain.NewOperation(domain.OpUpdate, local, now))
		plan.stats.Enqueued++

	default:
		plan.stats.Kept++
	}
	return nil
}
