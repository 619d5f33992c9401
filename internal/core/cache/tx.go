package cache

import (
	"github.com/yndnr/sessbox-go/internal/core/domain"
)

// Tx is a working copy of the cache inside Batch. Records returned by Tx
// are copies; changes take effect through Put and Remove.
type Tx struct {
	cache    *Cache
	sessions map[string]*domain.Session
	byRemote map[string]string
	dirty    bool
}

// Get returns a copy of the record with the given local or remote ID.
func (tx *Tx) Get(id string) (*domain.Session, bool) {
	s := tx.cache.lookup(tx.sessions, tx.byRemote, id)
	if s == nil {
		return nil, false
	}
	return s.Clone(), true
}

// ByRemoteID returns a copy of the record with the given remote ID.
func (tx *Tx) ByRemoteID(remoteID string) (*domain.Session, bool) {
	lid, ok := tx.byRemote[remoteID]
	if !ok {
		return nil, false
	}
	return tx.sessions[lid].Clone(), true
}

// Put inserts or replaces the record with s.LocalID. It fails if another
// record already holds s.RemoteID.
func (tx *Tx) Put(s *domain.Session) error {
	if s.LocalID == "" {
		return domain.ErrInvalidArgument.WithDetails("session local id is required")
	}
	if s.RemoteID != "" {
		if owner, ok := tx.byRemote[s.RemoteID]; ok && owner != s.LocalID {
			return domain.ErrInvalidArgument.WithDetailsf("remote id %s already belongs to %s", s.RemoteID, owner)
		}
	}
	if prev, ok := tx.sessions[s.LocalID]; ok && prev.RemoteID != "" && prev.RemoteID != s.RemoteID {
		delete(tx.byRemote, prev.RemoteID)
	}
	tx.sessions[s.LocalID] = s.Clone()
	if s.RemoteID != "" {
		tx.byRemote[s.RemoteID] = s.LocalID
	}
	tx.dirty = true
	return nil
}

// Remove deletes the record with the given local ID. It reports whether
// a record was removed.
func (tx *Tx) Remove(localID string) bool {
	s, ok := tx.sessions[localID]
	if !ok {
		return false
	}
	delete(tx.sessions, localID)
	if s.RemoteID != "" {
		delete(tx.byRemote, s.RemoteID)
	}
	tx.dirty = true
	return true
}

// List returns copies of all records.
func (tx *Tx) List() []*domain.Session {
	out := make([]*domain.Session, 0, len(tx.sessions))
	for _, s := range tx.sessions {
		out = append(out, s.Clone())
	}
	return out
}

// Len returns the number of records in the working copy.
func (tx *Tx) Len() int {
	return len(tx.sessions)
}

// Now returns the cache's clock reading.
func (tx *Tx) Now() int64 {
	return tx.cache.now().UnixMilli()
}
