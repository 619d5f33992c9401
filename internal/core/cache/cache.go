// Package cache implements the local session cache: the in-memory map of
// session records, persisted as a whole to the key-value store after every
// mutation.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/storage"
	"github.com/yndnr/sessbox-go/internal/telemetry/logger"
	"github.com/yndnr/sessbox-go/internal/telemetry/metric"
)

// Cache is the local session cache.
//
// Every mutating call returns only after the full cache has been written
// to the store. If the write fails the in-memory state is rolled back, so
// memory never runs ahead of durable storage.
type Cache struct {
	mu       sync.Mutex
	store    storage.KeyValueStore
	sessions map[string]*domain.Session // localID -> record
	byRemote map[string]string          // remoteID -> localID

	now     func() time.Time
	logger  logger.Logger
	metrics *metric.Registry
}

// Option configures the Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithMetrics enables the cache size gauge.
func WithMetrics(m *metric.Registry) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates an empty cache backed by store. Call Load to read the
// persisted state.
func New(store storage.KeyValueStore, opts ...Option) *Cache {
	c := &Cache{
		store:    store,
		sessions: make(map[string]*domain.Session),
		byRemote: make(map[string]string),
		now:      time.Now,
		logger:   logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "cache")
	return c
}

// Load replaces the in-memory state with the persisted one. A missing key
// yields an empty cache.
func (c *Cache) Load(ctx context.Context) error {
	data, err := c.store.Get(ctx, storage.KeySessions)
	if errors.Is(err, storage.ErrKeyNotFound) {
		data = nil
	} else if err != nil {
		return domain.ErrStorage.WithDetails("read sessions").WithCause(err)
	}

	var records []*domain.Session
	if len(data) > 0 {
		if err := json.Unmarshal(data, &records); err != nil {
			return domain.ErrStorage.WithDetails("decode sessions").WithCause(err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessions = make(map[string]*domain.Session, len(records))
	c.byRemote = make(map[string]string, len(records))
	for _, s := range records {
		if s == nil || s.LocalID == "" {
			continue
		}
		if s.RemoteID != "" {
			if prev, ok := c.byRemote[s.RemoteID]; ok {
				// Keep the newer copy so the one-record-per-remote-id rule
				// holds after a bad write.
				if c.sessions[prev].ModifiedAt >= s.ModifiedAt {
					c.logger.Warn("dropping duplicate record on load", "remote_id", s.RemoteID, "local_id", s.LocalID)
					continue
				}
				c.logger.Warn("dropping duplicate record on load", "remote_id", s.RemoteID, "local_id", prev)
				delete(c.sessions, prev)
			}
			c.byRemote[s.RemoteID] = s.LocalID
		}
		c.sessions[s.LocalID] = s
	}
	c.metrics.SetCacheSessions(len(c.sessions))
	c.logger.Debug("cache loaded", "sessions", len(c.sessions))
	return nil
}

// Create stores a new record. It assigns a fresh LocalID, clears any
// RemoteID and stamps ModifiedAt with the current time.
func (c *Cache) Create(ctx context.Context, draft *domain.Session) (*domain.Session, error) {
	if draft == nil {
		return nil, domain.ErrInvalidArgument.WithDetails("session is required")
	}
	s := draft.Clone()
	s.Domain = domain.NormalizeDomain(s.Domain)
	s.Name = strings.TrimSpace(s.Name)
	if err := s.Validate(); err != nil {
		return nil, err
	}

	id, err := domain.NewLocalID()
	if err != nil {
		return nil, err
	}
	now := c.now().UnixMilli()
	s.LocalID = id
	s.RemoteID = ""
	s.LastSyncedAt = 0
	s.ModifiedAt = now
	if s.CreatedAt == 0 {
		s.CreatedAt = now
	}
	if s.LastUsed == 0 {
		s.LastUsed = now
	}

	err = c.Batch(ctx, func(tx *Tx) error {
		return tx.Put(s)
	})
	if err != nil {
		return nil, err
	}
	return s.Clone(), nil
}

// Update merges patch into the record identified by id (local or remote
// ID) and bumps ModifiedAt.
func (c *Cache) Update(ctx context.Context, id string, patch domain.SessionPatch) (*domain.Session, error) {
	var out *domain.Session
	err := c.Batch(ctx, func(tx *Tx) error {
		s, ok := tx.Get(id)
		if !ok {
			return notFound(id)
		}
		patch.Apply(s)
		s.Domain = domain.NormalizeDomain(s.Domain)
		if err := s.Validate(); err != nil {
			return err
		}
		s.ModifiedAt = domain.NextModifiedAt(s.ModifiedAt, c.now())
		out = s
		return tx.Put(s)
	})
	if err != nil {
		return nil, err
	}
	return out.Clone(), nil
}

// Touch records that the session was just restored.
func (c *Cache) Touch(ctx context.Context, id string) (*domain.Session, error) {
	now := c.now().UnixMilli()
	return c.Update(ctx, id, domain.SessionPatch{LastUsed: &now})
}

// Delete removes the record identified by id and returns it. A second
// Delete of the same id fails with NotFound.
func (c *Cache) Delete(ctx context.Context, id string) (*domain.Session, error) {
	var out *domain.Session
	err := c.Batch(ctx, func(tx *Tx) error {
		s, ok := tx.Get(id)
		if !ok {
			return notFound(id)
		}
		out = s
		tx.Remove(s.LocalID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a copy of the record identified by a local or remote ID.
func (c *Cache) Get(id string) (*domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s := c.lookup(c.sessions, c.byRemote, id); s != nil {
		return s.Clone(), nil
	}
	return nil, notFound(id)
}

// List returns copies of all records in no particular order.
func (c *Cache) List() []*domain.Session {
	return c.filter(func(*domain.Session) bool { return true })
}

// ListByDomain returns copies of the records for one domain.
func (c *Cache) ListByDomain(d string) []*domain.Session {
	d = domain.NormalizeDomain(d)
	return c.filter(func(s *domain.Session) bool { return s.Domain == d })
}

// Len returns the number of records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *Cache) filter(keep func(*domain.Session) bool) []*domain.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*domain.Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		if keep(s) {
			out = append(out, s.Clone())
		}
	}
	return out
}

// Batch runs fn against a transactional view of the cache. If fn returns
// nil the changes are persisted and published atomically; otherwise, or
// if persisting fails, nothing changes. Batch holds the cache lock for
// its whole duration, so fn must not call other Cache methods.
func (c *Cache) Batch(ctx context.Context, fn func(tx *Tx) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := &Tx{
		cache:    c,
		sessions: make(map[string]*domain.Session, len(c.sessions)),
		byRemote: make(map[string]string, len(c.byRemote)),
	}
	for k, v := range c.sessions {
		tx.sessions[k] = v
	}
	for k, v := range c.byRemote {
		tx.byRemote[k] = v
	}

	if err := fn(tx); err != nil {
		return err
	}
	if !tx.dirty {
		return nil
	}
	if err := c.persist(ctx, tx.sessions); err != nil {
		return err
	}
	c.sessions = tx.sessions
	c.byRemote = tx.byRemote
	c.metrics.SetCacheSessions(len(c.sessions))
	return nil
}

func (c *Cache) persist(ctx context.Context, sessions map[string]*domain.Session) error {
	records := make([]*domain.Session, 0, len(sessions))
	for _, s := range sessions {
		records = append(records, s)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].LocalID < records[j].LocalID })

	data, err := json.Marshal(records)
	if err != nil {
		return domain.ErrInternal.WithDetails("encode sessions").WithCause(err)
	}
	if err := c.store.Set(ctx, storage.KeySessions, data); err != nil {
		return domain.ErrStorage.WithDetails("write sessions").WithCause(err)
	}
	return nil
}

func (c *Cache) lookup(sessions map[string]*domain.Session, byRemote map[string]string, id string) *domain.Session {
	if s, ok := sessions[id]; ok {
		return s
	}
	if lid, ok := byRemote[id]; ok {
		return sessions[lid]
	}
	return nil
}

func notFound(id string) error {
	return domain.ErrNotFound.WithDetailsf("session %s", id)
}
