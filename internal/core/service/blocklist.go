package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/yndnr/sessbox-go/internal/core/domain"
	"github.com/yndnr/sessbox-go/internal/storage"
)

// BlocklistService manages the blocked-domain list, persisted under
// storage.KeyBlocklist.
type BlocklistService struct {
	mu    sync.RWMutex
	store storage.KeyValueStore
	list  domain.DomainBlocklist
}

// NewBlocklistService creates an empty blocklist. Call Load to read the
// persisted entries.
func NewBlocklistService(store storage.KeyValueStore) *BlocklistService {
	return &BlocklistService{store: store}
}

// Load reads the persisted blocklist. A missing key yields an empty list.
func (b *BlocklistService) Load(ctx context.Context) error {
	data, err := b.store.Get(ctx, storage.KeyBlocklist)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return domain.ErrStorage.WithDetails("read blocklist").WithCause(err)
	}

	var list domain.DomainBlocklist
	if err := json.Unmarshal(data, &list); err != nil {
		return domain.ErrStorage.WithDetails("decode blocklist").WithCause(err)
	}

	b.mu.Lock()
	b.list = list
	b.mu.Unlock()
	return nil
}

// Blocked reports whether sessions for d may not be saved.
func (b *BlocklistService) Blocked(d string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.list.Blocked(d)
}

// Entries returns a copy of the entries, sorted.
func (b *BlocklistService) Entries() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.list.Entries...)
}

// Add adds an entry. It reports false if the entry was already present.
func (b *BlocklistService) Add(ctx context.Context, entry string) (bool, error) {
	if domain.NormalizeDomain(entry) == "" {
		return false, domain.ErrInvalidArgument.WithDetails("domain is required")
	}
	return b.mutate(ctx, func(l *domain.DomainBlocklist) bool { return l.Add(entry) })
}

// Remove removes an entry. It reports false if the entry was absent.
func (b *BlocklistService) Remove(ctx context.Context, entry string) (bool, error) {
	return b.mutate(ctx, func(l *domain.DomainBlocklist) bool { return l.Remove(entry) })
}

func (b *BlocklistService) mutate(ctx context.Context, fn func(*domain.DomainBlocklist) bool) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := domain.DomainBlocklist{Entries: append([]string(nil), b.list.Entries...)}
	if !fn(&next) {
		return false, nil
	}
	data, err := json.Marshal(next)
	if err != nil {
		return false, domain.ErrInternal.WithCause(err)
	}
	if err := b.store.Set(ctx, storage.KeyBlocklist, data); err != nil {
		return false, domain.ErrStorage.WithDetails("write blocklist").WithCause(err)
	}
	b.list = next
	return true, nil
}
