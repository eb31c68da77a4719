package memory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/samber/lo"

	"github.com/JakeFAU/lockss-laaws/internal/store"
)

// MetadataStore keeps AU metadata items in memory. It doubles as the AU
// catalog: an AU exists once it has been registered with AddAu, even if it
// has no items.
type MetadataStore struct {
	mu      sync.RWMutex
	aus     map[string][]store.ItemMetadata
	nextSeq int64
}

// NewMetadataStore constructs an empty MetadataStore.
func NewMetadataStore() *MetadataStore {
	return &MetadataStore{aus: make(map[string][]store.ItemMetadata)}
}

// AddAu registers auIDs with the catalog.
func (s *MetadataStore) AddAu(auIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range auIDs {
		if _, ok := s.aus[id]; !ok {
			s.aus[id] = nil
		}
	}
}

// AuExists reports whether auID was registered.
func (s *MetadataStore) AuExists(_ context.Context, auID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.aus[auID]
	return ok, nil
}

// AuMetadata returns deep copies of the items of auID in insertion order.
func (s *MetadataStore) AuMetadata(_ context.Context, auID string) ([]store.ItemMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, ok := s.aus[auID]
	if !ok {
		return nil, fmt.Errorf("au %q: %w", auID, store.ErrNotFound)
	}
	return lo.Map(items, func(it store.ItemMetadata, _ int) store.ItemMetadata {
		return it.Clone()
	}), nil
}

// AddItem appends item to its AU, registering the AU if needed. A missing ID
// defaults to the decimal sequence number.
func (s *MetadataStore) AddItem(_ context.Context, item store.ItemMetadata) (store.ItemMetadata, error) {
	if item.AuID == "" {
		return store.ItemMetadata{}, errors.New("metadata item without au id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSeq++
	item = item.Clone()
	item.Seq = s.nextSeq
	if item.ID == "" {
		item.ID = strconv.FormatInt(item.Seq, 10)
	}
	s.aus[item.AuID] = append(s.aus[item.AuID], item)
	return item.Clone(), nil
}

// DeleteAuMetadata drops every item of auID. The AU stays registered.
func (s *MetadataStore) DeleteAuMetadata(_ context.Context, auID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, ok := s.aus[auID]
	if !ok {
		return 0, fmt.Errorf("au %q: %w", auID, store.ErrNotFound)
	}
	s.aus[auID] = nil
	return len(items), nil
}
