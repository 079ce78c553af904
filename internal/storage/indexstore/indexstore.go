// Package indexstore is an in-memory Storage implementation used as the
// index backend in tests and single-node/dev deployments where a separate
// search index service is not configured. It implements the same narrow
// Storage interface as the Neo4j and Qdrant backends so the StorageMapper
// and discovery read path never need to special-case it.
package indexstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/wessley-ai/querent-node/internal/storage"
)

// Store is a process-local index/KV backend guarded by one mutex.
type Store struct {
	name string

	mu      sync.RWMutex
	byEvent map[string]storage.GraphItem
	kv      map[string]string
}

// New returns an empty Store under the given backend name.
func New(name string) *Store {
	return &Store{name: name, byEvent: make(map[string]storage.GraphItem), kv: make(map[string]string)}
}

var _ storage.Storage = (*Store)(nil)
var _ storage.IndexLookup = (*Store)(nil)

func (s *Store) Name() string { return s.name }

func (s *Store) CheckConnectivity(context.Context) error { return nil }

func (s *Store) IndexKnowledge(_ context.Context, items []storage.GraphItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.byEvent[item.Payload.EventID] = item
	}
	return nil
}

func (s *Store) LookupByEventID(_ context.Context, eventID string) (storage.GraphItem, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.byEvent[eventID]
	return item, ok, nil
}

func (s *Store) StoreKV(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = value
	return nil
}

func (s *Store) GetKV(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.kv[key]
	return v, ok, nil
}

func (s *Store) InsertGraph(context.Context, []storage.GraphItem) error {
	return &storage.Error{Backend: s.name, Kind: storage.Service, Err: fmt.Errorf("indexstore: graph insertion not supported, use IndexKnowledge")}
}

func (s *Store) InsertVector(context.Context, string, []storage.VectorItem) error {
	return &storage.Error{Backend: s.name, Kind: storage.Service, Err: fmt.Errorf("indexstore: vector insertion not supported")}
}
