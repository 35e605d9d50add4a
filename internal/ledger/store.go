package ledger

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Write is one staged mutation. Delete removes the key and ignores Value.
type Write struct {
	Key    string
	Value  []byte
	Delete bool
}

// KV is a stored entry.
type KV struct {
	Key   string
	Value []byte
}

// KVStore persists contract state as independent keys inside a contract
// namespace. Scan returns entries ordered by key bytes. Commit applies all
// writes or none.
type KVStore interface {
	Get(ctx context.Context, contract, key string) ([]byte, bool, error)
	Scan(ctx context.Context, contract, prefix string) ([]KV, error)
	Commit(ctx context.Context, contract string, writes []Write) error
}

// MemoryStore is an in-process KVStore.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, contract, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.data[contract][key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (s *MemoryStore) Scan(_ context.Context, contract, prefix string) ([]KV, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []KV
	for key, value := range s.data[contract] {
		if strings.HasPrefix(key, prefix) {
			out = append(out, KV{Key: key, Value: append([]byte(nil), value...)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) Commit(_ context.Context, contract string, writes []Write) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.data[contract]
	if !ok {
		ns = make(map[string][]byte)
		s.data[contract] = ns
	}
	for _, w := range writes {
		if w.Delete {
			delete(ns, w.Key)
			continue
		}
		ns[w.Key] = append([]byte(nil), w.Value...)
	}
	return nil
}
