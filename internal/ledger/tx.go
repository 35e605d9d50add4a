package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Tx is the context of one contract transaction. Reads see the committed
// state overlaid with the transaction's own staged writes. Nothing reaches
// the store until the runtime commits.
type Tx struct {
	ctx       context.Context
	store     KVStore
	contract  string
	caller    Address
	timestamp uint64
	readOnly  bool
	staged    map[string]Write
}

func newTx(ctx context.Context, store KVStore, contract string, caller Address, ts uint64, readOnly bool) *Tx {
	return &Tx{
		ctx:       ctx,
		store:     store,
		contract:  contract,
		caller:    caller,
		timestamp: ts,
		readOnly:  readOnly,
		staged:    make(map[string]Write),
	}
}

// Context returns the request context the transaction runs under.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Caller returns the principal that invoked the transaction. Views have no caller.
func (tx *Tx) Caller() Address {
	return tx.caller
}

// Timestamp returns the ledger time assigned to the transaction.
func (tx *Tx) Timestamp() uint64 {
	return tx.timestamp
}

// Get decodes the value at key into out and reports whether it existed.
func (tx *Tx) Get(key string, out any) (bool, error) {
	raw, ok, err := tx.raw(key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode %s/%s: %w", tx.contract, key, err)
	}
	return true, nil
}

// Has reports whether key holds a value.
func (tx *Tx) Has(key string) (bool, error) {
	_, ok, err := tx.raw(key)
	return ok, err
}

// Put stages v under key.
func (tx *Tx) Put(key string, v any) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", tx.contract, key, err)
	}
	tx.staged[key] = Write{Key: key, Value: raw}
	return nil
}

// Delete stages removal of key.
func (tx *Tx) Delete(key string) error {
	if tx.readOnly {
		return ErrReadOnly
	}
	tx.staged[key] = Write{Key: key, Delete: true}
	return nil
}

// Scan returns every entry under prefix in key order, staged writes included.
func (tx *Tx) Scan(prefix string) ([]KV, error) {
	stored, err := tx.store.Scan(tx.ctx, tx.contract, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s/%s: %w", tx.contract, prefix, err)
	}
	if len(tx.staged) == 0 {
		return stored, nil
	}

	merged := make(map[string][]byte, len(stored))
	for _, kv := range stored {
		merged[kv.Key] = kv.Value
	}
	for key, w := range tx.staged {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if w.Delete {
			delete(merged, key)
		} else {
			merged[key] = w.Value
		}
	}

	out := make([]KV, 0, len(merged))
	for key, value := range merged {
		out = append(out, KV{Key: key, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (tx *Tx) raw(key string) ([]byte, bool, error) {
	if w, ok := tx.staged[key]; ok {
		if w.Delete {
			return nil, false, nil
		}
		return w.Value, true, nil
	}
	raw, ok, err := tx.store.Get(tx.ctx, tx.contract, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s/%s: %w", tx.contract, key, err)
	}
	return raw, ok, nil
}

// writes returns staged mutations ordered by key.
func (tx *Tx) writes() []Write {
	out := make([]Write, 0, len(tx.staged))
	for _, w := range tx.staged {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ScanAll decodes every value under prefix in key order.
func ScanAll[T any](tx *Tx, prefix string) ([]T, error) {
	entries, err := tx.Scan(prefix)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entries))
	for _, kv := range entries {
		var item T
		if err := json.Unmarshal(kv.Value, &item); err != nil {
			return nil, fmt.Errorf("failed to decode %s/%s: %w", tx.contract, kv.Key, err)
		}
		out = append(out, item)
	}
	return out, nil
}
