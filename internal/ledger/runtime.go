package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Call describes a transaction submitted to a contract.
type Call struct {
	Contract string
	Method   string
	Caller   Address
	Args     any
}

// Record is a committed transaction as written to the journal and published
// to observers.
type Record struct {
	ID        string          `json:"id"`
	Seq       uint64          `json:"seq"`
	Contract  string          `json:"contract"`
	Method    string          `json:"method"`
	Caller    Address         `json:"caller"`
	Timestamp uint64          `json:"timestamp"`
	Args      json.RawMessage `json:"args"`
}

// Journal persists committed records. Append assigns rec.Seq. Revoke
// removes a record whose state commit failed; it is only called for the
// most recently appended record.
type Journal interface {
	Append(ctx context.Context, rec *Record) error
	Revoke(ctx context.Context, rec *Record) error
}

// Observer receives committed records after the commit.
type Observer interface {
	Notify(ctx context.Context, rec Record)
}

// Dispatcher re-executes journaled transactions by method name.
type Dispatcher interface {
	Name() string
	Dispatch(ctx context.Context, caller Address, method string, args json.RawMessage) error
}

// Runtime executes contract transactions one at a time against a KVStore.
type Runtime struct {
	store     KVStore
	clock     Clock
	journal   Journal
	observers []Observer
	logger    *zap.Logger

	mu   sync.RWMutex
	last uint64
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithJournal records every committed transaction in j.
func WithJournal(j Journal) Option {
	return func(r *Runtime) { r.journal = j }
}

// WithObserver publishes committed transactions to o.
func WithObserver(o Observer) Option {
	return func(r *Runtime) { r.observers = append(r.observers, o) }
}

// WithLogger sets the runtime logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) { r.logger = logger }
}

// NewRuntime creates a runtime over store.
func NewRuntime(store KVStore, clock Clock, opts ...Option) *Runtime {
	r := &Runtime{
		store:  store,
		clock:  clock,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the backing store.
func (r *Runtime) Store() KVStore {
	return r.store
}

// Execute runs fn as a single transaction. A nil return commits every staged
// write atomically; any error discards them.
func (r *Runtime) Execute(ctx context.Context, call Call, fn func(tx *Tx) error) error {
	if err := call.Caller.Validate(); err != nil {
		return err
	}
	args, err := json.Marshal(call.Args)
	if err != nil {
		return fmt.Errorf("failed to encode %s.%s args: %w", call.Contract, call.Method, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ts := r.now()
	tx := newTx(ctx, r.store, call.Contract, call.Caller, ts, false)
	if err := fn(tx); err != nil {
		if code, ok := AsCode(err); ok {
			r.logger.Debug("Transaction rejected",
				zap.String("contract", call.Contract),
				zap.String("method", call.Method),
				zap.String("caller", call.Caller.String()),
				zap.String("code", string(code)))
		} else {
			r.logger.Error("Transaction failed",
				zap.String("contract", call.Contract),
				zap.String("method", call.Method),
				zap.Error(err))
		}
		return err
	}

	rec := Record{
		ID:        uuid.NewString(),
		Contract:  call.Contract,
		Method:    call.Method,
		Caller:    call.Caller,
		Timestamp: ts,
		Args:      args,
	}

	// Journal first. A failed state commit revokes the record.
	if r.journal != nil {
		if err := r.journal.Append(ctx, &rec); err != nil {
			r.logger.Error("Failed to journal transaction",
				zap.String("contract", call.Contract),
				zap.String("method", call.Method),
				zap.Error(err))
			return fmt.Errorf("failed to journal %s.%s: %w", call.Contract, call.Method, err)
		}
	}

	if err := r.store.Commit(ctx, call.Contract, tx.writes()); err != nil {
		if r.journal != nil {
			if rerr := r.journal.Revoke(context.WithoutCancel(ctx), &rec); rerr != nil {
				r.logger.Error("Failed to revoke journal record of uncommitted transaction",
					zap.String("record_id", rec.ID),
					zap.Uint64("seq", rec.Seq),
					zap.Error(rerr))
				return fmt.Errorf("failed to commit %s.%s: %w (journal record %s not revoked: %v)",
					call.Contract, call.Method, err, rec.ID, rerr)
			}
		}
		return fmt.Errorf("failed to commit %s.%s: %w", call.Contract, call.Method, err)
	}
	r.last = ts

	r.logger.Info("Transaction committed",
		zap.String("contract", call.Contract),
		zap.String("method", call.Method),
		zap.String("caller", call.Caller.String()),
		zap.Uint64("timestamp", ts),
		zap.Uint64("seq", rec.Seq))

	for _, o := range r.observers {
		o.Notify(ctx, rec)
	}
	return nil
}

// View runs fn against committed state. Writes fail with ErrReadOnly.
func (r *Runtime) View(ctx context.Context, contract string, fn func(tx *Tx) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return fn(newTx(ctx, r.store, contract, "", r.now(), true))
}

// now keeps ledger time non-decreasing even if the clock steps back.
func (r *Runtime) now() uint64 {
	ts := r.clock.Now()
	if ts < r.last {
		return r.last
	}
	return ts
}
