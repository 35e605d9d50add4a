package journal

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"mobility-finance/ledger-backend/internal/ledger"
)

// DefaultPageSize is the number of records read per List call
const DefaultPageSize = 500

// Factory builds the contracts that replayed records are dispatched to
type Factory func(rt *ledger.Runtime) []ledger.Dispatcher

// Result summarizes a replay
type Result struct {
	Records int            `json:"records"`
	LastSeq uint64         `json:"last_seq"`
	Digest  string         `json:"digest"`
	Store   ledger.KVStore `json:"-"`
}

// Replayer rebuilds contract state from the journal
type Replayer struct {
	source   Source
	build    Factory
	logger   *zap.Logger
	pageSize int
}

// NewReplayer creates a replayer over source
func NewReplayer(source Source, build Factory, logger *zap.Logger) *Replayer {
	return &Replayer{source: source, build: build, logger: logger, pageSize: DefaultPageSize}
}

// Replay re-executes every journaled record in sequence order against a
// fresh in-memory store. Each record runs at its journaled timestamp.
func (r *Replayer) Replay(ctx context.Context) (*Result, error) {
	store := ledger.NewMemoryStore()
	clock := ledger.NewManualClock(0)
	rt := ledger.NewRuntime(store, clock, ledger.WithLogger(r.logger))

	dispatchers := make(map[string]ledger.Dispatcher)
	var names []string
	for _, d := range r.build(rt) {
		dispatchers[d.Name()] = d
		names = append(names, d.Name())
	}

	res := &Result{Store: store}
	for {
		page, err := r.source.List(ctx, res.LastSeq, r.pageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, rec := range page {
			d, ok := dispatchers[rec.Contract]
			if !ok {
				return nil, fmt.Errorf("record %d: unknown contract %q", rec.Seq, rec.Contract)
			}

			clock.Set(rec.Timestamp)
			if err := d.Dispatch(ctx, rec.Caller, rec.Method, rec.Args); err != nil {
				return nil, fmt.Errorf("record %d (%s.%s): %w", rec.Seq, rec.Contract, rec.Method, err)
			}
			res.Records++
			res.LastSeq = rec.Seq
		}
	}

	digest, err := ledger.Digest(ctx, store, names...)
	if err != nil {
		return nil, err
	}
	res.Digest = digest

	r.logger.Info("Journal replayed",
		zap.Int("records", res.Records),
		zap.Uint64("last_seq", res.LastSeq),
		zap.String("digest", digest))

	return res, nil
}
