package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mobility-finance/ledger-backend/internal/ledger"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS ledger_entries (
		contract   TEXT        NOT NULL,
		key        TEXT        NOT NULL,
		value      BYTEA       NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (contract, key)
	)
`

// PostgresStore implements ledger.KVStore on a single ledger_entries table
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a new PostgreSQL state store
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the entries table when missing
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create ledger_entries: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, contract, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value,
		`SELECT value FROM ledger_entries WHERE contract = $1 AND key = $2`, contract, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s/%s: %w", contract, key, err)
	}
	return value, true, nil
}

// Scan orders by the C collation so key order is byte order, matching the
// other stores.
func (s *PostgresStore) Scan(ctx context.Context, contract, prefix string) ([]ledger.KV, error) {
	var rows []struct {
		Key   string `db:"key"`
		Value []byte `db:"value"`
	}
	query := `
		SELECT key, value
		FROM ledger_entries
		WHERE contract = $1 AND starts_with(key, $2)
		ORDER BY key COLLATE "C"
	`
	if err := s.db.SelectContext(ctx, &rows, query, contract, prefix); err != nil {
		return nil, fmt.Errorf("failed to scan %s/%s: %w", contract, prefix, err)
	}

	out := make([]ledger.KV, len(rows))
	for i, row := range rows {
		out[i] = ledger.KV{Key: row.Key, Value: row.Value}
	}
	return out, nil
}

func (s *PostgresStore) Commit(ctx context.Context, contract string, writes []ledger.Write) (err error) {
	if len(writes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin commit: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, w := range writes {
		if w.Delete {
			_, err = tx.ExecContext(ctx,
				`DELETE FROM ledger_entries WHERE contract = $1 AND key = $2`, contract, w.Key)
		} else {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO ledger_entries (contract, key, value)
				VALUES ($1, $2, $3)
				ON CONFLICT (contract, key)
				DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
			`, contract, w.Key, w.Value)
		}
		if err != nil {
			return fmt.Errorf("failed to write %s/%s: %w", contract, w.Key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", contract, err)
	}
	return nil
}
