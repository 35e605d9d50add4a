// Package storage provides the persistent ledger.KVStore backends.
package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mobility-finance/ledger-backend/internal/config"
	"mobility-finance/ledger-backend/internal/ledger"
)

// Open returns the store selected by cfg.Driver. db is required for the
// postgres driver and ignored otherwise.
func Open(ctx context.Context, cfg config.StorageConfig, db *sqlx.DB) (ledger.KVStore, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return ledger.NewMemoryStore(), nil
	case config.StoragePostgres:
		if db == nil {
			return nil, fmt.Errorf("postgres storage requires a database connection")
		}
		store := NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageDynamoDB:
		client, err := NewDynamoClient(ctx, cfg.DynamoDB)
		if err != nil {
			return nil, err
		}
		return NewDynamoStore(client, cfg.DynamoDB.Table), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
