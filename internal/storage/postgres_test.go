package storage

import (
	"context"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mobility-finance/ledger-backend/internal/config"
	"mobility-finance/ledger-backend/internal/ledger"
)

// Set LEDGER_TEST_DATABASE_URL to run against a real database.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	store := NewPostgresStore(db)
	require.NoError(t, store.EnsureSchema(ctx))

	contract := "test_" + string(ledger.ShortID(t.Name()))
	t.Cleanup(func() {
		_, _ = db.Exec(`DELETE FROM ledger_entries WHERE contract = $1`, contract)
	})

	require.NoError(t, store.Commit(ctx, contract, []ledger.Write{
		{Key: "asset/b", Value: []byte("2")},
		{Key: "asset/a", Value: []byte("1")},
		{Key: "asset/B", Value: []byte("3")},
		{Key: "config", Value: []byte("{}")},
	}))

	value, ok, err := store.Get(ctx, contract, "asset/a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), value)

	entries, err := store.Scan(ctx, contract, "asset/")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "asset/B", entries[0].Key)
	assert.Equal(t, "asset/a", entries[1].Key)
	assert.Equal(t, "asset/b", entries[2].Key)

	require.NoError(t, store.Commit(ctx, contract, []ledger.Write{
		{Key: "asset/a", Value: []byte("10")},
		{Key: "asset/b", Delete: true},
	}))

	value, _, err = store.Get(ctx, contract, "asset/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("10"), value)

	_, ok, err = store.Get(ctx, contract, "asset/b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, config.StorageConfig{Driver: config.StorageMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ledger.MemoryStore{}, store)

	_, err = Open(ctx, config.StorageConfig{Driver: config.StoragePostgres}, nil)
	assert.Error(t, err)

	_, err = Open(ctx, config.StorageConfig{Driver: "bolt"}, nil)
	assert.Error(t, err)
}
