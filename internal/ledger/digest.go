package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// Digest hashes the full state of the given contracts in key order. Two
// stores that hold the same state produce the same digest.
func Digest(ctx context.Context, store KVStore, contracts ...string) (string, error) {
	h := sha256.New()
	var size [8]byte
	for _, contract := range contracts {
		entries, err := store.Scan(ctx, contract, "")
		if err != nil {
			return "", fmt.Errorf("failed to scan %s: %w", contract, err)
		}
		for _, kv := range entries {
			h.Write([]byte(contract))
			h.Write([]byte{0})
			h.Write([]byte(kv.Key))
			h.Write([]byte{0})
			binary.BigEndian.PutUint64(size[:], uint64(len(kv.Value)))
			h.Write(size[:])
			h.Write(kv.Value)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
