package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// ShortIDBytes is the number of digest bytes kept in generated identifiers.
const ShortIDBytes = 8

// SHA256 hashes data.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// ShortID joins parts with "_", hashes the result and renders the first
// ShortIDBytes bytes as lowercase hex.
func ShortID(parts ...string) Symbol {
	sum := sha256.Sum256([]byte(strings.Join(parts, "_")))
	return Symbol(hex.EncodeToString(sum[:ShortIDBytes]))
}

// FormatTimestamp renders a ledger timestamp the way identifiers embed it.
func FormatTimestamp(ts uint64) string {
	return strconv.FormatUint(ts, 10)
}
