package ledger

import "errors"

// Code is a domain failure returned by a contract transaction. A transaction
// that returns a Code commits nothing.
type Code string

func (c Code) Error() string {
	return string(c)
}

// Codes shared by every contract.
const (
	ErrUnauthorized       Code = "UNAUTHORIZED"
	ErrNotInitialized     Code = "NOT_INITIALIZED"
	ErrAlreadyInitialized Code = "ALREADY_INITIALIZED"
	ErrInvalidAddress     Code = "INVALID_ADDRESS"
	ErrInvalidSymbol      Code = "INVALID_SYMBOL"
)

// Host faults. These are never returned as Codes.
var (
	ErrReadOnly      = errors.New("ledger: write attempted in read-only transaction")
	ErrUnknownMethod = errors.New("ledger: unknown method")
)

// AsCode extracts the domain code from err, if any.
func AsCode(err error) (Code, bool) {
	var code Code
	if errors.As(err, &code) {
		return code, true
	}
	return "", false
}
