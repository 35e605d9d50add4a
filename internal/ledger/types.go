package ledger

import "unicode"

// MaxSymbolLen is the longest identifier accepted as a Symbol.
const MaxSymbolLen = 32

// MaxAddressLen bounds principal strings so they stay usable inside storage keys.
const MaxAddressLen = 128

// Address identifies a principal authenticated by the host.
type Address string

func (a Address) String() string {
	return string(a)
}

// Validate returns ErrInvalidAddress for empty principals or ones that would
// collide with the storage key separator.
func (a Address) Validate() error {
	if a == "" || len(a) > MaxAddressLen {
		return ErrInvalidAddress
	}
	for _, r := range string(a) {
		if r == '/' || unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return ErrInvalidAddress
		}
	}
	return nil
}

// Symbol is a short identifier made of letters, digits and underscores.
type Symbol string

func (s Symbol) String() string {
	return string(s)
}

// Validate returns ErrInvalidSymbol unless s holds 1..MaxSymbolLen characters
// from [A-Za-z0-9_].
func (s Symbol) Validate() error {
	if s == "" || len(s) > MaxSymbolLen {
		return ErrInvalidSymbol
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
		default:
			return ErrInvalidSymbol
		}
	}
	return nil
}

// ValidateSymbols returns the first validation failure among symbols.
func ValidateSymbols(symbols ...Symbol) error {
	for _, s := range symbols {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateAddresses returns the first validation failure among addresses.
func ValidateAddresses(addresses ...Address) error {
	for _, a := range addresses {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}
