package domain

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the byte length of an EVM address.
const AddressLength = 20

// Address is a 20-byte EVM address. It is comparable and used directly as a
// map key; case is normalized once at parse time, not on every lookup.
type Address [AddressLength]byte

// ParseAddress parses a hex address string, with or without the 0x prefix,
// case-insensitively.
func ParseAddress(s string) (Address, error) {
	var a Address

	raw := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw = strings.TrimPrefix(raw, "0X")
	if len(raw) != AddressLength*2 {
		return a, fmt.Errorf("invalid address %q: expected %d hex chars, got %d", s, AddressLength*2, len(raw))
	}

	b, err := hex.DecodeString(strings.ToLower(raw))
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %w", s, err)
	}

	copy(a[:], b)
	return a, nil
}

// MustAddress parses a hex address and panics on error. For tests and
// compile-time constants only.
func MustAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the 0x-prefixed lowercase hex encoding.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// IsZero reports whether the address is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}
