package models

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address is a 20-byte account identity rendered as 0x-prefixed lowercase hex.
type Address string

const zeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress normalises s and reports whether it is a well-formed, non-zero address.
func ParseAddress(s string) (Address, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return "", false
	}
	if _, err := hex.DecodeString(s[2:]); err != nil {
		return "", false
	}
	a := Address(s)
	if a == zeroAddress {
		return "", false
	}
	return a, true
}

// Valid reports whether a is already in normalised, non-zero form.
func (a Address) Valid() bool {
	p, ok := ParseAddress(string(a))
	return ok && p == a
}

func (a Address) String() string {
	return string(a)
}

// HashLength is the size of content digests and ledger hashes.
const HashLength = 32

// Hash is a fixed-size digest, JSON-encoded as 0x-prefixed hex.
type Hash [HashLength]byte

func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

func (h Hash) IsZero() bool {
	return h == Hash{}
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseHash decodes a 0x-prefixed (or bare) 64-character hex string.
func ParseHash(s string) (Hash, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	var h Hash
	if len(s) != HashLength*2 {
		return h, fmt.Errorf("hash must be %d hex characters, got %d", HashLength*2, len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return Hash{}, fmt.Errorf("invalid hash: %w", err)
	}
	return h, nil
}
