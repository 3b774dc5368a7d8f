// Package domain holds the primitive identity types shared by every module:
// 32-byte addresses, 32-byte digests, and the deterministic derivation that
// turns a record label plus its identifying components into the record's
// globally unique address.
package domain

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	dErrors "agentmemory/pkg/domain-errors"
)

// Address is a 32-byte account or record key.
//
// Invariants:
//   - The zero value is never a valid participant address
//   - Record addresses are always produced by DeriveAddress, so two distinct
//     logical records cannot collide
type Address [32]byte

// Hash is a keccak-256 digest.
type Hash [32]byte

// Derivation labels. One label per record kind keeps the derivation spaces
// disjoint even when identifier bytes overlap.
const (
	LabelAgent    = "agent"
	LabelMemory   = "memory"
	LabelAttest   = "attest"
	LabelModule   = "module"
	LabelPurchase = "purchase"
	LabelPlatform = "platform_config"
)

// Keccak computes the keccak-256 digest of data.
func Keccak(data []byte) Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// KeccakPair binds two digests into a single commitment: keccak(a || b).
func KeccakPair(a, b Hash) Hash {
	combined := make([]byte, 0, len(a)+len(b))
	combined = append(combined, a[:]...)
	combined = append(combined, b[:]...)
	return Keccak(combined)
}

// DeriveAddress computes the deterministic address for a record from its
// label and identifying components. Each component is length-prefixed so
// that ("ab","c") and ("a","bc") derive different addresses.
func DeriveAddress(label string, components ...[]byte) Address {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(label))
	var prefix [4]byte
	for _, c := range components {
		binary.LittleEndian.PutUint32(prefix[:], uint32(len(c)))
		h.Write(prefix[:])
		h.Write(c)
	}
	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

// TimeComponent encodes a timestamp for use as a derivation component.
// Second precision matches the source behavior: two records created by the
// same owner within one second collide and surface as a conflict.
func TimeComponent(t time.Time) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(t.Unix()))
	return buf[:]
}

// IsZero reports whether the address is the all-zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Bytes returns the address as a byte slice for derivation components.
func (a Address) Bytes() []byte {
	return a[:]
}

// String renders the address as 0x-prefixed hex.
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler for JSON payloads.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a 0x-prefixed or bare 64-character hex address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	if s == "" {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address is required")
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address must be hex encoded")
	}
	if len(raw) != len(Address{}) {
		return Address{}, dErrors.New(dErrors.CodeInvalidInput, "address must be 32 bytes")
	}
	var out Address
	copy(out[:], raw)
	return out, nil
}

// String renders the hash as 0x-prefixed hex.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// MarshalText implements encoding.TextMarshaler for JSON payloads.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hash) UnmarshalText(text []byte) error {
	s := strings.TrimPrefix(strings.TrimSpace(string(text)), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != len(Hash{}) {
		return dErrors.New(dErrors.CodeInvalidInput, "digest must be 32 hex-encoded bytes")
	}
	copy(h[:], raw)
	return nil
}
