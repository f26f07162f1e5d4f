package ginternals

import (
	"crypto/sha1" //nolint:gosec // sha1 is what the git object format uses
	"encoding/hex"
	"errors"
)

const (
	// OidSize is the length of an Oid, in bytes
	OidSize = 20
)

var (
	// NullOid is the value of an empty Oid, or one that's all 0s
	NullOid = Oid{}

	// ErrInvalidOid is returned when a given value isn't a valid Oid
	ErrInvalidOid = errors.New("invalid Oid")
)

// Oid represents a git Object ID.
// This module only supports the SHA1 object format; Oid is a fixed-size
// array rather than the pluggable githash.Oid interface so the rest of
// the codebase can treat it as a plain comparable value.
type Oid [OidSize]byte

// Bytes returns the raw Oid as []byte.
func (o Oid) Bytes() []byte {
	return o[:]
}

// String converts an oid to its hex representation
func (o Oid) String() string {
	return hex.EncodeToString(o[:])
}

// IsZero returns whether the oid has the zero value (NullOid)
func (o Oid) IsZero() bool {
	return o == NullOid
}

// NewOidFromContent returns the Oid of the given content.
// The oid is the SHA1 sum of the content.
func NewOidFromContent(b []byte) Oid {
	return sha1.Sum(b) //nolint:gosec // see above
}

// NewOidFromHex returns an Oid from the provided byte-encoded oid
// (ie. the raw 20 bytes, not their hex string form).
func NewOidFromHex(id []byte) (Oid, error) {
	if len(id) < OidSize {
		return NullOid, ErrInvalidOid
	}

	var oid Oid
	copy(oid[:], id)
	return oid, nil
}

// NewOidFromChars creates an Oid from the given char bytes.
// For the SHA {'9', 'b', '9', '1', 'd', 'a', ...} the oid will be
// {0x9b, 0x91, 0xda, ...}
func NewOidFromChars(id []byte) (Oid, error) {
	return NewOidFromString(string(id))
}

// NewOidFromString creates an Oid from the given hex string.
// For the SHA 9b91da06e69613397b38e0808e0ba5ee6983251b the oid will be
// {0x9b, 0x91, 0xda, ...}
func NewOidFromString(id string) (Oid, error) {
	b, err := hex.DecodeString(id)
	if err != nil {
		return NullOid, ErrInvalidOid
	}
	if len(b) != OidSize {
		return NullOid, ErrInvalidOid
	}

	var oid Oid
	copy(oid[:], b)
	return oid, nil
}
