package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// TreeFingerprint identifies an expression tree by content. Two structurally
// equal trees share a fingerprint regardless of how they were loaded, which
// is what the evaluation memo keys on.
type TreeFingerprint Hash

// NewTreeFingerprint creates a fingerprint from a canonical serialized tree
func NewTreeFingerprint(data []byte) TreeFingerprint { return TreeFingerprint(NewHash(data)) }

func (f TreeFingerprint) String() string { return Hash(f).String() }
