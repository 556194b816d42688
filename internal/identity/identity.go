// Package identity derives stable store keys from document content, so that
// importing the same MFT twice overwrites instead of duplicating.
package identity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"

	"github.com/cdtdelta/mft2es/internal/model"
)

// Algorithm selects the digest function.
type Algorithm int

const (
	// BLAKE3 produces a 256-bit BLAKE3 digest.
	BLAKE3 Algorithm = iota
	// SHA256 produces a SHA-256 digest, for stores shared with other tools.
	SHA256
)

func (a Algorithm) String() string {
	if a == SHA256 {
		return "sha256"
	}
	return "blake3"
}

// ParseAlgorithm parses "blake3" or "sha256". An empty string selects BLAKE3.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "", "blake3":
		return BLAKE3, nil
	case "sha256", "sha-256":
		return SHA256, nil
	default:
		return BLAKE3, fmt.Errorf("unknown hash algorithm %q: %w", s, model.ErrInvalidConfiguration)
	}
}

// Canonical encodes doc as compact JSON with object keys sorted at every
// depth and without HTML escaping. Numbers decoded as json.Number keep
// their original text.
func Canonical(doc model.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Hasher computes document identities. It holds no state and is safe for
// concurrent use.
type Hasher struct {
	alg Algorithm
}

// New returns a Hasher using alg.
func New(alg Algorithm) *Hasher {
	return &Hasher{alg: alg}
}

// Of returns the lowercase hex digest of doc's canonical encoding.
func (h *Hasher) Of(doc model.Document) (string, error) {
	body, err := Canonical(doc)
	if err != nil {
		return "", err
	}
	return h.Sum(body), nil
}

// Sum returns the lowercase hex digest of an already canonical body.
func (h *Hasher) Sum(body []byte) string {
	var sum [32]byte
	switch h.alg {
	case SHA256:
		sum = sha256.Sum256(body)
	default:
		sum = blake3.Sum256(body)
	}
	return hex.EncodeToString(sum[:])
}

var defaultHasher = New(BLAKE3)

// Of returns the BLAKE3 identity of doc.
func Of(doc model.Document) (string, error) {
	return defaultHasher.Of(doc)
}
