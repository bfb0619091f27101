// Package keysdomain issues and normalizes master-key fragments.
package keysdomain

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Alphabet excludes 0, O, 1 and I so fragments survive being read aloud.
// Its length divides 256, so reducing a random byte modulo len(Alphabet) is unbiased.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// DefaultFragmentLength is the length of a fragment when none is configured.
const DefaultFragmentLength = 4

var ErrInvalidLength = errors.New("fragment length must be positive")

// Issuer draws fragments from a cryptographic random source.
type Issuer struct {
	length int
	rand   io.Reader
}

// NewIssuer returns an Issuer producing fragments of the given length.
func NewIssuer(length int) (*Issuer, error) {
	if length <= 0 {
		return nil, ErrInvalidLength
	}
	return &Issuer{length: length, rand: rand.Reader}, nil
}

// Length is the number of characters per fragment.
func (i *Issuer) Length() int { return i.length }

// Issue returns a fresh fragment.
func (i *Issuer) Issue() (string, error) {
	buf := make([]byte, i.length)
	if _, err := io.ReadFull(i.rand, buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for n, b := range buf {
		buf[n] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(buf), nil
}

// Normalize trims and upper-cases a fragment for comparison.
func Normalize(fragment string) string {
	return strings.ToUpper(strings.TrimSpace(fragment))
}
