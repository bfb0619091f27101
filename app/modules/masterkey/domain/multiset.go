// Package masterkeydomain compares a submitted master key against the issued fragments.
package masterkeydomain

import keysdomain "github.com/Black-And-White-Club/keyquest/app/modules/keys/domain"

// Multiset counts normalized fragments. Position carries no meaning; duplicates do.
type Multiset map[string]int

// NewMultiset normalizes each part and counts it.
func NewMultiset(parts []string) Multiset {
	m := make(Multiset, len(parts))
	for _, p := range parts {
		m[keysdomain.Normalize(p)]++
	}
	return m
}

// Size is the number of fragments, duplicates included.
func (m Multiset) Size() int {
	n := 0
	for _, c := range m {
		n += c
	}
	return n
}

// Equal reports whether both multisets hold the same fragments with the same counts.
func (m Multiset) Equal(other Multiset) bool {
	if len(m) != len(other) {
		return false
	}
	for k, c := range m {
		if other[k] != c {
			return false
		}
	}
	return true
}

// Matches reports whether submitted is a permutation of expected after
// trimming and upper-casing every entry.
func Matches(expected, submitted []string) bool {
	if len(expected) != len(submitted) {
		return false
	}
	return NewMultiset(expected).Equal(NewMultiset(submitted))
}
