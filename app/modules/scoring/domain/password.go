package scoringdomain

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode/utf8"
)

// Password rule thresholds.
const (
	PasswordRuleCount = 7
	MinPasswordLength = 12
	MinEntropyBits    = 60
)

var commonPasswordWords = []string{
	"password", "contraseña", "qwerty", "admin", "1234", "123456",
	"letmein", "welcome", "abc123", "iloveyou", "vopak",
}

// PasswordReport lists which of the seven rules a password satisfies.
// The password itself is never kept.
type PasswordReport struct {
	Length       bool `json:"length"`
	Lower        bool `json:"lower"`
	Upper        bool `json:"upper"`
	Digit        bool `json:"digit"`
	Symbol       bool `json:"symbol"`
	Entropy      bool `json:"entropy"`
	NoCommonWord bool `json:"no_common_word"`
	EntropyBits  int  `json:"entropy_bits"`
	Satisfied    int  `json:"satisfied"`
}

// EvaluatePassword checks pw against the seven password rules.
func EvaluatePassword(pw string) PasswordReport {
	var r PasswordReport
	for _, c := range pw {
		switch {
		case c >= 'a' && c <= 'z':
			r.Lower = true
		case c >= 'A' && c <= 'Z':
			r.Upper = true
		case c >= '0' && c <= '9':
			r.Digit = true
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
		default:
			r.Symbol = true
		}
	}

	length := utf8.RuneCountInString(pw)
	r.Length = length >= MinPasswordLength
	r.EntropyBits = estimateEntropyBits(length, r)
	r.Entropy = r.EntropyBits >= MinEntropyBits

	lowered := strings.ToLower(pw)
	r.NoCommonWord = true
	for _, w := range commonPasswordWords {
		if strings.Contains(lowered, w) {
			r.NoCommonWord = false
			break
		}
	}

	for _, ok := range []bool{r.Length, r.Lower, r.Upper, r.Digit, r.Symbol, r.Entropy, r.NoCommonWord} {
		if ok {
			r.Satisfied++
		}
	}
	return r
}

// estimateEntropyBits is length * log2(pool), where the pool grows by character class.
func estimateEntropyBits(length int, r PasswordReport) int {
	if length == 0 {
		return 0
	}
	pool := 0
	if r.Lower {
		pool += 26
	}
	if r.Upper {
		pool += 26
	}
	if r.Digit {
		pool += 10
	}
	if r.Symbol {
		pool += 32
	}
	return int(math.Round(float64(length) * math.Log2(float64(max(pool, 1)))))
}

// PasswordFingerprint is a 32-bit FNV-1a digest used to reject repeated passwords
// without storing them.
func PasswordFingerprint(pw string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(pw))
	return fmt.Sprintf("%08x", h.Sum32())
}
