package tracking

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Alphabet is the character set tracking codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the fixed tracking code length handed to submitters.
const Length = 8

// maxUnbiased is the largest byte value usable without modulo bias:
// the greatest multiple of len(Alphabet) that fits in a byte.
const maxUnbiased = byte(256 - 256%len(Alphabet))

// Generate returns a new tracking code of Length characters drawn
// uniformly from Alphabet. Codes are not guaranteed unique; the
// submissions table enforces uniqueness and callers retry on conflict.
func Generate() (string, error) {
	code := make([]byte, 0, Length)
	buf := make([]byte, Length*2)
	for len(code) < Length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= maxUnbiased {
				continue
			}
			code = append(code, Alphabet[int(b)%len(Alphabet)])
			if len(code) == Length {
				break
			}
		}
	}
	return string(code), nil
}

// Normalize uppercases a user-supplied tracking code. Lookups are
// case-insensitive; storage is always uppercase.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether the code has the expected length and alphabet
// after normalization.
func Valid(code string) bool {
	code = Normalize(code)
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(Alphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
