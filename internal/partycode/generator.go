package partycode

import (
	"crypto/rand"
	"strings"
)

const (
	// Alphabet deliberately omits 0/O and 1/I so codes survive being read
	// aloud or typed from a screenshot
	Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// Length is the fixed party code length
	Length = 6
)

// Generator produces candidate party codes. Uniqueness against live parties
// is the registry's job; implementations only supply randomness.
type Generator interface {
	Generate() (string, error)
}

// CryptoGenerator draws codes from crypto/rand
type CryptoGenerator struct{}

// NewCryptoGenerator creates a new CryptoGenerator
func NewCryptoGenerator() *CryptoGenerator {
	return &CryptoGenerator{}
}

// Generate returns a random code of Length characters from Alphabet
func (g *CryptoGenerator) Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, Length)
	for i, b := range buf {
		code[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(code), nil
}

// Normalize uppercases a caller-supplied code and reports whether it is a
// well-formed party code. Lowercase input is accepted.
func Normalize(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != Length {
		return "", false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(Alphabet, rune(code[i])) {
			return "", false
		}
	}
	return code, true
}
