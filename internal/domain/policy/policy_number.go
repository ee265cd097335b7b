package policy

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// PolicyNumberPrefix starts every policy number
	PolicyNumberPrefix = "TC-"

	// PolicyNumberAlphabet omits 0, O, 1 and I so numbers read back cleanly over the phone
	PolicyNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// PolicyNumberLength is the length of the random suffix
	PolicyNumberLength = 8

	// MaxPolicyNumberAttempts bounds the insert retries on a number collision
	MaxPolicyNumberAttempts = 5
)

var alphabetSize = big.NewInt(int64(len(PolicyNumberAlphabet)))

// GeneratePolicyNumber returns a random human-readable policy number such as
// TC-7KQ2MXHD. There is no checksum; uniqueness is enforced by the database.
func GeneratePolicyNumber() (string, error) {
	var b strings.Builder
	b.Grow(len(PolicyNumberPrefix) + PolicyNumberLength)
	b.WriteString(PolicyNumberPrefix)
	for i := 0; i < PolicyNumberLength; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("generate policy number: %w", err)
		}
		b.WriteByte(PolicyNumberAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// IsWellFormedPolicyNumber reports whether s has the generated shape
func IsWellFormedPolicyNumber(s string) bool {
	if !strings.HasPrefix(s, PolicyNumberPrefix) {
		return false
	}
	suffix := s[len(PolicyNumberPrefix):]
	if len(suffix) != PolicyNumberLength {
		return false
	}
	for i := 0; i < len(suffix); i++ {
		if strings.IndexByte(PolicyNumberAlphabet, suffix[i]) < 0 {
			return false
		}
	}
	return true
}
