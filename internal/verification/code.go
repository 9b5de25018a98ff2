package verification

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	// codeAlphabet is the 36-symbol alphabet verification codes are drawn
	// from. Six independent draws give roughly 31 bits of entropy, enough to
	// resist guessing within the TTL window.
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// CodeLength is the exact length of a verification code.
	CodeLength = 6
)

// GenerateCode returns a random uppercase-alphanumeric verification code.
func GenerateCode() (string, error) {
	var sb strings.Builder
	sb.Grow(CodeLength)

	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}

		sb.WriteByte(codeAlphabet[n.Int64()])
	}

	return sb.String(), nil
}
