package auth

import (
	"crypto/rand"
	"io"
	"strconv"

	"github.com/charlesng35/authflow/pkg/crypto"
)

const (
	verificationCodeMin = 100000
	verificationCodeMax = 999999
	resetTokenBytes     = 20
)

// SecretGenerator produces the one-time secrets handed to users by email.
type SecretGenerator struct {
	rand io.Reader
}

// NewSecretGenerator reads from r, or from crypto/rand when r is nil.
func NewSecretGenerator(r io.Reader) *SecretGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &SecretGenerator{rand: r}
}

// VerificationCode returns a six digit code drawn uniformly from [100000, 999999].
func (g *SecretGenerator) VerificationCode() (string, error) {
	n, err := crypto.RandomInt(g.rand, verificationCodeMin, verificationCodeMax)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

// ResetToken returns 20 random bytes as 40 lowercase hex characters.
func (g *SecretGenerator) ResetToken() (string, error) {
	return crypto.RandomHex(g.rand, resetTokenBytes)
}
