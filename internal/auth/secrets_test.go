package auth

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	codePattern  = regexp.MustCompile(`^\d{6}$`)
	tokenPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

func TestVerificationCodeFormat(t *testing.T) {
	gen := NewSecretGenerator(nil)

	for i := 0; i < 200; i++ {
		code, err := gen.VerificationCode()
		require.NoError(t, err)
		require.Regexp(t, codePattern, code)

		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, verificationCodeMin)
		require.LessOrEqual(t, n, verificationCodeMax)
	}
}

func TestResetTokenFormat(t *testing.T) {
	gen := NewSecretGenerator(nil)

	first, err := gen.ResetToken()
	require.NoError(t, err)
	require.Regexp(t, tokenPattern, first)

	second, err := gen.ResetToken()
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestResetTokenUsesInjectedReader(t *testing.T) {
	gen := NewSecretGenerator(bytes.NewReader(bytes.Repeat([]byte{0xab}, resetTokenBytes)))

	token, err := gen.ResetToken()
	require.NoError(t, err)
	require.Equal(t, "abababababababababababababababababababab", token)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestSecretGeneratorPropagatesReaderErrors(t *testing.T) {
	gen := NewSecretGenerator(failingReader{})

	_, err := gen.VerificationCode()
	require.Error(t, err)

	_, err = gen.ResetToken()
	require.Error(t, err)
}
