package safe

import (
	"crypto/rand"
	"math/big"

	"kickpass/buffer"
	kperrors "kickpass/errors"
)

// DefaultGeneratedLength is the password length "create -g"/"edit -g"
// use when no explicit "-l" length is given (original_source/'s
// command/create.c default).
const DefaultGeneratedLength = 32

// generatorAlphabet is ASCII letters and digits minus the visually
// ambiguous 0/O and 1/l/I, plus the symbols !@#$%^&*()-_=+. Other
// printable symbols (quotes, backslash, brackets, punctuation, space)
// are not used.
const generatorAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789!@#$%^&*()-_=+"

// GeneratePassword returns a random password of the given length drawn
// from generatorAlphabet using a cryptographically secure source. A
// length <= 0 uses DefaultGeneratedLength.
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		length = DefaultGeneratedLength
	}
	if length > buffer.PasswordMax {
		return "", kperrors.New(kperrors.EInput, "generate password", "length exceeds PASSWORD_MAX")
	}

	alphabetLen := big.NewInt(int64(len(generatorAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", kperrors.FromErrno(err, "read random password byte")
		}
		out[i] = generatorAlphabet[n.Int64()]
	}
	return string(out), nil
}
