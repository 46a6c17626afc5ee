package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"math/big"
	"strings"
)

const authTokenSize = 32

var ErrInvalidOTPDigits = errors.New("invalid otp digits")

// NewOTP returns a uniformly random numeric code of the given length.
func NewOTP(digits int) (string, error) {
	if digits < 4 || digits > 10 {
		return "", ErrInvalidOTPDigits
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

// NewAuthToken returns a random opaque token, base64url without padding.
func NewAuthToken() (string, error) {
	var raw [authTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashSecret returns the SHA-256 digest stored in place of a code or token.
func HashSecret(v string) [32]byte {
	return sha256.Sum256([]byte(v))
}
