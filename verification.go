package account

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/goliatone/go-errors"
)

// VerificationCodeTTL is the validity window of an issued code.
var VerificationCodeTTL = time.Hour

// VerificationCodeLength is the number of decimal digits in a code.
const VerificationCodeLength = 6

// GenerateVerificationCode returns a uniformly random 6 digit numeric
// code. Codes are short lived secrets scoped to a single user, there is
// no uniqueness constraint across users.
func GenerateVerificationCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < VerificationCodeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate verification code")
	}

	return fmt.Sprintf("%0*d", VerificationCodeLength, n), nil
}

// VerificationCodeExpiry computes the expiry for a code issued at the
// given instant.
func VerificationCodeExpiry(issuedAt time.Time) time.Time {
	return issuedAt.Add(VerificationCodeTTL)
}
