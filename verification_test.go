package account_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-account"
)

func TestGenerateVerificationCode(t *testing.T) {
	seen := map[string]bool{}

	for i := 0; i < 50; i++ {
		code, err := account.GenerateVerificationCode()
		require.NoError(t, err)
		require.Len(t, code, account.VerificationCodeLength)

		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code %q contains non digit", code)
		}

		seen[code] = true
	}

	assert.Greater(t, len(seen), 1, "expected distinct codes across draws")
}

func TestVerificationCodeExpiry(t *testing.T) {
	issuedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, issuedAt.Add(time.Hour), account.VerificationCodeExpiry(issuedAt))
}

func TestVerificationCodeValid(t *testing.T) {
	now := time.Now()
	code := "123456"
	expiresAt := now.Add(time.Hour)

	user := &account.User{
		ResetCode:          &code,
		ResetCodeExpiresAt: &expiresAt,
	}

	t.Run("matching code inside window", func(t *testing.T) {
		assert.True(t, user.VerificationCodeValid("123456", now))
	})

	t.Run("wrong code", func(t *testing.T) {
		assert.False(t, user.VerificationCodeValid("654321", now))
	})

	t.Run("empty code", func(t *testing.T) {
		assert.False(t, user.VerificationCodeValid("", now))
	})

	t.Run("one tick past expiry rejects like a mismatch", func(t *testing.T) {
		assert.False(t, user.VerificationCodeValid("123456", expiresAt))
		assert.False(t, user.VerificationCodeValid("123456", expiresAt.Add(time.Nanosecond)))
	})

	t.Run("no code stored", func(t *testing.T) {
		blank := &account.User{}
		assert.False(t, blank.VerificationCodeValid("123456", now))
	})
}
