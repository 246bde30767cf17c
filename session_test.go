package account_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-account"
)

const testSigningKey = "test-signing-key-0123456789"

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSigningKey))
	require.NoError(t, err)
	return signed
}

func TestSessionObject(t *testing.T) {
	userID := uuid.New().String()
	now := time.Now()
	sessionData := map[string]any{
		"role": "admin",
	}

	session := &account.SessionObject{
		UserID:   userID,
		Issuer:   "test-issuer",
		IssuedAt: &now,
		Data:     sessionData,
	}

	assert.Equal(t, userID, session.GetUserID())

	userUUID, err := session.GetUserUUID()
	assert.NoError(t, err)
	assert.Equal(t, userID, userUUID.String())

	assert.Equal(t, &now, session.GetIssuedAt())
	assert.Equal(t, sessionData, session.GetData())
}

func TestSessionFromToken(t *testing.T) {
	userID := uuid.New().String()
	now := time.Now()

	tokenStr := signedToken(t, jwt.MapClaims{
		"sub":  userID,
		"iss":  "test-issuer",
		"iat":  now.Unix(),
		"exp":  now.Add(time.Hour).Unix(),
		"role": "member",
	})

	session, err := account.SessionFromToken(tokenStr, testSigningKey)
	require.NoError(t, err)

	assert.Equal(t, userID, session.GetUserID())
	assert.Equal(t, "test-issuer", session.Issuer)
	assert.Equal(t, "member", session.GetData()["role"])
	require.NotNil(t, session.IssuedAt)
	assert.Equal(t, now.Unix(), session.IssuedAt.Unix())
}

func TestSessionFromTokenRejectsBadSignature(t *testing.T) {
	tokenStr := signedToken(t, jwt.MapClaims{"sub": uuid.New().String()})

	_, err := account.SessionFromToken(tokenStr, "some-other-key")
	assert.Error(t, err)
}

func TestSessionFromTokenRequiresSubject(t *testing.T) {
	tokenStr := signedToken(t, jwt.MapClaims{"iss": "test-issuer"})

	_, err := account.SessionFromToken(tokenStr, testSigningKey)
	assert.Error(t, err)
}

func TestMintSessionTokenRoundTrip(t *testing.T) {
	user := &account.User{
		Username: "pellegrino",
		Role:     account.RoleAdmin,
	}
	user.ID = uuid.New()

	issuedAt := time.Now().Truncate(time.Second)

	token, expiresAt, err := account.MintSessionToken(user, testSigningKey, account.SessionTokenOptions{
		Issuer:   "account-test",
		IssuedAt: issuedAt,
		TTL:      2 * time.Hour,
	})
	require.NoError(t, err)
	assert.Equal(t, issuedAt.Add(2*time.Hour), expiresAt)

	session, err := account.SessionFromToken(token, testSigningKey)
	require.NoError(t, err)

	assert.Equal(t, user.ID.String(), session.GetUserID())
	assert.Equal(t, "account-test", session.Issuer)
	assert.Equal(t, string(account.RoleAdmin), session.GetData()["role"])
}

func TestMintSessionTokenRequiresUserAndKey(t *testing.T) {
	_, _, err := account.MintSessionToken(nil, testSigningKey, account.SessionTokenOptions{})
	assert.Error(t, err)

	user := &account.User{Username: "pellegrino"}
	user.ID = uuid.New()

	_, _, err = account.MintSessionToken(user, "", account.SessionTokenOptions{})
	assert.Error(t, err)

	_, _, err = account.MintSessionToken(user, testSigningKey, account.SessionTokenOptions{TTL: -time.Hour})
	assert.Error(t, err)
}
