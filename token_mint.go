package account

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// SessionTokenOptions controls how MintSessionToken issues session tokens.
type SessionTokenOptions struct {
	// TTL overrides the default token expiration.
	TTL time.Duration
	// Issuer overrides the default issuer if provided.
	Issuer string
	// IssuedAt overrides the issuance time. Zero uses time.Now().
	IssuedAt time.Time
}

// DefaultSessionTokenTTL is applied when SessionTokenOptions.TTL is zero.
const DefaultSessionTokenTTL = 24 * time.Hour

// MintSessionToken issues the HS256 token that TokenSessionResolver and
// SessionFromToken accept. The user's role travels in a "role" claim so
// middleware can gate admin surfaces without a lookup.
func MintSessionToken(user *User, signingKey string, opts SessionTokenOptions) (string, time.Time, error) {
	if user == nil {
		return "", time.Time{}, goerrors.New("user is required", goerrors.CategoryBadInput)
	}
	if signingKey == "" {
		return "", time.Time{}, goerrors.New("signing key is required", goerrors.CategoryBadInput)
	}

	ttl := opts.TTL
	if ttl == 0 {
		ttl = DefaultSessionTokenTTL
	}
	if ttl < 0 {
		return "", time.Time{}, goerrors.New("token TTL must be non-negative", goerrors.CategoryBadInput)
	}

	issuedAt := opts.IssuedAt
	if issuedAt.IsZero() {
		issuedAt = time.Now()
	}

	expiresAt := issuedAt.Add(ttl)

	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"iat":  jwt.NewNumericDate(issuedAt),
		"exp":  jwt.NewNumericDate(expiresAt),
		"role": string(user.Role),
	}

	if opts.Issuer != "" {
		claims["iss"] = opts.Issuer
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		return "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to sign session token")
	}

	return token, expiresAt, nil
}
