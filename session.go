package account

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

var _ Session = &SessionObject{}

type SessionObject struct {
	UserID         string         `json:"user_id,omitempty"`
	Issuer         string         `json:"issuer,omitempty"`
	IssuedAt       *time.Time     `json:"issued_at,omitempty"`
	ExpirationDate *time.Time     `json:"expiration_date,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetIssuedAt() *time.Time {
	return s.IssuedAt
}

func (s *SessionObject) GetData() map[string]any {
	return s.Data
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf("user=%s iss=%s iat=%s data=%v", s.UserID, s.Issuer, issuedAt, s.Data)
}

// SessionFromToken decodes a signed session token into a SessionObject.
func SessionFromToken(token, signingKey string) (*SessionObject, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(signingKey), nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "unable to decode session").
			WithTextCode(TextCodeUnauthorized).
			WithCode(errors.CodeUnauthorized)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if claims == nil || !ok {
		return nil, ErrUnauthorized
	}

	return sessionFromClaims(claims)
}

func sessionFromClaims(claims jwt.MapClaims) (*SessionObject, error) {
	session := &SessionObject{
		Data: map[string]any{},
	}

	if sub, err := claims.GetSubject(); err == nil {
		session.UserID = sub
	}

	if session.UserID == "" {
		return nil, ErrUnauthorized
	}

	if iss, err := claims.GetIssuer(); err == nil {
		session.Issuer = iss
	}

	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		session.IssuedAt = &iat.Time
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		session.ExpirationDate = &exp.Time
	}

	if role, ok := claims["role"].(string); ok {
		session.Data["role"] = role
	}

	return session, nil
}

// TokenSessionResolver resolves sessions from a signed cookie or the
// Authorization header, in that order.
type TokenSessionResolver struct {
	SigningKey string
	CookieName string
}

var _ SessionResolver = &TokenSessionResolver{}

// NewTokenSessionResolver creates a resolver with the default cookie name.
func NewTokenSessionResolver(signingKey string) *TokenSessionResolver {
	return &TokenSessionResolver{
		SigningKey: signingKey,
		CookieName: "session",
	}
}

func (r *TokenSessionResolver) Resolve(c router.Context) (Session, error) {
	token := c.Cookies(r.CookieName, "")

	if token == "" {
		header := c.Header("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}

	if token == "" {
		return nil, ErrUnauthorized
	}

	return SessionFromToken(token, r.SigningKey)
}

// GetRouterSession extracts a SessionObject previously stored in the
// router context by an upstream auth middleware.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrUnauthorized
	}

	switch v := raw.(type) {
	case *SessionObject:
		return v, nil
	case *jwt.Token:
		claims, ok := v.Claims.(jwt.MapClaims)
		if claims == nil || !ok {
			return nil, ErrUnauthorized
		}
		return sessionFromClaims(claims)
	default:
		return nil, ErrUnauthorized
	}
}
