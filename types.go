package account

import (
	"fmt"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetIssuedAt() *time.Time
	GetData() map[string]any
}

// SessionResolver resolves the session attached to an incoming request.
// Workflow handlers never reach for ambient auth state; the resolved
// session is passed into every command explicitly.
type SessionResolver interface {
	Resolve(c router.Context) (Session, error)
}

// SessionResolverFunc adapts a function to the SessionResolver interface.
type SessionResolverFunc func(c router.Context) (Session, error)

func (f SessionResolverFunc) Resolve(c router.Context) (Session, error) {
	if f == nil {
		return nil, ErrUnauthorized
	}
	return f(c)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNT "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCOUNT "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNT "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNT "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
