package account

import (
	"fmt"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeUnauthorized     = "account_unauthorized"
	TextCodeNotFound         = "account_not_found"
	TextCodeEmailTaken       = "account_email_taken"
	TextCodeUsernameTaken    = "account_username_taken"
	TextCodeInvalidCode      = "account_invalid_or_expired_code"
	TextCodeCodeRequired     = "account_code_required"
	TextCodeNoPassword       = "account_no_password_set"
	TextCodeInvalidPassword  = "account_invalid_password"
	TextCodeProviderMismatch = "account_provider_mismatch"
	TextCodeInvalidRole      = "account_invalid_role"
	TextCodeEmptyPassword    = "account_empty_password"
)

// ErrUnauthorized is returned when an operation is attempted without a
// valid session. It always halts before any storage access.
var ErrUnauthorized = errors.New("unauthorized", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrAccountNotFound is returned when no matching account exists.
var ErrAccountNotFound = errors.New("account not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrEmailTaken is returned when the target email already belongs to
// another account.
var ErrEmailTaken = errors.New("email already in use", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrUsernameTaken is returned when the target username already belongs
// to another account.
var ErrUsernameTaken = errors.New("username already in use", errors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(errors.CodeConflict)

// ErrInvalidOrExpiredCode covers both a mismatched and an expired
// verification code; the two cases are deliberately indistinguishable.
var ErrInvalidOrExpiredCode = errors.New("invalid or expired verification code", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidCode).
	WithCode(errors.CodeBadRequest)

// ErrCodeRequired is returned when a credential-based account attempts a
// gated mutation without supplying a verification code.
var ErrCodeRequired = errors.New("verification code required", errors.CategoryValidation).
	WithTextCode(TextCodeCodeRequired).
	WithCode(errors.CodeBadRequest)

// ErrNoPasswordSet is returned when a password operation targets an
// account that has no stored password hash.
var ErrNoPasswordSet = errors.New("no password set for this account", errors.CategoryValidation).
	WithTextCode(TextCodeNoPassword).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the error we return when a submitted
// password does not match the stored hash.
var ErrMismatchedHashAndPassword = errors.New("invalid password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidPassword).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString is the error for empty required strings
var ErrNoEmptyString = errors.New("value should not be an empty string", errors.CategoryBadInput).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrInvalidRole is returned when a role string is not part of the
// closed role enumeration.
var ErrInvalidRole = errors.New("unknown or invalid role", errors.CategoryValidation).
	WithTextCode(TextCodeInvalidRole).
	WithCode(errors.CodeBadRequest)

// NewProviderMismatchError builds the error returned when a password
// operation targets an account linked to an external provider. The
// message names the provider so the UI can explain the rejection.
func NewProviderMismatchError(provider string) *errors.Error {
	return errors.New(
		fmt.Sprintf("this operation is not available, your account is linked to %s", provider),
		errors.CategoryValidation,
	).
		WithTextCode(TextCodeProviderMismatch).
		WithCode(errors.CodeBadRequest).
		WithMetadata(map[string]any{"provider": provider})
}
