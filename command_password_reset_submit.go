package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// ResetPasswordMessage changes the password of an account identified by
// email, authorized by the current password instead of a session.
type ResetPasswordMessage struct {
	Email           string `json:"email" doc:"Account email address."`
	CurrentPassword string `json:"current_password" doc:"Password on record."`
	NewPassword     string `json:"new_password" doc:"Replacement password."`
}

func (m ResetPasswordMessage) Type() string { return "account.password_reset_submit" }

type ResetPasswordHandler struct {
	repo   RepositoryManager
	logger Logger
}

// NewResetPasswordHandler creates a handler with sane defaults.
func NewResetPasswordHandler(repo RepositoryManager) *ResetPasswordHandler {
	return &ResetPasswordHandler{
		repo:   repo,
		logger: defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *ResetPasswordHandler) WithLogger(logger Logger) *ResetPasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ResetPasswordHandler) Execute(ctx context.Context, event ResetPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ResetPasswordHandler) execute(ctx context.Context, event ResetPasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	user, err := h.repo.Users().GetByIdentifier(ctx, event.Email)
	if err != nil {
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			return ErrAccountNotFound
		}
		return asRichError(err, "failed to retrieve user for password reset")
	}

	if user.PasswordHash == "" {
		return ErrNoPasswordSet
	}

	if err := ComparePasswordAndHash(event.CurrentPassword, user.PasswordHash); err != nil {
		return asRichError(err, "password reset verification failed")
	}

	passwordHash, err := HashPassword(event.NewPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	if err := h.repo.Users().UpdatePassword(ctx, user.ID, passwordHash); err != nil {
		h.logger.Error("password reset update failed: user=%s error=%v", user.ID, err)
		return asRichError(err, "failed to update password")
	}

	return nil
}
