package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ChangePasswordMessage replaces the stored password hash. Gated by a
// verification code; all sessions are invalidated transactionally.
type ChangePasswordMessage struct {
	Session  Session `json:"-"`
	Password string  `json:"password" doc:"New password."`
	Code     string  `json:"code" doc:"Six digit verification code."`
}

func (m ChangePasswordMessage) Type() string { return "account.password_change" }

type ChangePasswordHandler struct {
	repo     RepositoryManager
	notifier Notifier
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewChangePasswordHandler creates a handler with sane defaults.
func NewChangePasswordHandler(repo RepositoryManager) *ChangePasswordHandler {
	return &ChangePasswordHandler{
		repo:     repo,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithNotifier sets the sender used to confirm the change.
func (h *ChangePasswordHandler) WithNotifier(n Notifier) *ChangePasswordHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit audit events.
func (h *ChangePasswordHandler) WithActivitySink(sink ActivitySink) *ChangePasswordHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ChangePasswordHandler) WithLogger(logger Logger) *ChangePasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock overrides the time source used for code validation.
func (h *ChangePasswordHandler) WithClock(now func() time.Time) *ChangePasswordHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	userID, err := requireSession(event.Session)
	if err != nil {
		return err
	}

	user, err := h.repo.Users().FindWithValidCode(ctx, userID, event.Code, h.now())
	if err != nil {
		return asRichError(err, "failed to validate verification code")
	}

	passwordHash, err := HashPassword(event.Password)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.Users().UpdatePasswordTx(ctx, tx, userID, passwordHash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
		}

		if err := h.repo.Sessions().DeleteForUserTx(ctx, tx, userID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invalidate sessions")
		}

		return nil
	})

	if err != nil {
		h.logger.Error("password change transaction failed: user=%s error=%v", userID, err)
		return asRichError(err, "failed to change password")
	}

	notify(ctx, h.notifier, h.logger, Notification{
		To:       user.Email,
		Kind:     NotificationPasswordChanged,
		Username: user.Username,
	})

	h.recordActivity(ctx, event.Session, user)

	return nil
}

func (h *ChangePasswordHandler) recordActivity(ctx context.Context, session Session, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventPasswordChanged,
		Actor:      actorFromSession(session),
		UserID:     user.ID.String(),
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password change: %v", err)
	}
}
