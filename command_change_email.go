package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ChangeEmailMessage swaps the account email. The mutation is gated by
// a verification code and invalidates every session for the user in the
// same transaction.
type ChangeEmailMessage struct {
	Session  Session `json:"-"`
	NewEmail string  `json:"new_email" doc:"Target email address."`
	Code     string  `json:"code" doc:"Six digit verification code."`
}

func (m ChangeEmailMessage) Type() string { return "account.email_change" }

type ChangeEmailHandler struct {
	repo     RepositoryManager
	notifier Notifier
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewChangeEmailHandler creates a handler with sane defaults.
func NewChangeEmailHandler(repo RepositoryManager) *ChangeEmailHandler {
	return &ChangeEmailHandler{
		repo:     repo,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithNotifier sets the sender used to notify both addresses.
func (h *ChangeEmailHandler) WithNotifier(n Notifier) *ChangeEmailHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit audit events.
func (h *ChangeEmailHandler) WithActivitySink(sink ActivitySink) *ChangeEmailHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ChangeEmailHandler) WithLogger(logger Logger) *ChangeEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock overrides the time source used for code validation.
func (h *ChangeEmailHandler) WithClock(now func() time.Time) *ChangeEmailHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *ChangeEmailHandler) Execute(ctx context.Context, event ChangeEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangeEmailHandler) execute(ctx context.Context, event ChangeEmailMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	userID, err := requireSession(event.Session)
	if err != nil {
		return err
	}

	taken, err := h.repo.Users().EmailTaken(ctx, event.NewEmail)
	if err != nil {
		return asRichError(err, "failed to check email availability")
	}
	if taken {
		return ErrEmailTaken
	}

	user, err := h.repo.Users().FindWithValidCode(ctx, userID, event.Code, h.now())
	if err != nil {
		return asRichError(err, "failed to validate verification code")
	}

	oldEmail := user.Email

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.Users().UpdateEmailTx(ctx, tx, userID, event.NewEmail); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update email")
		}

		// credential change forces re-authentication everywhere
		if err := h.repo.Sessions().DeleteForUserTx(ctx, tx, userID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invalidate sessions")
		}

		return nil
	})

	if err != nil {
		h.logger.Error("email change transaction failed: user=%s error=%v", userID, err)
		return asRichError(err, "failed to change email")
	}

	// the mutation is committed; notification failures are not rolled back
	for _, to := range []string{oldEmail, event.NewEmail} {
		notify(ctx, h.notifier, h.logger, Notification{
			To:       to,
			Kind:     NotificationEmailChanged,
			Username: user.Username,
			Data: map[string]string{
				"old_email": oldEmail,
				"new_email": event.NewEmail,
			},
		})
	}

	h.recordActivity(ctx, event.Session, user, oldEmail, event.NewEmail)

	return nil
}

func (h *ChangeEmailHandler) recordActivity(ctx context.Context, session Session, user *User, oldEmail, newEmail string) {
	event := ActivityEvent{
		EventType: ActivityEventEmailChanged,
		Actor:     actorFromSession(session),
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"old_email": oldEmail,
			"new_email": newEmail,
		},
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during email change: %v", err)
	}
}
