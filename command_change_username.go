package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ChangeUsernameMessage renames the account. Credential-based accounts
// must present a verification code; provider-linked accounts may rename
// freely since there is no local secret to protect.
type ChangeUsernameMessage struct {
	Session  Session `json:"-"`
	Username string  `json:"username" doc:"Target username."`
	Code     string  `json:"code,omitempty" doc:"Verification code, required for credential accounts."`
}

func (m ChangeUsernameMessage) Type() string { return "account.username_change" }

type ChangeUsernameHandler struct {
	repo     RepositoryManager
	notifier Notifier
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewChangeUsernameHandler creates a handler with sane defaults.
func NewChangeUsernameHandler(repo RepositoryManager) *ChangeUsernameHandler {
	return &ChangeUsernameHandler{
		repo:     repo,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithNotifier sets the sender used to confirm the change.
func (h *ChangeUsernameHandler) WithNotifier(n Notifier) *ChangeUsernameHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit audit events.
func (h *ChangeUsernameHandler) WithActivitySink(sink ActivitySink) *ChangeUsernameHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ChangeUsernameHandler) WithLogger(logger Logger) *ChangeUsernameHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock overrides the time source used for code validation.
func (h *ChangeUsernameHandler) WithClock(now func() time.Time) *ChangeUsernameHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *ChangeUsernameHandler) Execute(ctx context.Context, event ChangeUsernameMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during username change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangeUsernameHandler) execute(ctx context.Context, event ChangeUsernameMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	userID, err := requireSession(event.Session)
	if err != nil {
		return err
	}

	user, err := h.repo.Users().GetWithRelations(ctx, userID)
	if err != nil {
		return asRichError(err, "failed to retrieve user for username change")
	}

	taken, err := h.repo.Users().UsernameTaken(ctx, event.Username)
	if err != nil {
		return asRichError(err, "failed to check username availability")
	}
	if taken {
		return ErrUsernameTaken
	}

	hasProvider := user.HasLinkedProvider()

	if !hasProvider {
		if event.Code == "" {
			return ErrCodeRequired
		}

		if _, err := h.repo.Users().FindWithValidCode(ctx, userID, event.Code, h.now()); err != nil {
			return asRichError(err, "failed to validate verification code")
		}
	}

	oldUsername := user.Username

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.Users().UpdateUsernameTx(ctx, tx, userID, event.Username, !hasProvider); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update username")
		}

		// only credential accounts carry a code worth consuming, and
		// only their rename counts as a credential change
		if !hasProvider {
			if err := h.repo.Sessions().DeleteForUserTx(ctx, tx, userID); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to invalidate sessions")
			}
		}

		return nil
	})

	if err != nil {
		h.logger.Error("username change transaction failed: user=%s error=%v", userID, err)
		return asRichError(err, "failed to change username")
	}

	notify(ctx, h.notifier, h.logger, Notification{
		To:       user.Email,
		Kind:     NotificationUsernameChanged,
		Username: event.Username,
		Data: map[string]string{
			"old_username": oldUsername,
			"new_username": event.Username,
		},
	})

	h.recordActivity(ctx, event.Session, user, oldUsername, event.Username)

	return nil
}

func (h *ChangeUsernameHandler) recordActivity(ctx context.Context, session Session, user *User, oldUsername, newUsername string) {
	event := ActivityEvent{
		EventType: ActivityEventUsernameChanged,
		Actor:     actorFromSession(session),
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"old_username": oldUsername,
			"new_username": newUsername,
		},
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during username change: %v", err)
	}
}
