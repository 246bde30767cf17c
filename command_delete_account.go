package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// DeleteAccountMessage removes the user and every dependent row in one
// transaction. No verification code is required, a valid session is the
// only gate.
type DeleteAccountMessage struct {
	Session    Session `json:"-"`
	OnResponse func(resp *DeleteAccountResponse)
}

func (m DeleteAccountMessage) Type() string { return "account.delete" }

type DeleteAccountResponse struct {
	Redirect string
}

type DeleteAccountHandler struct {
	repo     RepositoryManager
	notifier Notifier
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewDeleteAccountHandler creates a handler with sane defaults.
func NewDeleteAccountHandler(repo RepositoryManager) *DeleteAccountHandler {
	return &DeleteAccountHandler{
		repo:     repo,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithNotifier sets the sender used for the goodbye message.
func (h *DeleteAccountHandler) WithNotifier(n Notifier) *DeleteAccountHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit audit events.
func (h *DeleteAccountHandler) WithActivitySink(sink ActivitySink) *DeleteAccountHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *DeleteAccountHandler) WithLogger(logger Logger) *DeleteAccountHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *DeleteAccountHandler) Execute(ctx context.Context, event DeleteAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account deletion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteAccountHandler) execute(ctx context.Context, event DeleteAccountMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	userID, err := requireSession(event.Session)
	if err != nil {
		return err
	}

	user, err := h.repo.Users().GetWithRelations(ctx, userID)
	if err != nil {
		return asRichError(err, "failed to retrieve user for account deletion")
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := h.repo.Sessions().DeleteForUserTx(ctx, tx, userID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete sessions")
		}

		if err := h.repo.LinkedAccounts().DeleteForUserTx(ctx, tx, userID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete linked accounts")
		}

		if err := h.repo.Authenticators().DeleteForUserTx(ctx, tx, userID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete authenticators")
		}

		// billing cleanup is best effort, the account removal proceeds
		// even when the subscription row cannot be deleted
		if err := h.repo.Subscriptions().DeleteForUserTx(ctx, tx, userID); err != nil {
			h.logger.Error("failed to delete subscription during account deletion: user=%s error=%v", userID, err)
		}

		if err := h.repo.Users().DeleteTx(ctx, tx, userID); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
		}

		return nil
	})

	if err != nil {
		h.logger.Error("account deletion transaction failed: user=%s error=%v", userID, err)
		return goerrors.New("an error occurred while deleting the account", goerrors.CategoryInternal)
	}

	notify(ctx, h.notifier, h.logger, Notification{
		To:       user.Email,
		Kind:     NotificationAccountDeleted,
		Username: user.Username,
	})

	h.recordActivity(ctx, event.Session, user)

	if event.OnResponse != nil {
		event.OnResponse(&DeleteAccountResponse{Redirect: "/"})
	}

	return nil
}

func (h *DeleteAccountHandler) recordActivity(ctx context.Context, session Session, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventAccountDeleted,
		Actor:      actorFromSession(session),
		UserID:     user.ID.String(),
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during account deletion: %v", err)
	}
}
