package account

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DeleteUsersMessage removes a set of users and all their dependent
// rows in one transaction. An empty id set is a no-op.
type DeleteUsersMessage struct {
	Session Session     `json:"-"`
	UserIDs []uuid.UUID `json:"user_ids" doc:"Users to remove."`
}

func (m DeleteUsersMessage) Type() string { return "admin.users_delete" }

type DeleteUsersHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

// NewDeleteUsersHandler creates a handler with sane defaults.
func NewDeleteUsersHandler(repo RepositoryManager) *DeleteUsersHandler {
	return &DeleteUsersHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit audit events.
func (h *DeleteUsersHandler) WithActivitySink(sink ActivitySink) *DeleteUsersHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *DeleteUsersHandler) WithLogger(logger Logger) *DeleteUsersHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *DeleteUsersHandler) Execute(ctx context.Context, event DeleteUsersMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during bulk user deletion",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *DeleteUsersHandler) execute(ctx context.Context, event DeleteUsersMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if _, err := requireSession(event.Session); err != nil {
		return err
	}

	if len(event.UserIDs) == 0 {
		return nil
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, id := range event.UserIDs {
			if err := h.repo.Sessions().DeleteForUserTx(ctx, tx, id); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete sessions")
			}

			if err := h.repo.LinkedAccounts().DeleteForUserTx(ctx, tx, id); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete linked accounts")
			}

			if err := h.repo.Authenticators().DeleteForUserTx(ctx, tx, id); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete authenticators")
			}

			if err := h.repo.Subscriptions().DeleteForUserTx(ctx, tx, id); err != nil {
				h.logger.Error("failed to delete subscription during bulk deletion: user=%s error=%v", id, err)
			}

			if err := h.repo.Users().DeleteTx(ctx, tx, id); err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
			}
		}
		return nil
	})

	if err != nil {
		h.logger.Error("bulk user deletion transaction failed: error=%v", err)
		return goerrors.New("an error occurred while deleting users", goerrors.CategoryInternal)
	}

	h.recordActivity(ctx, event.Session, event.UserIDs)

	return nil
}

func (h *DeleteUsersHandler) recordActivity(ctx context.Context, session Session, ids []uuid.UUID) {
	rendered := make([]string, 0, len(ids))
	for _, id := range ids {
		rendered = append(rendered, id.String())
	}

	event := ActivityEvent{
		EventType: ActivityEventUsersDeleted,
		Actor:     actorFromSession(session),
		Metadata: map[string]any{
			"user_ids": strings.Join(rendered, ","),
			"count":    len(ids),
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during bulk deletion: %v", err)
	}
}
