package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ModifyRoleMessage reassigns the role of a single user. The role string
// is validated against the closed enumeration before touching the store.
type ModifyRoleMessage struct {
	Session Session   `json:"-"`
	UserID  uuid.UUID `json:"user_id" doc:"Target user."`
	NewRole string    `json:"new_role" doc:"Target role."`
}

func (m ModifyRoleMessage) Type() string { return "admin.role_modify" }

type ModifyRoleHandler struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

// NewModifyRoleHandler creates a handler with sane defaults.
func NewModifyRoleHandler(repo RepositoryManager) *ModifyRoleHandler {
	return &ModifyRoleHandler{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithActivitySink sets the sink used to emit audit events.
func (h *ModifyRoleHandler) WithActivitySink(sink ActivitySink) *ModifyRoleHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ModifyRoleHandler) WithLogger(logger Logger) *ModifyRoleHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *ModifyRoleHandler) Execute(ctx context.Context, event ModifyRoleMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during role modification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ModifyRoleHandler) execute(ctx context.Context, event ModifyRoleMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if _, err := requireSession(event.Session); err != nil {
		return err
	}

	role, ok := ParseRole(event.NewRole)
	if !ok {
		return ErrInvalidRole
	}

	user, err := h.repo.Users().UpdateRole(ctx, event.UserID, role)
	if err != nil {
		return asRichError(err, "failed to update role")
	}

	h.recordActivity(ctx, event.Session, user, role)

	return nil
}

func (h *ModifyRoleHandler) recordActivity(ctx context.Context, session Session, user *User, role UserRole) {
	event := ActivityEvent{
		EventType: ActivityEventRoleChanged,
		Actor:     actorFromSession(session),
		UserID:    user.ID.String(),
		Metadata: map[string]any{
			"new_role": role,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during role modification: %v", err)
	}
}
