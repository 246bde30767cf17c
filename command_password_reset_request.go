package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// RequestPasswordResetMessage starts the public forgotten-password flow.
// No session is required. The response never reveals whether the email
// maps to an account.
type RequestPasswordResetMessage struct {
	Email      string `json:"email" doc:"Account email address."`
	OnResponse func(resp *RequestPasswordResetResponse)
}

func (m RequestPasswordResetMessage) Type() string { return "account.password_reset_request" }

type RequestPasswordResetResponse struct {
	// Delivered is true when a code was actually issued. Handlers must
	// not expose this to the caller; it exists for tests and telemetry.
	Delivered bool
}

type RequestPasswordResetHandler struct {
	repo     RepositoryManager
	notifier Notifier
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewRequestPasswordResetHandler creates a handler with sane defaults.
func NewRequestPasswordResetHandler(repo RepositoryManager) *RequestPasswordResetHandler {
	return &RequestPasswordResetHandler{
		repo:     repo,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithNotifier sets the sender used to deliver the reset code.
func (h *RequestPasswordResetHandler) WithNotifier(n Notifier) *RequestPasswordResetHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit audit events.
func (h *RequestPasswordResetHandler) WithActivitySink(sink ActivitySink) *RequestPasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RequestPasswordResetHandler) WithLogger(logger Logger) *RequestPasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock overrides the time source, tests use this to pin expiries.
func (h *RequestPasswordResetHandler) WithClock(now func() time.Time) *RequestPasswordResetHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *RequestPasswordResetHandler) Execute(ctx context.Context, event RequestPasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestPasswordResetHandler) execute(ctx context.Context, event RequestPasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	resp := &RequestPasswordResetResponse{}

	user, err := h.repo.Users().GetByIdentifier(ctx, event.Email)
	if err != nil {
		// unknown emails report success to avoid account enumeration
		if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
			if event.OnResponse != nil {
				event.OnResponse(resp)
			}
			return nil
		}
		return asRichError(err, "failed to retrieve user for password reset")
	}

	code, err := GenerateVerificationCode()
	if err != nil {
		return asRichError(err, "failed to generate reset code")
	}

	expiresAt := VerificationCodeExpiry(h.now())

	if err := h.repo.Users().SetVerificationCode(ctx, user.ID, code, expiresAt); err != nil {
		return asRichError(err, "failed to persist reset code")
	}

	notify(ctx, h.notifier, h.logger, Notification{
		To:       user.Email,
		Kind:     NotificationResetCode,
		Username: user.Username,
		Data:     map[string]string{"code": code},
	})

	h.recordActivity(ctx, user)

	resp.Delivered = true
	if event.OnResponse != nil {
		event.OnResponse(resp)
	}

	return nil
}

func (h *RequestPasswordResetHandler) recordActivity(ctx context.Context, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventResetRequested,
		Actor:      ActorRef{ID: user.ID.String(), Type: "user"},
		UserID:     user.ID.String(),
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password reset request: %v", err)
	}
}
