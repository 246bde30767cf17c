package account

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// VerifyPasswordMessage proves continued control of a credential-based
// account. On success a fresh verification code is issued and sent out
// of band; the code is the precondition for the high-risk mutations.
type VerifyPasswordMessage struct {
	Session    Session `json:"-"`
	Password   string  `json:"password" doc:"Current account password."`
	OnResponse func(resp *VerifyPasswordResponse)
}

func (m VerifyPasswordMessage) Type() string { return "account.password_verify" }

type VerifyPasswordResponse struct {
	CodeIssued bool
	ExpiresAt  time.Time
}

type VerifyPasswordHandler struct {
	repo     RepositoryManager
	notifier Notifier
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewVerifyPasswordHandler creates a handler with sane defaults.
func NewVerifyPasswordHandler(repo RepositoryManager) *VerifyPasswordHandler {
	return &VerifyPasswordHandler{
		repo:     repo,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithNotifier sets the sender used to deliver the verification code.
func (h *VerifyPasswordHandler) WithNotifier(n Notifier) *VerifyPasswordHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit audit events.
func (h *VerifyPasswordHandler) WithActivitySink(sink ActivitySink) *VerifyPasswordHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *VerifyPasswordHandler) WithLogger(logger Logger) *VerifyPasswordHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock overrides the time source, tests use this to pin expiries.
func (h *VerifyPasswordHandler) WithClock(now func() time.Time) *VerifyPasswordHandler {
	if now != nil {
		h.now = now
	}
	return h
}

func (h *VerifyPasswordHandler) Execute(ctx context.Context, event VerifyPasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyPasswordHandler) execute(ctx context.Context, event VerifyPasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	userID, err := requireSession(event.Session)
	if err != nil {
		return err
	}

	user, err := h.repo.Users().GetWithRelations(ctx, userID)
	if err != nil {
		return asRichError(err, "failed to retrieve user for password verification")
	}

	// provider-linked accounts have no local password to verify
	if user.HasLinkedProvider() {
		return NewProviderMismatchError(user.Provider())
	}

	if user.PasswordHash == "" {
		return ErrNoPasswordSet
	}

	if err := ComparePasswordAndHash(event.Password, user.PasswordHash); err != nil {
		return asRichError(err, "password verification failed")
	}

	code, err := GenerateVerificationCode()
	if err != nil {
		return asRichError(err, "failed to generate verification code")
	}

	expiresAt := VerificationCodeExpiry(h.now())

	// overwrites any prior unconsumed code
	if err := h.repo.Users().SetVerificationCode(ctx, userID, code, expiresAt); err != nil {
		return asRichError(err, "failed to persist verification code")
	}

	notify(ctx, h.notifier, h.logger, Notification{
		To:       user.Email,
		Kind:     NotificationVerificationCode,
		Username: user.Username,
		Data:     map[string]string{"code": code},
	})

	h.recordActivity(ctx, event.Session, user)

	if event.OnResponse != nil {
		event.OnResponse(&VerifyPasswordResponse{
			CodeIssued: true,
			ExpiresAt:  expiresAt,
		})
	}

	return nil
}

func (h *VerifyPasswordHandler) recordActivity(ctx context.Context, session Session, user *User) {
	event := ActivityEvent{
		EventType:  ActivityEventPasswordVerified,
		Actor:      actorFromSession(session),
		UserID:     user.ID.String(),
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during password verification: %v", err)
	}
}
