package account

import (
	"context"
	"fmt"
)

// NotificationKind selects the template the sender should render.
type NotificationKind string

const (
	NotificationVerificationCode NotificationKind = "verification_code"
	NotificationResetCode        NotificationKind = "reset_code"
	NotificationEmailChanged     NotificationKind = "email_changed"
	NotificationPasswordChanged  NotificationKind = "password_changed"
	NotificationUsernameChanged  NotificationKind = "username_changed"
	NotificationAccountDeleted   NotificationKind = "account_deleted"
)

// Notification is a one way outbound message. Delivery carries no
// acknowledgment back into the workflow: a notification is sent after
// the owning transaction commits and its failure never rolls back or
// retries the mutation.
type Notification struct {
	To       string
	Kind     NotificationKind
	Username string
	Data     map[string]string
}

// Notifier sends a templated message to an address.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification) error

// Send implements Notifier.
func (f NotifierFunc) Send(ctx context.Context, n Notification) error {
	if f == nil {
		return nil
	}
	return f(ctx, n)
}

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, Notification) error {
	return nil
}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// LogNotifier prints outbound notifications, useful in development.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, n Notification) error {
	fmt.Println("====== SENDING EMAIL NOTIFICATION =======")
	fmt.Printf("to: %s\n", n.To)
	fmt.Printf("kind: %s\n", n.Kind)
	for k, v := range n.Data {
		fmt.Printf("%s: %s\n", k, v)
	}
	return nil
}

// notify dispatches fire and forget. Errors are logged and swallowed.
func notify(ctx context.Context, notifier Notifier, logger Logger, n Notification) {
	if err := normalizeNotifier(notifier).Send(ctx, n); err != nil {
		if logger == nil {
			logger = defLogger{}
		}
		logger.Warn("notification delivery failed: kind=%s to=%s error=%v", n.Kind, n.To, err)
	}
}
