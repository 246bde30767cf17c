package account

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
	Sessions() Sessions
	LinkedAccounts() LinkedAccounts
	Authenticators() Authenticators
	Subscriptions() Subscriptions
}

type mngr struct {
	db             *bun.DB
	users          Users
	sessions       Sessions
	linkedAccounts LinkedAccounts
	authenticators Authenticators
	subscriptions  Subscriptions
}

func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:             db,
		users:          NewUsersRepository(db),
		sessions:       NewSessionsRepository(db),
		linkedAccounts: NewLinkedAccountsRepository(db),
		authenticators: NewAuthenticatorsRepository(db),
		subscriptions:  NewSubscriptionsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
	}

	if m.linkedAccounts == nil {
		return errors.New("repository linkedAccounts should be initialized")
	}

	if m.authenticators == nil {
		return errors.New("repository authenticators should be initialized")
	}

	if m.subscriptions == nil {
		return errors.New("repository subscriptions should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Sessions() Sessions {
	return m.sessions
}

func (m mngr) LinkedAccounts() LinkedAccounts {
	return m.linkedAccounts
}

func (m mngr) Authenticators() Authenticators {
	return m.authenticators
}

func (m mngr) Subscriptions() Subscriptions {
	return m.subscriptions
}
