package account

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LinkedAccounts manages external provider links.
type LinkedAccounts interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*LinkedAccount, error)
	FindByProviderID(ctx context.Context, provider, providerUserID string) (*LinkedAccount, error)
	DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type linkedAccounts struct {
	db *bun.DB
}

var _ LinkedAccounts = (*linkedAccounts)(nil)

func NewLinkedAccountsRepository(db *bun.DB) LinkedAccounts {
	return &linkedAccounts{db: db}
}

func (r *linkedAccounts) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*LinkedAccount, error) {
	var records []*LinkedAccount
	err := r.db.NewSelect().
		Model(&records).
		Where("user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*LinkedAccount{}, nil
		}
		return nil, err
	}
	return records, nil
}

func (r *linkedAccounts) FindByProviderID(ctx context.Context, provider, providerUserID string) (*LinkedAccount, error) {
	record := &LinkedAccount{}
	err := r.db.NewSelect().
		Model(record).
		Where("provider = ? AND provider_user_id = ?", provider, providerUserID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *linkedAccounts) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*LinkedAccount)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}
