package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Authenticators manages registered credential rows.
type Authenticators interface {
	CountForUser(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type authenticators struct {
	db *bun.DB
}

var _ Authenticators = (*authenticators)(nil)

func NewAuthenticatorsRepository(db *bun.DB) Authenticators {
	return &authenticators{db: db}
}

func (r *authenticators) CountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	return r.db.NewSelect().
		Model((*Authenticator)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
}

func (r *authenticators) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Authenticator)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}
