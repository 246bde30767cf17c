package account

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Subscriptions manages billing records. A subscription is owned by
// exactly one user and removed alongside it.
type Subscriptions interface {
	GetForUser(ctx context.Context, userID uuid.UUID) (*Subscription, error)
	DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type subscriptions struct {
	db *bun.DB
}

var _ Subscriptions = (*subscriptions)(nil)

func NewSubscriptionsRepository(db *bun.DB) Subscriptions {
	return &subscriptions{db: db}
}

func (r *subscriptions) GetForUser(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	record := &Subscription{}
	err := r.db.NewSelect().
		Model(record).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func (r *subscriptions) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Subscription)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}
