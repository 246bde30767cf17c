package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sessions manages persisted browser sessions. Session rows are written
// by the external auth system; this repository only reads and deletes.
type Sessions interface {
	CountForUser(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteForUser(ctx context.Context, userID uuid.UUID) error
	DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
	DeleteByToken(ctx context.Context, token string) error
}

type sessions struct {
	db *bun.DB
}

var _ Sessions = (*sessions)(nil)

func NewSessionsRepository(db *bun.DB) Sessions {
	return &sessions{db: db}
}

func (r *sessions) CountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	return r.db.NewSelect().
		Model((*SessionRecord)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
}

func (r *sessions) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	return r.DeleteForUserTx(ctx, r.db, userID)
}

func (r *sessions) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	return err
}

func (r *sessions) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.db.NewDelete().
		Model((*SessionRecord)(nil)).
		Where("token = ?", token).
		Exec(ctx)
	return err
}
