package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var SetVerificationCodeSQL = `UPDATE "users" AS "usr"
SET
	"reset_code" = ?,
	"reset_code_expires_at" = ?
WHERE (
	"usr"."id" = ?
) RETURNING *;`

var ChangeEmailSQL = `UPDATE "users" AS "usr"
SET
	"email" = ?,
	"reset_code" = NULL,
	"reset_code_expires_at" = NULL
WHERE (
	"usr"."id" = ?
) RETURNING *;`

var ChangePasswordSQL = `UPDATE "users" AS "usr"
SET
	"password_hash" = ?,
	"reset_code" = NULL,
	"reset_code_expires_at" = NULL
WHERE (
	"usr"."id" = ?
) RETURNING *;`

var ChangeUsernameSQL = `UPDATE "users" AS "usr"
SET
	"username" = ?,
	"reset_code" = NULL,
	"reset_code_expires_at" = NULL
WHERE (
	"usr"."id" = ?
) RETURNING *;`

// ChangeUsernameKeepCodeSQL is used for provider-linked accounts, which
// change usernames without a verification code in play.
var ChangeUsernameKeepCodeSQL = `UPDATE "users" AS "usr"
SET
	"username" = ?
WHERE (
	"usr"."id" = ?
) RETURNING *;`

var AssignRoleSQL = `UPDATE "users" AS "usr"
SET
	"user_role" = ?
WHERE (
	"usr"."id" = ?
) RETURNING *;`

type Users interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*User, error)
	GetWithRelations(ctx context.Context, id uuid.UUID) (*User, error)

	EmailTaken(ctx context.Context, email string) (bool, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)

	SetVerificationCode(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error
	SetVerificationCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, expiresAt time.Time) error
	FindWithValidCode(ctx context.Context, id uuid.UUID, code string, now time.Time) (*User, error)

	UpdateEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, email string) error
	UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error
	UpdateUsernameTx(ctx context.Context, tx bun.IDB, id uuid.UUID, username string, clearCode bool) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	UpdateRole(ctx context.Context, id uuid.UUID, role UserRole) (*User, error)

	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int, error)

	ListWithSubscriptions(ctx context.Context) ([]*User, error)
	Create(ctx context.Context, record *User) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isRecordMissing(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	options := resolveUserIdentifier(identifier)
	if len(options) == 0 {
		options = []identifierOption{
			{
				column: "id",
				value:  strings.TrimSpace(identifier),
			},
		}
	}

	for _, opt := range options {
		record := &User{}
		err := a.db.NewSelect().
			Model(record).
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if isRecordMissing(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) GetWithRelations(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Relation("LinkedAccounts").
		Relation("Authenticators").
		Relation("Subscription").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isRecordMissing(err) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	return record, nil
}

func (a *users) EmailTaken(ctx context.Context, email string) (bool, error) {
	return a.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", email).
		Exists(ctx)
}

func (a *users) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return a.db.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.username = ?", username).
		Exists(ctx)
}

func (a *users) SetVerificationCode(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	return a.SetVerificationCodeTx(ctx, a.db, id, code, expiresAt)
}

func (a *users) SetVerificationCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, expiresAt time.Time) error {
	res, err := a.Repository.RawTx(ctx, tx, SetVerificationCodeSQL, code, expiresAt, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

// FindWithValidCode loads the user only when the submitted code matches
// and has not expired. The caller cannot tell which condition failed.
func (a *users) FindWithValidCode(ctx context.Context, id uuid.UUID, code string, now time.Time) (*User, error) {
	if code == "" {
		return nil, ErrInvalidOrExpiredCode
	}

	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.reset_code = ?", code).
		Where("?TableAlias.reset_code_expires_at > ?", now).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if isRecordMissing(err) {
			return nil, ErrInvalidOrExpiredCode
		}
		return nil, err
	}

	return record, nil
}

func (a *users) UpdateEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, email string) error {
	return a.execReturning(ctx, tx, ChangeEmailSQL, email, id.String())
}

func (a *users) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.UpdatePasswordTx(ctx, a.db, id, passwordHash)
}

func (a *users) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	return a.execReturning(ctx, tx, ChangePasswordSQL, passwordHash, id.String())
}

func (a *users) UpdateUsernameTx(ctx context.Context, tx bun.IDB, id uuid.UUID, username string, clearCode bool) error {
	sql := ChangeUsernameKeepCodeSQL
	if clearCode {
		sql = ChangeUsernameSQL
	}
	return a.execReturning(ctx, tx, sql, username, id.String())
}

func (a *users) UpdateRole(ctx context.Context, id uuid.UUID, role UserRole) (*User, error) {
	if !IsValidRole(role) {
		return nil, ErrInvalidRole
	}

	// only touch user_role; a model update here would blank every
	// other column
	res, err := a.Repository.RawTx(ctx, a.db, AssignRoleSQL, string(role), id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, ErrAccountNotFound
	}

	return res[0], nil
}

func (a *users) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *users) DeleteMany(ctx context.Context, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := a.db.NewDelete().
		Model((*User)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}

	return int(affected), nil
}

func (a *users) ListWithSubscriptions(ctx context.Context) ([]*User, error) {
	var records []*User
	err := a.db.NewSelect().
		Model(&records).
		Relation("Subscription").
		// both users and subscriptions carry created_at; qualify or the
		// join makes it ambiguous
		Order("usr.created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, a.db, record)
}

func (a *users) execReturning(ctx context.Context, tx bun.IDB, sql string, args ...any) error {
	res, err := a.Repository.RawTx(ctx, tx, sql, args...)
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"query": "user update",
			})
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleMember
	}

	if record.Plan == "" {
		record.Plan = PlanFree
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 3)

	if isUUID(trimmed) {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  trimmed,
		})
	}

	options = append(options, identifierOption{
		column: "username",
		value:  trimmed,
	})

	return options
}

func isEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}

func isUUID(identifier string) bool {
	_, err := uuid.Parse(identifier)
	return err == nil
}

// bun surfaces missing rows as sql.ErrNoRows, the repository layer as
// its own not-found error. Callers need them folded together.
func isRecordMissing(err error) bool {
	return repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows)
}
