package account_test

import (
	"context"
	"errors"
	"testing"

	router "github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-account"
)

func staticResolver(session account.Session, err error) account.SessionResolver {
	return account.SessionResolverFunc(func(c router.Context) (account.Session, error) {
		return session, err
	})
}

func recordingErrorHandler(captured *error) func(router.Context, error) error {
	return func(c router.Context, err error) error {
		*captured = err
		return nil
	}
}

func TestRequireSessionStoresSession(t *testing.T) {
	userID := uuid.New()
	session := newTestSession(userID)

	var handlerErr error
	mw := account.RequireSession(staticResolver(session, nil), recordingErrorHandler(&handlerErr))

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("SetContext", mock.MatchedBy(func(c context.Context) bool {
		got, ok := account.SessionFromContext(c)
		return ok && got.GetUserID() == userID.String()
	})).Return()

	called := false
	err := mw(func(c router.Context) error {
		called = true
		return nil
	})(ctx)

	require.NoError(t, err)
	assert.True(t, called)
	assert.NoError(t, handlerErr)
	ctx.AssertExpectations(t)
}

func TestRequireSessionRejectsUnresolvedRequest(t *testing.T) {
	var handlerErr error
	mw := account.RequireSession(
		staticResolver(nil, account.ErrUnauthorized),
		recordingErrorHandler(&handlerErr),
	)

	ctx := router.NewMockContext()

	called := false
	err := mw(func(c router.Context) error {
		called = true
		return nil
	})(ctx)

	require.NoError(t, err)
	assert.False(t, called)
	assert.ErrorIs(t, handlerErr, account.ErrUnauthorized)
}

func TestRequireAdminAllowsAdminUser(t *testing.T) {
	userID := uuid.New()
	admin := &account.User{Username: "root", Role: account.RoleAdmin}
	admin.ID = userID

	users := &MockUsers{}
	users.On("GetByID", mock.Anything, userID).Return(admin, nil)

	var handlerErr error
	mw := account.RequireAdmin(
		staticResolver(newTestSession(userID), nil),
		users,
		recordingErrorHandler(&handlerErr),
	)

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())
	ctx.On("SetContext", mock.MatchedBy(func(c context.Context) bool {
		user, ok := account.FromContext(c)
		if !ok || user.ID != userID {
			return false
		}
		_, ok = account.SessionFromContext(c)
		return ok
	})).Return()

	called := false
	err := mw(func(c router.Context) error {
		called = true
		return nil
	})(ctx)

	require.NoError(t, err)
	assert.True(t, called)
	assert.NoError(t, handlerErr)
	users.AssertExpectations(t)
}

func TestRequireAdminRejectsMemberUser(t *testing.T) {
	userID := uuid.New()
	member := &account.User{Username: "member", Role: account.RoleMember}
	member.ID = userID

	users := &MockUsers{}
	users.On("GetByID", mock.Anything, userID).Return(member, nil)

	var handlerErr error
	mw := account.RequireAdmin(
		staticResolver(newTestSession(userID), nil),
		users,
		recordingErrorHandler(&handlerErr),
	)

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())

	called := false
	err := mw(func(c router.Context) error {
		called = true
		return nil
	})(ctx)

	require.NoError(t, err)
	assert.False(t, called)
	assert.ErrorIs(t, handlerErr, account.ErrAdminRequired)
}

func TestRequireAdminRejectsUnknownUser(t *testing.T) {
	userID := uuid.New()

	users := &MockUsers{}
	users.On("GetByID", mock.Anything, userID).Return(nil, errors.New("gone"))

	var handlerErr error
	mw := account.RequireAdmin(
		staticResolver(newTestSession(userID), nil),
		users,
		recordingErrorHandler(&handlerErr),
	)

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())

	err := mw(func(c router.Context) error {
		t.Fatal("handler should not run")
		return nil
	})(ctx)

	require.NoError(t, err)
	assert.ErrorIs(t, handlerErr, account.ErrUnauthorized)
}
