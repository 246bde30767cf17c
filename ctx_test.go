package account_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-account"
)

func TestUserContextRoundTrip(t *testing.T) {
	user := &account.User{Username: "pellegrino"}
	user.ID = uuid.New()

	ctx := account.WithContext(context.Background(), user)

	got, ok := account.FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, user.ID, got.ID)
}

func TestUserContextMissing(t *testing.T) {
	got, ok := account.FromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSessionContextRoundTrip(t *testing.T) {
	session := newTestSession(uuid.New())

	ctx := account.WithSessionContext(context.Background(), session)

	got, ok := account.SessionFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, session.GetUserID(), got.GetUserID())
}

func TestSessionContextMissing(t *testing.T) {
	_, ok := account.SessionFromContext(context.Background())
	assert.False(t, ok)
}
