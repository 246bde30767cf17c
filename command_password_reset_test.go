package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-account"
	"golang.org/x/crypto/bcrypt"
)

func TestRequestPasswordResetIssuesCode(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepositoryManager()
	notifier := &recordingNotifier{}
	sink := &recordingSink{}

	userID := uuid.New()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	user := &account.User{
		ID:       userID,
		Username: "pellegrino",
		Email:    "pellegrino@example.com",
	}

	repo.users.On("GetByIdentifier", mock.Anything, "pellegrino@example.com").Return(user, nil).Once()
	repo.users.On("SetVerificationCode", mock.Anything, userID, mock.MatchedBy(func(code string) bool {
		return len(code) == account.VerificationCodeLength
	}), now.Add(time.Hour)).Return(nil).Once()

	var res *account.RequestPasswordResetResponse
	handler := account.NewRequestPasswordResetHandler(repo).
		WithNotifier(notifier).
		WithActivitySink(sink).
		WithLogger(testLogger{t}).
		WithClock(func() time.Time { return now })

	err := handler.Execute(ctx, account.RequestPasswordResetMessage{
		Email: "pellegrino@example.com",
		OnResponse: func(resp *account.RequestPasswordResetResponse) {
			res = resp
		},
	})
	require.NoError(t, err)

	require.NotNil(t, res)
	assert.True(t, res.Delivered)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, account.NotificationResetCode, notifier.sent[0].Kind)

	require.Len(t, sink.events, 1)
	assert.Equal(t, account.ActivityEventResetRequested, sink.events[0].EventType)

	repo.AssertExpectations(t)
}

func TestRequestPasswordResetUnknownEmailReportsSuccess(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepositoryManager()
	notifier := &recordingNotifier{}

	repo.users.On("GetByIdentifier", mock.Anything, "ghost@example.com").
		Return(nil, goerrors.New("record not found", goerrors.CategoryNotFound).WithCode(goerrors.CodeNotFound)).Once()

	var res *account.RequestPasswordResetResponse
	handler := account.NewRequestPasswordResetHandler(repo).
		WithNotifier(notifier).
		WithLogger(testLogger{t})

	err := handler.Execute(ctx, account.RequestPasswordResetMessage{
		Email: "ghost@example.com",
		OnResponse: func(resp *account.RequestPasswordResetResponse) {
			res = resp
		},
	})

	require.NoError(t, err, "unknown addresses must not be distinguishable")
	require.NotNil(t, res)
	assert.False(t, res.Delivered)
	assert.Empty(t, notifier.sent)

	repo.users.AssertNotCalled(t, "SetVerificationCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestResetPasswordWithCurrentPassword(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepositoryManager()

	userID := uuid.New()
	hash, err := account.HashPassword("current password")
	require.NoError(t, err)

	user := &account.User{
		ID:           userID,
		Email:        "pellegrino@example.com",
		PasswordHash: hash,
	}

	repo.users.On("GetByIdentifier", mock.Anything, "pellegrino@example.com").Return(user, nil).Once()
	repo.users.On("UpdatePassword", mock.Anything, userID, mock.MatchedBy(func(newHash string) bool {
		return bcrypt.CompareHashAndPassword([]byte(newHash), []byte("my new password")) == nil
	})).Return(nil).Once()

	handler := account.NewResetPasswordHandler(repo).WithLogger(testLogger{t})

	err = handler.Execute(ctx, account.ResetPasswordMessage{
		Email:           "pellegrino@example.com",
		CurrentPassword: "current password",
		NewPassword:     "my new password",
	})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestResetPasswordUnknownAccount(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepositoryManager()

	repo.users.On("GetByIdentifier", mock.Anything, "ghost@example.com").
		Return(nil, goerrors.New("record not found", goerrors.CategoryNotFound).WithCode(goerrors.CodeNotFound)).Once()

	handler := account.NewResetPasswordHandler(repo).WithLogger(testLogger{t})

	err := handler.Execute(ctx, account.ResetPasswordMessage{
		Email:           "ghost@example.com",
		CurrentPassword: "whatever",
		NewPassword:     "my new password",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, account.ErrAccountNotFound))
	repo.AssertExpectations(t)
}

func TestResetPasswordWrongCurrentPassword(t *testing.T) {
	ctx := context.Background()
	repo := NewMockRepositoryManager()

	userID := uuid.New()
	hash, err := account.HashPassword("current password")
	require.NoError(t, err)

	user := &account.User{
		ID:           userID,
		Email:        "pellegrino@example.com",
		PasswordHash: hash,
	}

	repo.users.On("GetByIdentifier", mock.Anything, "pellegrino@example.com").Return(user, nil).Once()

	handler := account.NewResetPasswordHandler(repo).WithLogger(testLogger{t})

	err = handler.Execute(ctx, account.ResetPasswordMessage{
		Email:           "pellegrino@example.com",
		CurrentPassword: "wrong password",
		NewPassword:     "my new password",
	})

	require.Error(t, err)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, account.TextCodeInvalidPassword, richErr.TextCode)

	repo.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}
