package account_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-account"
)

// MockRepositoryManager implements account.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
	users          *MockUsers
	sessions       *MockSessions
	linkedAccounts *MockLinkedAccounts
	authenticators *MockAuthenticators
	subscriptions  *MockSubscriptions
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		users:          &MockUsers{},
		sessions:       &MockSessions{},
		linkedAccounts: &MockLinkedAccounts{},
		authenticators: &MockAuthenticators{},
		subscriptions:  &MockSubscriptions{},
	}
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

// RunInTx forwards the callback with a zero transaction so the
// per-repository mocks observe the calls made inside the transaction.
func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, mock.Anything)
	if err := args.Error(0); err != nil {
		return err
	}
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() account.Users {
	return m.users
}

func (m *MockRepositoryManager) Sessions() account.Sessions {
	return m.sessions
}

func (m *MockRepositoryManager) LinkedAccounts() account.LinkedAccounts {
	return m.linkedAccounts
}

func (m *MockRepositoryManager) Authenticators() account.Authenticators {
	return m.authenticators
}

func (m *MockRepositoryManager) Subscriptions() account.Subscriptions {
	return m.subscriptions
}

func (m *MockRepositoryManager) AssertExpectations(t mock.TestingT) bool {
	ok := m.Mock.AssertExpectations(t)
	ok = m.users.AssertExpectations(t) && ok
	ok = m.sessions.AssertExpectations(t) && ok
	ok = m.linkedAccounts.AssertExpectations(t) && ok
	ok = m.authenticators.AssertExpectations(t) && ok
	ok = m.subscriptions.AssertExpectations(t) && ok
	return ok
}

// MockUsers implements account.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) GetByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*account.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string) (*account.User, error) {
	args := m.Called(ctx, identifier)
	user, _ := args.Get(0).(*account.User)
	return user, args.Error(1)
}

func (m *MockUsers) GetWithRelations(ctx context.Context, id uuid.UUID) (*account.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*account.User)
	return user, args.Error(1)
}

func (m *MockUsers) EmailTaken(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) UsernameTaken(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) SetVerificationCode(ctx context.Context, id uuid.UUID, code string, expiresAt time.Time) error {
	args := m.Called(ctx, id, code, expiresAt)
	return args.Error(0)
}

func (m *MockUsers) SetVerificationCodeTx(ctx context.Context, tx bun.IDB, id uuid.UUID, code string, expiresAt time.Time) error {
	args := m.Called(ctx, tx, id, code, expiresAt)
	return args.Error(0)
}

func (m *MockUsers) FindWithValidCode(ctx context.Context, id uuid.UUID, code string, now time.Time) (*account.User, error) {
	args := m.Called(ctx, id, code, now)
	user, _ := args.Get(0).(*account.User)
	return user, args.Error(1)
}

func (m *MockUsers) UpdateEmailTx(ctx context.Context, tx bun.IDB, id uuid.UUID, email string) error {
	args := m.Called(ctx, tx, id, email)
	return args.Error(0)
}

func (m *MockUsers) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) UpdateUsernameTx(ctx context.Context, tx bun.IDB, id uuid.UUID, username string, clearCode bool) error {
	args := m.Called(ctx, tx, id, username, clearCode)
	return args.Error(0)
}

func (m *MockUsers) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) UpdateRole(ctx context.Context, id uuid.UUID, role account.UserRole) (*account.User, error) {
	args := m.Called(ctx, id, role)
	user, _ := args.Get(0).(*account.User)
	return user, args.Error(1)
}

func (m *MockUsers) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockUsers) DeleteMany(ctx context.Context, ids []uuid.UUID) (int, error) {
	args := m.Called(ctx, ids)
	return args.Int(0), args.Error(1)
}

func (m *MockUsers) ListWithSubscriptions(ctx context.Context) ([]*account.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]*account.User)
	return users, args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, record *account.User) (*account.User, error) {
	args := m.Called(ctx, record)
	user, _ := args.Get(0).(*account.User)
	return user, args.Error(1)
}

// MockSessions implements account.Sessions
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) CountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockSessions) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockSessions) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

func (m *MockSessions) DeleteByToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// MockLinkedAccounts implements account.LinkedAccounts
type MockLinkedAccounts struct {
	mock.Mock
}

func (m *MockLinkedAccounts) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*account.LinkedAccount, error) {
	args := m.Called(ctx, userID)
	records, _ := args.Get(0).([]*account.LinkedAccount)
	return records, args.Error(1)
}

func (m *MockLinkedAccounts) FindByProviderID(ctx context.Context, provider, providerUserID string) (*account.LinkedAccount, error) {
	args := m.Called(ctx, provider, providerUserID)
	record, _ := args.Get(0).(*account.LinkedAccount)
	return record, args.Error(1)
}

func (m *MockLinkedAccounts) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

// MockAuthenticators implements account.Authenticators
type MockAuthenticators struct {
	mock.Mock
}

func (m *MockAuthenticators) CountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockAuthenticators) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

// MockSubscriptions implements account.Subscriptions
type MockSubscriptions struct {
	mock.Mock
}

func (m *MockSubscriptions) GetForUser(ctx context.Context, userID uuid.UUID) (*account.Subscription, error) {
	args := m.Called(ctx, userID)
	record, _ := args.Get(0).(*account.Subscription)
	return record, args.Error(1)
}

func (m *MockSubscriptions) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	args := m.Called(ctx, tx, userID)
	return args.Error(0)
}

// MockNotifier implements account.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, n account.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockActivitySink implements account.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event account.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// recordingSink captures every event for later inspection.
type recordingSink struct {
	events []account.ActivityEvent
}

func (s *recordingSink) Record(ctx context.Context, event account.ActivityEvent) error {
	s.events = append(s.events, event)
	return nil
}

// recordingNotifier captures every notification for later inspection.
type recordingNotifier struct {
	sent []account.Notification
}

func (n *recordingNotifier) Send(ctx context.Context, msg account.Notification) error {
	n.sent = append(n.sent, msg)
	return nil
}

// testSession implements account.Session
type testSession struct {
	userID string
	data   map[string]any
}

func newTestSession(id uuid.UUID) *testSession {
	return &testSession{userID: id.String()}
}

func (s *testSession) GetUserID() string {
	return s.userID
}

func (s *testSession) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.userID)
}

func (s *testSession) GetIssuedAt() *time.Time {
	now := time.Now()
	return &now
}

func (s *testSession) GetData() map[string]any {
	return s.data
}

// testLogger routes handler output through the test log.
type testLogger struct {
	t *testing.T
}

func (l testLogger) Debug(format string, args ...any) { l.t.Logf("DBG "+format, args...) }
func (l testLogger) Info(format string, args ...any)  { l.t.Logf("INF "+format, args...) }
func (l testLogger) Warn(format string, args ...any)  { l.t.Logf("WRN "+format, args...) }
func (l testLogger) Error(format string, args ...any) { l.t.Logf("ERR "+format, args...) }

