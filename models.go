package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Plan identifies the billing plan of a user
type Plan = string

const (
	// PlanFree is the default, unpaid plan
	PlanFree Plan = "free"
	// PlanPro is the paid plan
	PlanPro Plan = "pro"
)

// SubscriptionPeriod is the billing cadence of a subscription
type SubscriptionPeriod = string

const (
	// PeriodMonthly bills every month
	PeriodMonthly SubscriptionPeriod = "monthly"
	// PeriodYearly bills every year
	PeriodYearly SubscriptionPeriod = "yearly"
)

// User is the user model
type User struct {
	bun.BaseModel      `bun:"table:users,alias:usr"`
	ID                 uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Role               UserRole         `bun:"user_role,notnull" json:"user_role,omitempty"`
	Username           string           `bun:"username,notnull,unique" json:"username,omitempty"`
	Email              string           `bun:"email,notnull,unique" json:"email,omitempty"`
	ProfilePicture     string           `bun:"profile_picture" json:"profile_picture,omitempty"`
	PasswordHash       string           `bun:"password_hash" json:"password_hash,omitempty"`
	Plan               Plan             `bun:"plan,notnull,default:'free'" json:"plan,omitempty"`
	ResetCode          *string          `bun:"reset_code,nullzero" json:"-"`
	ResetCodeExpiresAt *time.Time       `bun:"reset_code_expires_at,nullzero" json:"-"`
	LinkedAccounts     []*LinkedAccount `bun:"rel:has-many,join:id=user_id" json:"linked_accounts,omitempty"`
	Authenticators     []*Authenticator `bun:"rel:has-many,join:id=user_id" json:"authenticators,omitempty"`
	Subscription       *Subscription    `bun:"rel:has-one,join:id=user_id" json:"subscription,omitempty"`
	CreatedAt          *time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time       `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasLinkedProvider reports whether the user authenticates through an
// external provider rather than a stored password hash.
func (u *User) HasLinkedProvider() bool {
	return u != nil && len(u.LinkedAccounts) > 0
}

// Provider returns the name of the first linked external provider.
func (u *User) Provider() string {
	if !u.HasLinkedProvider() {
		return ""
	}
	return u.LinkedAccounts[0].Provider
}

// VerificationCodeValid reports whether code matches the stored
// verification code and the code is still inside its validity window.
// Mismatch and expiry are indistinguishable to callers.
func (u *User) VerificationCodeValid(code string, now time.Time) bool {
	if u == nil || u.ResetCode == nil || u.ResetCodeExpiresAt == nil {
		return false
	}
	if code == "" || *u.ResetCode != code {
		return false
	}
	return u.ResetCodeExpiresAt.After(now)
}

// LinkedAccount ties a user to an external auth provider
type LinkedAccount struct {
	bun.BaseModel  `bun:"table:linked_accounts,alias:lacc"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID         uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Provider       string     `bun:"provider,notnull" json:"provider,omitempty"`
	ProviderUserID string     `bun:"provider_user_id,notnull" json:"provider_user_id,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Authenticator is a hardware or platform credential registered by a user
type Authenticator struct {
	bun.BaseModel `bun:"table:authenticators,alias:authn"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	CredentialID  string     `bun:"credential_id,notnull,unique" json:"credential_id,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// SessionRecord is a persisted browser session. Sessions are created by
// the external auth system; this package only deletes them when the
// credentials they were minted against change.
type SessionRecord struct {
	bun.BaseModel `bun:"table:sessions,alias:sess"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"-"`
	ExpiresAt     *time.Time `bun:"expires_at,nullzero" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Subscription is the billing record owned by exactly one user
type Subscription struct {
	bun.BaseModel `bun:"table:subscriptions,alias:sub"`
	ID            uuid.UUID          `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID          `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	Period        SubscriptionPeriod `bun:"period,notnull" json:"period,omitempty"`
	StartsAt      *time.Time         `bun:"starts_at,nullzero" json:"starts_at,omitempty"`
	EndsAt        *time.Time         `bun:"ends_at,nullzero" json:"ends_at,omitempty"`
	CreatedAt     *time.Time         `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// Active reports whether the subscription covers the given instant.
func (s *Subscription) Active(now time.Time) bool {
	if s == nil || s.EndsAt == nil {
		return false
	}
	return s.EndsAt.After(now)
}
