package account

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PricingConfig holds the price of each billing cadence. Amounts are
// whole currency units per billing period.
type PricingConfig struct {
	MonthlyPrice float64
	YearlyPrice  float64
}

// DefaultPricingConfig matches the published plan prices.
var DefaultPricingConfig = PricingConfig{
	MonthlyPrice: 5,
	YearlyPrice:  50,
}

// PeriodStats aggregates subscriptions sharing a billing cadence.
type PeriodStats struct {
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

// DirectoryStats is the aggregate header of the admin user directory.
type DirectoryStats struct {
	TotalUsers          int         `json:"total_users"`
	ActiveSubscriptions int         `json:"active_subscriptions"`
	TotalRevenue        float64     `json:"total_revenue"`
	Yearly              PeriodStats `json:"yearly"`
	Monthly             PeriodStats `json:"monthly"`
	MRR                 float64     `json:"mrr"`
	RevenuePerUser      float64     `json:"revenue_per_user"`
}

// ComputeDirectoryStats aggregates subscription statistics over a user
// list. Only subscriptions active at now count towards revenue.
func ComputeDirectoryStats(users []*User, pricing PricingConfig, now time.Time) DirectoryStats {
	stats := DirectoryStats{
		TotalUsers: len(users),
	}

	for _, user := range users {
		sub := user.Subscription
		if !sub.Active(now) {
			continue
		}
		stats.ActiveSubscriptions++

		switch sub.Period {
		case PeriodYearly:
			stats.Yearly.Count++
			stats.Yearly.Revenue += pricing.YearlyPrice
		case PeriodMonthly:
			stats.Monthly.Count++
			stats.Monthly.Revenue += pricing.MonthlyPrice
		}
	}

	stats.TotalRevenue = stats.Yearly.Revenue + stats.Monthly.Revenue
	stats.MRR = stats.Monthly.Revenue + stats.Yearly.Revenue/12

	if stats.TotalUsers > 0 {
		stats.RevenuePerUser = stats.TotalRevenue / float64(stats.TotalUsers)
	}

	return stats
}

// DirectoryFilter narrows the user list shown in the directory. All
// enabled criteria must match.
type DirectoryFilter struct {
	Name      string `json:"name" query:"name"`
	ProOnly   bool   `json:"pro_only" query:"pro_only"`
	AdminOnly bool   `json:"admin_only" query:"admin_only"`
}

// Match reports whether user satisfies every enabled criterion.
func (f DirectoryFilter) Match(user *User) bool {
	if user == nil {
		return false
	}

	if f.Name != "" {
		if !strings.Contains(
			strings.ToLower(user.Username),
			strings.ToLower(f.Name),
		) {
			return false
		}
	}

	if f.ProOnly && user.Plan != PlanPro {
		return false
	}

	if f.AdminOnly && user.Role != RoleAdmin {
		return false
	}

	return true
}

// Apply returns the users satisfying the filter, preserving order.
func (f DirectoryFilter) Apply(users []*User) []*User {
	out := make([]*User, 0, len(users))
	for _, user := range users {
		if f.Match(user) {
			out = append(out, user)
		}
	}
	return out
}

// DirectoryActions is the command surface the directory drives. Role
// changes go out one user at a time; deletion takes the whole set.
type DirectoryActions interface {
	AssignRole(ctx context.Context, session Session, userID uuid.UUID, role string) error
	DeleteUsers(ctx context.Context, session Session, userIDs []uuid.UUID) error
}

// commandActions dispatches directory actions through the command
// handlers.
type commandActions struct {
	repo     RepositoryManager
	activity ActivitySink
	logger   Logger
}

// NewCommandDirectoryActions builds a DirectoryActions backed by the
// role and bulk deletion commands.
func NewCommandDirectoryActions(repo RepositoryManager, sink ActivitySink, logger Logger) DirectoryActions {
	if logger == nil {
		logger = defLogger{}
	}
	return &commandActions{
		repo:     repo,
		activity: normalizeActivitySink(sink),
		logger:   logger,
	}
}

func (a *commandActions) AssignRole(ctx context.Context, session Session, userID uuid.UUID, role string) error {
	handler := NewModifyRoleHandler(a.repo).
		WithActivitySink(a.activity).
		WithLogger(a.logger)

	return handler.Execute(ctx, ModifyRoleMessage{
		Session: session,
		UserID:  userID,
		NewRole: role,
	})
}

func (a *commandActions) DeleteUsers(ctx context.Context, session Session, userIDs []uuid.UUID) error {
	handler := NewDeleteUsersHandler(a.repo).
		WithActivitySink(a.activity).
		WithLogger(a.logger)

	return handler.Execute(ctx, DeleteUsersMessage{
		Session: session,
		UserIDs: userIDs,
	})
}

// Directory tracks the selection and in-flight state of the admin user
// table. Safe for concurrent use.
type Directory struct {
	mu       sync.Mutex
	selected map[uuid.UUID]struct{}
	busy     map[uuid.UUID]bool
	actions  DirectoryActions
}

// NewDirectory creates an empty directory bound to the given actions.
func NewDirectory(actions DirectoryActions) *Directory {
	return &Directory{
		selected: map[uuid.UUID]struct{}{},
		busy:     map[uuid.UUID]bool{},
		actions:  actions,
	}
}

// Select adds a user to the selection set.
func (d *Directory) Select(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected[id] = struct{}{}
}

// Deselect removes a user from the selection set.
func (d *Directory) Deselect(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.selected, id)
}

// SelectAll replaces the selection with every listed user.
func (d *Directory) SelectAll(users []*User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = make(map[uuid.UUID]struct{}, len(users))
	for _, user := range users {
		d.selected[user.ID] = struct{}{}
	}
}

// Clear empties the selection set.
func (d *Directory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = map[uuid.UUID]struct{}{}
}

// IsSelected reports whether a user is in the selection set.
func (d *Directory) IsSelected(id uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.selected[id]
	return ok
}

// Selected returns the current selection as a slice.
func (d *Directory) Selected() []uuid.UUID {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(d.selected))
	for id := range d.selected {
		ids = append(ids, id)
	}
	return ids
}

// IsBusy reports whether a row has a request in flight.
func (d *Directory) IsBusy(id uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.busy[id]
}

func (d *Directory) setBusy(id uuid.UUID, busy bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if busy && d.busy[id] {
		return false
	}
	if busy {
		d.busy[id] = true
	} else {
		delete(d.busy, id)
	}
	return true
}

// AssignRole changes one user's role. The row is marked busy for the
// duration of the call and released whether it succeeds or fails; a
// row already in flight ignores the request.
func (d *Directory) AssignRole(ctx context.Context, session Session, userID uuid.UUID, role string) error {
	if !d.setBusy(userID, true) {
		return nil
	}
	defer d.setBusy(userID, false)

	return d.actions.AssignRole(ctx, session, userID, role)
}

// BulkDelete removes every selected user. An empty selection dispatches
// nothing. The selection is cleared only on success.
func (d *Directory) BulkDelete(ctx context.Context, session Session) error {
	ids := d.Selected()
	if len(ids) == 0 {
		return nil
	}

	if err := d.actions.DeleteUsers(ctx, session, ids); err != nil {
		return err
	}

	d.Clear()
	return nil
}
