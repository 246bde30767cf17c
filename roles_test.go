package account_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goliatone/go-account"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		input string
		want  account.UserRole
		ok    bool
	}{
		{"member", account.RoleMember, true},
		{"admin", account.RoleAdmin, true},
		{"Admin", "", false},
		{"superuser", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := account.ParseRole(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	assert.True(t, account.IsValidRole(account.RoleMember))
	assert.True(t, account.IsValidRole(account.RoleAdmin))
	assert.False(t, account.IsValidRole("owner"))
}

func TestGetAllRoles(t *testing.T) {
	roles := account.GetAllRoles()
	assert.Contains(t, roles, account.RoleMember)
	assert.Contains(t, roles, account.RoleAdmin)
}
