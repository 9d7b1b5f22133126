package feedback

import (
	"testing"

	"github.com/oraclelc/backend/core/user"
)

func TestUserRoleFor(t *testing.T) {
	tests := []struct {
		roleName string
		want     string
		wantOK   bool
	}{
		{RecipientTutor, user.RoleTutor, true},
		{RecipientLibrarian, user.RoleLibrarian, true},
		{RecipientFinance, user.RoleFinance, true},
		{RecipientHOD, user.RoleHOD, true},
		{"janitor", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := UserRoleFor(tt.roleName)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("UserRoleFor(%q) = %q, %v; want %q, %v", tt.roleName, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRecipientRoleOf(t *testing.T) {
	tests := []struct {
		name   string
		usr    user.User
		want   string
		wantOK bool
	}{
		{"tutor", user.User{Roles: []string{user.RoleTutor}}, RecipientTutor, true},
		{"scoped hod", user.User{Roles: []string{"hod:languages"}}, RecipientHOD, true},
		{"tutor outranks librarian", user.User{Roles: []string{user.RoleLibrarian, user.RoleTutor}}, RecipientTutor, true},
		{"supplier", user.User{Roles: []string{user.RoleSupplier}}, "", false},
		{"no roles", user.User{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RecipientRoleOf(tt.usr)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("RecipientRoleOf() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
