package user

import "testing"

func TestUser_RoleStartsWith(t *testing.T) {
	usr := User{Roles: []string{"tutor:french", RoleStudent}}

	if !usr.RoleStartsWith(RoleTutor) {
		t.Error("RoleStartsWith(tutor:) = false; want true for a scoped tutor role")
	}
	if !usr.IsStudent() {
		t.Error("IsStudent() = false; want true")
	}
	if usr.IsAdmin() {
		t.Error("IsAdmin() = true; want false")
	}
	if usr.IsSupplier() {
		t.Error("IsSupplier() = true; want false")
	}
}

func TestMaxRolePriority(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{"empty", nil, 0},
		{"student only", []string{RoleStudent}, RolePriority(RoleStudent)},
		{"admin outranks staff", []string{RoleTutor, RoleAdmin}, RolePriority(RoleAdmin)},
		{"unknown role", []string{"janitor:"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaxRolePriority(tt.roles); got != tt.want {
				t.Errorf("MaxRolePriority(%v) = %d; want %d", tt.roles, got, tt.want)
			}
		})
	}
}

func TestUser_SetPassword(t *testing.T) {
	var usr User
	if err := usr.SetPassword("LocalPwd!47"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	if err := usr.CheckPassword("LocalPwd!47"); err != nil {
		t.Errorf("CheckPassword() with the right password failed: %v", err)
	}
	if err := usr.CheckPassword("wrong"); err == nil {
		t.Error("CheckPassword() accepted a wrong password")
	}
}
