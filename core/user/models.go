package user

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/oraclelc/backend/core"
)

// Roles
const (
	// Admin
	RoleAdmin = "admin:"

	// Staff
	RoleTutor       = "tutor:"
	RoleLibrarian   = "librarian:"
	RoleFinance     = "finance:"
	RoleHOD         = "hod:"
	RoleStorekeeper = "storekeeper:"

	// External
	RoleSupplier = "supplier:"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles = []string{RoleAdmin}
	StaffRoles = []string{RoleTutor, RoleLibrarian, RoleFinance, RoleHOD, RoleStorekeeper}
	AllRoles   = getAllRoles()

	rolePriorities = map[string]int{
		// Admin: 30 - 21
		RoleAdmin: 30,

		// Staff: 20 - 11
		RoleHOD:         20,
		RoleFinance:     16,
		RoleTutor:       15,
		RoleLibrarian:   14,
		RoleStorekeeper: 13,

		// External & students: 10 - 1
		RoleSupplier: 5,
		RoleStudent:  1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Supplier", Value: RoleSupplier},
		{Name: "Storekeeper", Value: RoleStorekeeper},
		{Name: "Librarian", Value: RoleLibrarian},
		{Name: "Tutor", Value: RoleTutor},
		{Name: "Finance Manager", Value: RoleFinance},
		{Name: "Head of Department", Value: RoleHOD},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 8)
	all = append(all, AdminRoles...)
	all = append(all, StaffRoles...)
	all = append(all, RoleSupplier, RoleStudent)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	IsActive     *bool     `json:"is_active"`
	IsApproved   *bool     `json:"is_approved"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) SetActive(active bool) {
	u.IsActive = &active
}

func (u *User) SetApproved(approved bool) {
	u.IsApproved = &approved
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool       { return u.RoleStartsWith(RoleAdmin) }
func (u *User) IsStudent() bool     { return u.RoleStartsWith(RoleStudent) }
func (u *User) IsTutor() bool       { return u.RoleStartsWith(RoleTutor) }
func (u *User) IsLibrarian() bool   { return u.RoleStartsWith(RoleLibrarian) }
func (u *User) IsFinance() bool     { return u.RoleStartsWith(RoleFinance) }
func (u *User) IsHOD() bool         { return u.RoleStartsWith(RoleHOD) }
func (u *User) IsStorekeeper() bool { return u.RoleStartsWith(RoleStorekeeper) }
func (u *User) IsSupplier() bool    { return u.RoleStartsWith(RoleSupplier) }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name" validate:"required"`
	Username        string   `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(ctx Validator) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := core.Validate.Struct(nu); err != nil {
		return err
	}
	return ctx.CheckUniqueness(nu.Username, nu.Email)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name            string   `json:"name"`
	Username        string   `json:"username" validate:"omitempty,min=6,alphanum_"`
	Email           string   `json:"email" validate:"omitempty,email"`
	IsActive        *bool    `json:"is_active"`
	IsApproved      *bool    `json:"is_approved"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
	Password        string   `json:"password" validate:"omitempty"`
	PasswordConfirm string   `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

func (uu *UpdateUser) Validate(origUsr User, ctx Validator) error {
	if name := core.CleanString(uu.Name); name != "" {
		uu.Name = name
	} else {
		uu.Name = origUsr.Name
	}

	if uname := core.CleanString(uu.Username, true /* lower */); uname != "" {
		uu.Username = uname
	} else {
		uu.Username = origUsr.Username
	}

	if email := core.CleanString(uu.Email, true /* lower */); email != "" {
		uu.Email = email
	} else {
		uu.Email = origUsr.Email
	}

	if err := core.Validate.Struct(uu); err != nil {
		return err
	}
	return ctx.CheckUniqueness(uu.Username, uu.Email, origUsr)
}

// Validator lets inputs run service-level checks during validation.
type Validator interface {
	CheckUniqueness(uname, email string, exclUsers ...User) error
}

// GetFilter applies OR on its fields to find a single User.
type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail []string
}

// QueryFilter applies AND on available fields.
// Search does a case-insensitive match on one of Name, Username or Email.
type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	IsApproved  *bool     `query:"is_approved"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.IsApproved == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
