package tests

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/oraclelc/backend/core/user"
)

func Test_userApi_studentApproval(t *testing.T) {
	server := setup(t)

	admin := createUser(t, "Admin", "admin01", "admin@test.cd", []string{user.RoleAdmin}, true, true)
	pending := createUser(t, "New Student", "newstud", "new@test.cd", []string{user.RoleStudent}, true, false)
	approved := createUser(t, "Old Student", "oldstud", "old@test.cd", []string{user.RoleStudent}, true, true)
	tutor := createUser(t, "Tom Tutor", "tomt", "tom@test.cd", []string{user.RoleTutor}, true, true)

	adminToken := getToken(t, admin)

	t.Run("listing requires admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/students", getToken(t, tutor))
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("unapproved students listing", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/students?is_approved=false", adminToken)
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var users []user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(users) != 1 || users[0].ID != pending.ID {
			t.Fatalf("users = %+v; want only the unapproved student", users)
		}
	})

	t.Run("approve student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/users/students/%s/approve", pending.ID), adminToken)
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if usr.IsApproved == nil || !*usr.IsApproved {
			t.Errorf("IsApproved = %v; want true", usr.IsApproved)
		}
	})

	t.Run("approving twice is harmless", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/users/students/%s/approve", approved.ID), adminToken)
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
	})

	t.Run("non-student cannot be approved", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, fmt.Sprintf("/v1/users/students/%s/approve", tutor.ID), adminToken)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: user.ErrNotStudent.Error()})}, rec)
	})

	t.Run("unknown student is a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/students/b5a64422-85a7-4c18-b9a3-af992a6be81c/approve", adminToken)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})

	t.Run("listing is empty once approved", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/students?is_approved=false", adminToken)
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var users []user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(users) != 0 {
			t.Errorf("users length = %d; want 0", len(users))
		}
	})
}

func Test_userApi_register(t *testing.T) {
	server := setup(t)

	admin := createUser(t, "Admin", "admin01", "admin@test.cd", []string{user.RoleAdmin}, true, true)
	student := createUser(t, "Jane Student", "janes", "jane@test.cd", []string{user.RoleStudent}, true, true)
	adminToken := getToken(t, admin)

	newUsr := user.NewUser{
		Name:            "Supplies Ltd",
		Username:        "supplies",
		Email:           "supplies@test.cd",
		Password:        "LocalPwd!47",
		PasswordConfirm: "LocalPwd!47",
		Roles:           []string{user.RoleSupplier},
	}

	t.Run("requires admin", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, student), marchallObj(t, newUsr))
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}, rec)
	})

	t.Run("admin registers a supplier", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, marchallObj(t, newUsr))
		server.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if !usr.IsSupplier() {
			t.Errorf("Roles = %v; want a supplier", usr.Roles)
		}
	})

	t.Run("duplicate username rejected", func(t *testing.T) {
		dup := newUsr
		dup.Email = "other@test.cd"
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, marchallObj(t, dup))
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("mismatched passwords rejected", func(t *testing.T) {
		bad := newUsr
		bad.Username = "supplies2"
		bad.Email = "other@test.cd"
		bad.PasswordConfirm = "different"
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, marchallObj(t, bad))
		server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("failed! code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})
}

func Test_userApi_roles(t *testing.T) {
	server := setup(t)

	admin := createUser(t, "Admin", "admin01", "admin@test.cd", []string{user.RoleAdmin}, true, true)

	req, rec := newAuthRequest(http.MethodGet, "/v1/users/roles", getToken(t, admin))
	server.ServeHTTP(rec, req)

	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles)}, rec)
}

func Test_userApi_detail(t *testing.T) {
	server := setup(t)

	admin := createUser(t, "Admin", "admin01", "admin@test.cd", []string{user.RoleAdmin}, true, true)
	jane := createUser(t, "Jane Student", "janes", "jane@test.cd", []string{user.RoleStudent}, true, true)
	joe := createUser(t, "Joe Student", "joes", "joe@test.cd", []string{user.RoleStudent}, true, true)

	janeToken := getToken(t, jane)

	t.Run("user retrieves themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+jane.ID, janeToken)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, jane)}, rec)
	})

	t.Run("other users are invisible", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+joe.ID, janeToken)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}, rec)
	})

	t.Run("admin retrieves anyone", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+joe.ID, getToken(t, admin))
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, joe)}, rec)
	})

	t.Run("no token is a 401", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/users/"+jane.ID)
		server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})
}
