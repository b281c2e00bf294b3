package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/Rutik-tetare29/Campushub-sub001/core/user"
	emailsvc "github.com/Rutik-tetare29/Campushub-sub001/services/email"
	inmemdb "github.com/Rutik-tetare29/Campushub-sub001/storage/database/inmem"
)

type userTestApp struct {
	app     *echo.Echo
	usrRepo user.Repository
}

func setupUserApp(t *testing.T) *userTestApp {
	t.Helper()

	conf := testConfig()
	translator := newTestTranslator()
	validate := testValidator(translator)
	db := openDB(t)

	usrRepo := inmemdb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(usrRepo, mailSvc, validate, conf)

	app, v1, jwt := initApp(conf, translator)
	RegisterUserAPI(v1, jwt, usrSvc, validate)
	return &userTestApp{app: app, usrRepo: usrRepo}
}

func Test_userApi_login(t *testing.T) {
	ta := setupUserApp(t)

	createUser(t, ta.usrRepo, "Active", "active", "active@test.cd", "s3cr3tpwd", []string{user.RoleStudent}, true)
	createUser(t, ta.usrRepo, "Inactive", "inactive", "inactive@test.cd", "s3cr3tpwd", []string{user.RoleStudent}, false)

	tests := []struct {
		name     string
		body     LoginRequest
		wantCode int
	}{
		{"valid credentials", LoginRequest{Username: "active", Password: "s3cr3tpwd"}, http.StatusOK},
		{"login by email", LoginRequest{Username: "active@test.cd", Password: "s3cr3tpwd"}, http.StatusOK},
		{"wrong password", LoginRequest{Username: "active", Password: "nope"}, http.StatusUnauthorized},
		{"unknown user", LoginRequest{Username: "ghost1", Password: "s3cr3tpwd"}, http.StatusUnauthorized},
		{"inactive account", LoginRequest{Username: "inactive", Password: "s3cr3tpwd"}, http.StatusUnauthorized},
		{"missing password", LoginRequest{Username: "active"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", marchallObj(t, tt.body))
			ta.app.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("code = %v; want %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK {
				var resp TokenResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatal(err)
				}
				if resp.Token == "" {
					t.Error("empty token")
				}
			}
		})
	}

	t.Run("token refresh", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", marchallObj(t, LoginRequest{Username: "active", Password: "s3cr3tpwd"}))
		ta.app.ServeHTTP(rec, req)
		var resp TokenResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}

		req, rec = newAuthRequest(http.MethodPost, "/v1/users/token-refresh", resp.Token)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v; want 200; body %s", rec.Code, rec.Body.String())
		}
	})
}

func Test_userApi_register(t *testing.T) {
	ta := setupUserApp(t)

	admin := createUser(t, ta.usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	student := createUser(t, ta.usrRepo, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true)
	adminToken := getToken(t, admin)

	newUsr := func(uname, email string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name: "New User", Username: uname, Email: email,
			Password: "passpass", PasswordConfirm: "passpass", Roles: roles,
		})
	}

	t.Run("admin only", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", getToken(t, student), newUsr("newuser", "new@test.cd"))
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want 403", rec.Code)
		}
	})

	t.Run("admin registers", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, newUsr("newuser", "new@test.cd", user.RoleStudent))
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want 201; body %s", rec.Code, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatal(err)
		}
		if usr.Username != "newuser" || !usr.IsActive {
			t.Errorf("user = %+v", usr)
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, newUsr("newuser", "other@test.cd"))
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want 400; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("cannot grant roles above own", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/register", adminToken, newUsr("escalee", "esc@test.cd", user.RoleAdminOwner))
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want 400; body %s", rec.Code, rec.Body.String())
		}
	})
}

func Test_userApi_query(t *testing.T) {
	ta := setupUserApp(t)

	admin := createUser(t, ta.usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	createUser(t, ta.usrRepo, "Alpha Teacher", "alpha1", "alpha@test.cd", "", []string{user.RoleTeacher}, true)
	createUser(t, ta.usrRepo, "Beta Student", "beta11", "beta@test.cd", "", []string{user.RoleStudent}, true)
	adminToken := getToken(t, admin)

	countUsers := func(t *testing.T, rec *httptest.ResponseRecorder) int {
		t.Helper()
		var users []user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
			t.Fatal(err)
		}
		return len(users)
	}

	t.Run("lists all", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users", adminToken)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want 200", rec.Code)
		}
		if n := countUsers(t, rec); n != 3 {
			t.Errorf("got %d users; want 3", n)
		}
	})

	t.Run("filters by search", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users?search=alpha", adminToken)
		ta.app.ServeHTTP(rec, req)
		if n := countUsers(t, rec); n != 1 {
			t.Errorf("got %d users; want 1", n)
		}
	})

	t.Run("filters by role", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users?role=student%3A", adminToken)
		ta.app.ServeHTTP(rec, req)
		if n := countUsers(t, rec); n != 1 {
			t.Errorf("got %d users; want 1", n)
		}
	})
}

func Test_userApi_detail(t *testing.T) {
	ta := setupUserApp(t)

	admin := createUser(t, ta.usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	usr := createUser(t, ta.usrRepo, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true)
	other := createUser(t, ta.usrRepo, "Other", "other1", "other@test.cd", "", []string{user.RoleStudent}, true)
	adminToken := getToken(t, admin)
	usrToken := getToken(t, usr)

	t.Run("user retrieves self", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+usr.ID, usrToken)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v; want 200; body %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("others hidden from non-admins", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, usrToken)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want 404", rec.Code)
		}
	})

	t.Run("admin retrieves anyone", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, adminToken)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("code = %v; want 200", rec.Code)
		}
	})

	t.Run("user updates own name", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Name: "Renamed"})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+usr.ID, usrToken, body)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want 200; body %s", rec.Code, rec.Body.String())
		}
		var got user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		if got.Name != "Renamed" {
			t.Errorf("Name = %q; want Renamed", got.Name)
		}
	})

	t.Run("user cannot change own roles", func(t *testing.T) {
		body := marchallObj(t, user.UpdateUser{Roles: []string{user.RoleAdmin}})
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+usr.ID, usrToken, body)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want 403", rec.Code)
		}
	})

	t.Run("admin cannot delete themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+admin.ID, adminToken)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %v; want 403", rec.Code)
		}
	})

	t.Run("admin deletes another user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+other.ID, adminToken)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; want 204; body %s", rec.Code, rec.Body.String())
		}
		req, rec = newAuthRequest(http.MethodGet, "/v1/users/"+other.ID, adminToken)
		ta.app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %v; want 404 after delete", rec.Code)
		}
	})
}
