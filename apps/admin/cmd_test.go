package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Rutik-tetare29/Campushub-sub001/core"
	"github.com/Rutik-tetare29/Campushub-sub001/core/badge"
	"github.com/Rutik-tetare29/Campushub-sub001/core/checkin"
	"github.com/Rutik-tetare29/Campushub-sub001/core/token"
	"github.com/Rutik-tetare29/Campushub-sub001/core/user"
	emailsvc "github.com/Rutik-tetare29/Campushub-sub001/services/email"
	inmemdb "github.com/Rutik-tetare29/Campushub-sub001/storage/database/inmem"
)

type testEnv struct {
	cli      *commandLine
	db       *inmemdb.DB
	sessRepo checkin.SessionRepository
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	conf := &core.Config{
		AppName:   "CampusHub",
		TestMode:  true,
		SecretKey: []byte("secret"),
		Attendance: core.AttendanceConfig{
			DefaultSessionTTL: 10 * time.Minute,
			MaxSessionTTL:     4 * time.Hour,
			BadgeValidity:     365 * 24 * time.Hour,
		},
	}

	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator(enLocale.Locale())
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	usrRepo := inmemdb.NewUserRepository(db)
	sessRepo := inmemdb.NewSessionRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	codec := token.NewCodec(conf.SecretKey)

	cli := &commandLine{
		usrRepo: usrRepo,
		checkinSvc: checkin.NewService(
			sessRepo,
			inmemdb.NewRecordRepository(db),
			usrRepo, codec, mailSvc, nopLogger{}, validate, conf,
		),
		badgeSvc: badge.NewService(inmemdb.NewBadgeRepository(db), usrRepo, codec, mailSvc, conf),
	}
	return &testEnv{cli: cli, db: db, sessRepo: sessRepo}
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func createUser(t *testing.T, repo user.Repository, name, uname, email, pwd string, roles []string, isActive bool) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  isActive,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("SetPassword() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	env := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "activity", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := env.cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	env := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "missing email", args: []string{"adduser", "-username", "boss1"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "boss1", "-email", "boss@test.cd"}, wantErr: errHelp},
		{name: "creates user", args: []string{"adduser", "-username", "boss1", "-email", "boss@test.cd"}, extra: extra{pwd: "mdr"}},
		{name: "creates admin", args: []string{"adduser", "-username", "chief1", "-email", "chief@test.cd", "-admin"}, extra: extra{pwd: "mdr"}},
		{name: "updates existing", args: []string{"adduser", "-username", "boss1", "-email", "boss@test.cd", "-admin"}, extra: extra{pwd: "lol"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := env.cli.run(args); err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	usr, err := env.cli.usrRepo.GetUserByUsername(context.Background(), "boss1")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed: %v", err)
	}
	if !usr.IsAdmin() {
		t.Errorf("Roles = %v; want admin after update", usr.Roles)
	}
	if err := usr.CheckPassword("lol"); err != nil {
		t.Errorf("CheckPassword() failed: %v", err)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	env := setup(t)

	usr := createUser(t, env.cli.usrRepo, "User", "awe123", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := env.cli.run(args)
			if err == nil {
				refreshedUsr, err := env.cli.usrRepo.GetUserByID(context.Background(), usr.ID)
				if err != nil {
					t.Fatalf("GetUserByID() failed: %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_issueBadges(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	admin := createUser(t, env.cli.usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	s1 := createUser(t, env.cli.usrRepo, "One", "one111", "one@test.cd", "", []string{user.RoleStudent}, true)
	s2 := createUser(t, env.cli.usrRepo, "Two", "two222", "two@test.cd", "", []string{user.RoleStudent}, true)
	createUser(t, env.cli.usrRepo, "Gone", "gone11", "gone@test.cd", "", []string{user.RoleStudent}, false)
	student := createUser(t, env.cli.usrRepo, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true)

	t.Run("issuer required", func(t *testing.T) {
		if err := env.cli.run([]string{"admin", "issuebadges", "-people", s1.ID}); err != errHelp {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
		}
	})

	t.Run("unknown issuer", func(t *testing.T) {
		err := env.cli.run([]string{"admin", "issuebadges", "-issuer", "ghost1", "-people", s1.ID})
		if err != user.ErrNotFound {
			t.Errorf("cli.run() error = %v, wantErr %v", err, user.ErrNotFound)
		}
	})

	t.Run("issuer must be admin", func(t *testing.T) {
		err := env.cli.run([]string{"admin", "issuebadges", "-issuer", student.Username, "-people", s1.ID})
		if err != errIssuerNotAdmin {
			t.Errorf("cli.run() error = %v, wantErr %v", err, errIssuerNotAdmin)
		}
	})

	t.Run("issues for listed people", func(t *testing.T) {
		err := env.cli.run([]string{"admin", "issuebadges", "-issuer", admin.Username, "-people", s1.ID + ",ghost"})
		if err != nil {
			t.Fatalf("cli.run() failed: %v", err)
		}
		b, err := env.cli.badgeSvc.GetByPersonID(ctx, s1.ID)
		if err != nil {
			t.Fatalf("GetByPersonID() failed: %v", err)
		}
		if b.IssuedBy != admin.ID {
			t.Errorf("IssuedBy = %q; want %q", b.IssuedBy, admin.ID)
		}
		if _, err := env.cli.badgeSvc.GetByPersonID(ctx, "ghost"); err != badge.ErrBadgeNotFound {
			t.Errorf("ghost badge error = %v; want %v", err, badge.ErrBadgeNotFound)
		}
	})

	t.Run("issues for all active students", func(t *testing.T) {
		err := env.cli.run([]string{"admin", "issuebadges", "-issuer", admin.Email, "-all-students", "-valid-days", "30"})
		if err != nil {
			t.Fatalf("cli.run() failed: %v", err)
		}
		for _, s := range []user.User{s1, s2, student} {
			if _, err := env.cli.badgeSvc.GetByPersonID(ctx, s.ID); err != nil {
				t.Errorf("no badge for %s: %v", s.Username, err)
			}
		}
		if _, err := env.cli.badgeSvc.GetByPersonID(ctx, admin.ID); err != badge.ErrBadgeNotFound {
			t.Errorf("admin badge error = %v; want %v", err, badge.ErrBadgeNotFound)
		}
	})
}

func Test_commandLine_expireSessions(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	now := time.Now().UTC()

	stale := checkin.Session{
		ID:         uuid.New().String(),
		ActivityID: "math-101",
		TeacherID:  "t-1",
		Date:       time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Token:      "stale-token",
		ExpiresAt:  now.Add(-time.Hour),
		IsActive:   true,
		CreatedAt:  now.Add(-2 * time.Hour),
		UpdatedAt:  now.Add(-2 * time.Hour),
	}
	if _, err := env.sessRepo.CreateSession(ctx, stale); err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}

	if err := env.cli.run([]string{"admin", "expiresessions"}); err != nil {
		t.Fatalf("cli.run() failed: %v", err)
	}

	sess, err := env.sessRepo.GetSessionByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("GetSessionByID() failed: %v", err)
	}
	if sess.IsActive {
		t.Error("expired session still active")
	}
}
