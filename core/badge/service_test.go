package badge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Rutik-tetare29/Campushub-sub001/core"
	"github.com/Rutik-tetare29/Campushub-sub001/core/token"
	"github.com/Rutik-tetare29/Campushub-sub001/core/user"
)

type fakeRepo struct {
	mu    sync.Mutex
	table map[string]Badge
}

func (f *fakeRepo) UpsertBadge(_ context.Context, b Badge) (Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.table[b.PersonID] = b
	return b, nil
}

func (f *fakeRepo) GetBadgeByPersonID(_ context.Context, personID string) (Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.table[personID]; ok {
		return b, nil
	}
	return Badge{}, ErrBadgeNotFound
}

type fakeDirectory map[string]user.User

func (f fakeDirectory) GetUserByID(_ context.Context, id string) (user.User, error) {
	if usr, ok := f[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (f *fakeMailer) SendMessages(messages ...*core.EmailMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, messages...)
}

var refTime = time.Date(2021, 3, 15, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *fakeMailer) {
	t.Helper()
	conf := &core.Config{
		AppName:    "CampusHub",
		SecretKey:  []byte("s3cr3t"),
		Attendance: core.AttendanceConfig{BadgeValidity: 365 * 24 * time.Hour},
	}
	dir := fakeDirectory{
		"p-1": {ID: "p-1", Name: "Person One", Email: "p1@test.cd", Roles: []string{user.RoleStudent}},
		"p-2": {ID: "p-2", Name: "Person Two", Roles: []string{user.RoleStudent}},
	}
	mailer := &fakeMailer{}
	svc := NewService(&fakeRepo{table: make(map[string]Badge)}, dir, token.NewCodec(conf.SecretKey), mailer, conf)
	svc.nowFunc = func() time.Time { return refTime }
	return svc, mailer
}

func TestService_Issue(t *testing.T) {
	svc, mailer := setup(t)
	ctx := context.Background()

	t.Run("unknown person", func(t *testing.T) {
		if _, err := svc.Issue(ctx, "nope", "a-1", 0); err != user.ErrNotFound {
			t.Errorf("err = %v; want user.ErrNotFound", err)
		}
	})

	t.Run("default validity", func(t *testing.T) {
		b, err := svc.Issue(ctx, "p-1", "a-1", 0)
		if err != nil {
			t.Fatalf("Issue() failed: %v", err)
		}
		if want := refTime.Add(365 * 24 * time.Hour); !b.ExpiresAt.Equal(want) {
			t.Errorf("ExpiresAt = %v; want %v", b.ExpiresAt, want)
		}
		if b.IssuedBy != "a-1" {
			t.Errorf("IssuedBy = %q; want a-1", b.IssuedBy)
		}
		if len(mailer.sent) != 1 {
			t.Fatalf("sent %d notifications; want 1", len(mailer.sent))
		}
		if !mailer.sent[0].HasAttachments() {
			t.Error("badge notification has no QR attachment")
		}
	})

	t.Run("no email, no notification", func(t *testing.T) {
		before := len(mailer.sent)
		if _, err := svc.Issue(ctx, "p-2", "a-1", 0); err != nil {
			t.Fatalf("Issue() failed: %v", err)
		}
		if len(mailer.sent) != before {
			t.Error("notification sent for person without email")
		}
	})

	t.Run("re-issue replaces", func(t *testing.T) {
		first, err := svc.Issue(ctx, "p-1", "a-1", time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		second, err := svc.Issue(ctx, "p-1", "a-2", 2*time.Hour)
		if err != nil {
			t.Fatal(err)
		}
		if first.Token == second.Token {
			t.Error("re-issued badge kept the same token")
		}
		got, err := svc.GetByPersonID(ctx, "p-1")
		if err != nil {
			t.Fatal(err)
		}
		if got.Token != second.Token || got.IssuedBy != "a-2" {
			t.Errorf("stored badge = %+v; want the re-issued one", got)
		}
	})
}

func TestService_Verify(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	b, err := svc.Issue(ctx, "p-1", "a-1", 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("valid badge", func(t *testing.T) {
		v, err := svc.Verify(b.Token)
		if err != nil {
			t.Fatalf("Verify() failed: %v", err)
		}
		if v.PersonID != "p-1" {
			t.Errorf("PersonID = %q; want p-1", v.PersonID)
		}
		if !v.IssuedAt.Equal(refTime) {
			t.Errorf("IssuedAt = %v; want %v", v.IssuedAt, refTime)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if _, err := svc.Verify("not-a-token"); err != ErrInvalidToken {
			t.Errorf("err = %v; want ErrInvalidToken", err)
		}
	})

	t.Run("wrong token kind", func(t *testing.T) {
		tok, err := token.NewCodec([]byte("s3cr3t")).Encode(token.KindSessionCheckin, map[string]string{"session_id": "x"})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Verify(tok); err != ErrWrongTokenKind {
			t.Errorf("err = %v; want ErrWrongTokenKind", err)
		}
	})

	t.Run("forged signature", func(t *testing.T) {
		other, err := token.NewCodec([]byte("other-key")).Encode(token.KindIdentityBadge, Payload{PersonID: "p-1"})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Verify(other); err != ErrInvalidToken {
			t.Errorf("err = %v; want ErrInvalidToken", err)
		}
	})

	t.Run("expired badge", func(t *testing.T) {
		svc.nowFunc = func() time.Time { return refTime.Add(25 * time.Hour) }
		defer func() { svc.nowFunc = func() time.Time { return refTime } }()

		if _, err := svc.Verify(b.Token); err != ErrExpired {
			t.Errorf("err = %v; want ErrExpired", err)
		}
	})
}

func TestService_IssueBatch(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	results := svc.IssueBatch(ctx, []string{"p-1", "nope", "p-2"}, "a-1", 0)
	if len(results) != 3 {
		t.Fatalf("got %d results; want 3", len(results))
	}
	if results[0].Err != nil || results[0].Badge == nil {
		t.Errorf("p-1: %+v; want issued badge", results[0])
	}
	if results[1].Err != user.ErrNotFound || results[1].Badge != nil {
		t.Errorf("nope: %+v; want user.ErrNotFound", results[1])
	}
	if results[2].Err != nil || results[2].Badge == nil {
		t.Errorf("p-2: %+v; want issued badge", results[2])
	}
}
