package checkin

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Rutik-tetare29/Campushub-sub001/core"
	"github.com/Rutik-tetare29/Campushub-sub001/core/token"
	"github.com/Rutik-tetare29/Campushub-sub001/core/user"
)

var (
	// errors
	ErrSessionNotFound      = errors.New("check-in session not found")
	ErrSessionAlreadyActive = errors.New("an active check-in session already exists for this activity and date")
	ErrNotAllowed           = errors.New("only teachers and admins may manage check-in sessions")
	ErrNotSessionOwner      = errors.New("only the owning teacher or an admin may end this session")
)

type (
	// SessionRepository owns check-in session state. CreateSession must rely
	// on a storage-level uniqueness constraint over active (activity, date)
	// pairs and report a conflict as ErrSessionAlreadyActive; an application
	// existence check alone would race with concurrent creates. A session
	// past its expiry no longer holds the slot: CreateSession must release
	// it (relative to the new session's CreatedAt) instead of conflicting.
	SessionRepository interface {
		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSessionByID(ctx context.Context, id string) (Session, error)
		GetSessionByToken(ctx context.Context, tok string) (Session, error)
		// DeactivateSession is idempotent; deactivating twice is not an error.
		DeactivateSession(ctx context.Context, id string, at time.Time) error
		AddPresentStudent(ctx context.Context, sessionID, studentID string, at time.Time) error
		// DeactivateExpiredSessions flips lingering is_active flags on sessions
		// past their expiry. Storage hygiene only: readers already treat
		// expired sessions as closed.
		DeactivateExpiredSessions(ctx context.Context, before time.Time) (int64, error)
	}

	// RecordRepository owns attendance records. CreateRecord must perform an
	// atomic insert-or-conflict on (student, activity, date) and report a
	// duplicate as ErrAlreadyCheckedIn.
	RecordRepository interface {
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetRecord(ctx context.Context, studentID, activityID string, date time.Time) (Record, error)
		FilterRecords(ctx context.Context, filter RecordFilter) ([]Record, error)
	}

	// Directory looks up people for permission checks.
	Directory interface {
		GetUserByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		sessions SessionRepository
		records  RecordRepository
		dir      Directory
		codec    *token.Codec
		mailSvc  core.EmailService
		logger   core.Logger
		validate *validator.Validate
		conf     *core.Config
		nowFunc  func() time.Time // mockable
	}
)

func NewService(
	sessions SessionRepository,
	records RecordRepository,
	dir Directory,
	codec *token.Codec,
	mailSvc core.EmailService,
	logger core.Logger,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{
		sessions: sessions,
		records:  records,
		dir:      dir,
		codec:    codec,
		mailSvc:  mailSvc,
		logger:   logger,
		validate: validate,
		conf:     conf,
		nowFunc:  time.Now,
	}
}

// CreateSession opens a check-in session for an activity on a calendar date
// and mints its redemption token. At most one active session may exist per
// (activity, date); the storage constraint is the authority on that.
func (svc *Service) CreateSession(ctx context.Context, ns NewSession, teacherID string) (Session, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Session{}, err
	}

	teacher, err := svc.dir.GetUserByID(ctx, teacherID)
	if err != nil {
		if err == user.ErrNotFound {
			return Session{}, ErrNotAllowed
		}
		return Session{}, err
	}
	if !(teacher.IsTeacher() || teacher.IsAdmin()) {
		return Session{}, ErrNotAllowed
	}

	ttl := svc.conf.Attendance.DefaultSessionTTL
	if ns.ExpiryMinutes > 0 {
		ttl = time.Duration(ns.ExpiryMinutes) * time.Minute
	}
	if max := svc.conf.Attendance.MaxSessionTTL; ttl > max {
		ttl = max
	}

	now := svc.nowFunc().UTC()
	sess := Session{
		ID:         uuid.New().String(),
		ActivityID: ns.ActivityID,
		TeacherID:  teacher.ID,
		Date:       ns.day(),
		ExpiresAt:  now.Add(ttl),
		IsActive:   true,
		Geofence:   ns.fence(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	sess.Token, err = svc.codec.Encode(token.KindSessionCheckin, SessionPayload{
		SessionID:  sess.ID,
		ActivityID: sess.ActivityID,
		Date:       ns.Date,
	})
	if err != nil {
		return Session{}, err
	}

	sess, err = svc.sessions.CreateSession(ctx, sess)
	if err != nil {
		return Session{}, err
	}

	svc.notify(teacher, "Check-in session opened",
		fmt.Sprintf("A check-in session for activity %s on %s is open until %s.",
			sess.ActivityID, ns.Date, sess.ExpiresAt.Format(time.RFC3339)))
	return sess, nil
}

func (svc *Service) GetSessionByID(ctx context.Context, id string) (Session, error) {
	return svc.sessions.GetSessionByID(ctx, id)
}

func (svc *Service) GetSessionByToken(ctx context.Context, tok string) (Session, error) {
	return svc.sessions.GetSessionByToken(ctx, tok)
}

// EndSession deactivates a session for future redemptions. Only the owning
// teacher or an admin may do so; ending an already-ended session is a no-op.
func (svc *Service) EndSession(ctx context.Context, sessionID, requesterID string) error {
	sess, err := svc.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return err
	}

	requester, err := svc.dir.GetUserByID(ctx, requesterID)
	if err != nil {
		if err == user.ErrNotFound {
			return ErrNotSessionOwner
		}
		return err
	}
	if requester.ID != sess.TeacherID && !requester.IsAdmin() {
		return ErrNotSessionOwner
	}

	return svc.sessions.DeactivateSession(ctx, sess.ID, svc.nowFunc().UTC())
}

// ArchiveExpired deactivates sessions whose expiry has passed. Correctness
// never depends on this running: Session.Open checks expiry at read time.
func (svc *Service) ArchiveExpired(ctx context.Context) (int64, error) {
	return svc.sessions.DeactivateExpiredSessions(ctx, svc.nowFunc().UTC())
}

// notify dispatches a fire-and-forget notification; dispatch failures must
// never fail the primary operation.
func (svc *Service) notify(usr user.User, subject, body string) {
	if usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: subject,
		BodyStr: body,
	})
}
