package checkin

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Rutik-tetare29/Campushub-sub001/core/token"
	"github.com/Rutik-tetare29/Campushub-sub001/core/user"
)

var (
	// errors
	ErrInvalidToken     = errors.New("invalid check-in token")
	ErrRecordNotFound   = errors.New("attendance record not found")
	ErrWrongTokenKind   = errors.New("token is not a check-in token")
	ErrSessionClosed    = errors.New("check-in session has expired or been closed")
	ErrLocationRequired = errors.New("this session requires a location to check in")
	// ErrAlreadyCheckedIn is the expected idempotent outcome of a repeated
	// redemption, not a failure; it is never escalated to an error log.
	ErrAlreadyCheckedIn = errors.New("already checked in")
)

// OutOfRangeError reports a redemption attempted outside the session
// geofence, with the measured distance for transparency.
type OutOfRangeError struct {
	DistanceMeters float64
	RadiusMeters   float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("location is %.0fm from the session center, allowed radius is %.0fm",
		e.DistanceMeters, e.RadiusMeters)
}

// Redeem verifies a scanned token and records the student present. Each call
// is one attempt with a terminal outcome; no partial state survives a failed
// attempt. The session is re-read on every attempt, never cached, so a stale
// IsActive/ExpiresAt snapshot cannot be acted on.
func (svc *Service) Redeem(ctx context.Context, rawToken, studentID string, loc *Coordinate) (Record, error) {
	env, err := svc.codec.Decode(rawToken)
	if err != nil {
		return Record{}, ErrInvalidToken
	}
	if env.Kind != token.KindSessionCheckin {
		return Record{}, ErrWrongTokenKind
	}

	sess, err := svc.sessions.GetSessionByToken(ctx, rawToken)
	if err != nil {
		return Record{}, err
	}
	if !sess.Open(svc.nowFunc().UTC()) {
		return Record{}, ErrSessionClosed
	}

	if sess.Geofence != nil {
		if loc == nil {
			return Record{}, ErrLocationRequired
		}
		if dist := DistanceMeters(*loc, sess.Geofence.Center); dist > sess.Geofence.RadiusMeters {
			return Record{}, &OutOfRangeError{
				DistanceMeters: dist,
				RadiusMeters:   sess.Geofence.RadiusMeters,
			}
		}
	}

	now := svc.nowFunc().UTC()
	rec := Record{
		ID:         uuid.New().String(),
		StudentID:  studentID,
		ActivityID: sess.ActivityID,
		Date:       sess.Date,
		Status:     StatusPresent,
		Method:     MethodScanned,
		RecordedBy: studentID,
		RecordedAt: now,
		Location:   loc,
	}

	rec, err = svc.records.CreateRecord(ctx, rec)
	if err != nil {
		if err == ErrAlreadyCheckedIn {
			// repeated scans report the committed record; the count stays 1
			if existing, getErr := svc.records.GetRecord(ctx, studentID, sess.ActivityID, sess.Date); getErr == nil {
				return existing, ErrAlreadyCheckedIn
			}
			return Record{}, ErrAlreadyCheckedIn
		}
		return Record{}, err
	}

	// best-effort projection; the attendance table stays authoritative
	if err := svc.sessions.AddPresentStudent(ctx, sess.ID, studentID, now); err != nil {
		svc.logger.Warn(fmt.Sprintf("updating present-set for session %s: %v", sess.ID, err), err)
	}

	if student, err := svc.dir.GetUserByID(ctx, studentID); err == nil {
		svc.notify(student, "Checked in",
			fmt.Sprintf("You are marked present for activity %s on %s.",
				sess.ActivityID, sess.Date.Format("2006-01-02")))
	}
	return rec, nil
}

// RecordManual records attendance on behalf of a student, without a token.
// It goes through the same atomic insert as scanned check-ins, so the
// one-record-per-(student, activity, date) constraint holds across methods.
func (svc *Service) RecordManual(ctx context.Context, nr NewRecord, recorderID string) (Record, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return Record{}, err
	}

	recorder, err := svc.dir.GetUserByID(ctx, recorderID)
	if err != nil {
		if err == user.ErrNotFound {
			return Record{}, ErrNotAllowed
		}
		return Record{}, err
	}
	if !(recorder.IsTeacher() || recorder.IsAdmin()) {
		return Record{}, ErrNotAllowed
	}

	rec := Record{
		ID:         uuid.New().String(),
		StudentID:  nr.StudentID,
		ActivityID: nr.ActivityID,
		Date:       nr.day(),
		Status:     nr.Status,
		Method:     MethodManual,
		RecordedBy: recorder.ID,
		RecordedAt: svc.nowFunc().UTC(),
	}
	return svc.records.CreateRecord(ctx, rec)
}

// FilterRecords lists attendance records matching the filter.
func (svc *Service) FilterRecords(ctx context.Context, filter RecordFilter) ([]Record, error) {
	return svc.records.FilterRecords(ctx, filter)
}
