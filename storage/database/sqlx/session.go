package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Rutik-tetare29/Campushub-sub001/core/checkin"
)

const sessionActiveConstraint = "checkin_session_active_key"

type sessionRepository struct {
	db *sqlx.DB
}

var _ checkin.SessionRepository = (*sessionRepository)(nil) // interface compliance check

func NewSessionRepository(db *sqlx.DB) *sessionRepository {
	return &sessionRepository{db: db}
}

type sessionRow struct {
	ID          string         `db:"id"`
	ActivityID  string         `db:"activity_id"`
	TeacherID   string         `db:"teacher_id"`
	Date        time.Time      `db:"date"`
	Token       string         `db:"token"`
	ExpiresAt   time.Time      `db:"expires_at"`
	IsActive    bool           `db:"is_active"`
	FenceLat    null.Float64   `db:"fence_lat"`
	FenceLng    null.Float64   `db:"fence_lng"`
	FenceRadius null.Float64   `db:"fence_radius"`
	PresentIDs  pq.StringArray `db:"present_ids"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func (repo sessionRepository) toRow(sess checkin.Session) sessionRow {
	row := sessionRow{
		ID:         sess.ID,
		ActivityID: sess.ActivityID,
		TeacherID:  sess.TeacherID,
		Date:       sess.Date,
		Token:      sess.Token,
		ExpiresAt:  sess.ExpiresAt.UTC(),
		IsActive:   sess.IsActive,
		PresentIDs: pq.StringArray(sess.PresentIDs),
		CreatedAt:  sess.CreatedAt.UTC(),
		UpdatedAt:  sess.UpdatedAt.UTC(),
	}
	if f := sess.Geofence; f != nil {
		row.FenceLat = null.Float64From(f.Center.Lat)
		row.FenceLng = null.Float64From(f.Center.Lng)
		row.FenceRadius = null.Float64From(f.RadiusMeters)
	}
	if row.PresentIDs == nil {
		row.PresentIDs = pq.StringArray{}
	}
	return row
}

func (repo sessionRepository) fromRow(row sessionRow) checkin.Session {
	sess := checkin.Session{
		ID:         row.ID,
		ActivityID: row.ActivityID,
		TeacherID:  row.TeacherID,
		Date:       row.Date,
		Token:      row.Token,
		ExpiresAt:  row.ExpiresAt,
		IsActive:   row.IsActive,
		PresentIDs: []string(row.PresentIDs),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
	if row.FenceRadius.Valid {
		sess.Geofence = &checkin.Geofence{
			Center: checkin.Coordinate{
				Lat: row.FenceLat.Float64,
				Lng: row.FenceLng.Float64,
			},
			RadiusMeters: row.FenceRadius.Float64,
		}
	}
	return sess
}

func (repo sessionRepository) CreateSession(ctx context.Context, sess checkin.Session) (checkin.Session, error) {
	// an expired session may still hold the active (activity, date) slot if
	// no sweep has run; release it before claiming
	const release = `
		UPDATE checkin_session SET is_active = false, updated_at = $3
		WHERE activity_id = $1 AND date = $2 AND is_active AND expires_at < $3`
	if _, err := repo.db.ExecContext(ctx, release, sess.ActivityID, sess.Date, sess.CreatedAt.UTC()); err != nil {
		return checkin.Session{}, errors.Wrap(err, "releasing expired check-in session")
	}

	const query = `
		INSERT INTO checkin_session (
			id, activity_id, teacher_id, date, token, expires_at, is_active,
			fence_lat, fence_lng, fence_radius, present_ids, created_at, updated_at
		) VALUES (
			:id, :activity_id, :teacher_id, :date, :token, :expires_at, :is_active,
			:fence_lat, :fence_lng, :fence_radius, :present_ids, :created_at, :updated_at
		)`
	if _, err := repo.db.NamedExecContext(ctx, query, repo.toRow(sess)); err != nil {
		if isUniqueViolation(err, sessionActiveConstraint) {
			return checkin.Session{}, checkin.ErrSessionAlreadyActive
		}
		return checkin.Session{}, errors.Wrap(err, "inserting check-in session")
	}
	return sess, nil
}

func (repo sessionRepository) GetSessionByID(ctx context.Context, id string) (checkin.Session, error) {
	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM checkin_session WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return checkin.Session{}, checkin.ErrSessionNotFound
		}
		return checkin.Session{}, errors.Wrap(err, "getting check-in session by id")
	}
	return repo.fromRow(row), nil
}

func (repo sessionRepository) GetSessionByToken(ctx context.Context, tok string) (checkin.Session, error) {
	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM checkin_session WHERE token = $1`, tok); err != nil {
		if err == sql.ErrNoRows {
			return checkin.Session{}, checkin.ErrSessionNotFound
		}
		return checkin.Session{}, errors.Wrap(err, "getting check-in session by token")
	}
	return repo.fromRow(row), nil
}

func (repo sessionRepository) DeactivateSession(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE checkin_session SET is_active = false, updated_at = $2 WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, query, id, at.UTC())
	if err != nil {
		return errors.Wrap(err, "deactivating check-in session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return checkin.ErrSessionNotFound
	}
	return nil
}

func (repo sessionRepository) AddPresentStudent(ctx context.Context, sessionID, studentID string, at time.Time) error {
	const query = `
		UPDATE checkin_session
		SET present_ids = array_append(present_ids, $2), updated_at = $3
		WHERE id = $1 AND NOT ($2 = ANY(present_ids))`
	if _, err := repo.db.ExecContext(ctx, query, sessionID, studentID, at.UTC()); err != nil {
		return errors.Wrap(err, "adding student to present-set")
	}
	return nil
}

func (repo sessionRepository) DeactivateExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	const query = `UPDATE checkin_session SET is_active = false, updated_at = $1 WHERE is_active AND expires_at < $1`
	res, err := repo.db.ExecContext(ctx, query, before.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "deactivating expired sessions")
	}
	return res.RowsAffected()
}
