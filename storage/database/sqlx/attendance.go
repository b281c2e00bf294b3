package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/Rutik-tetare29/Campushub-sub001/core/checkin"
)

const attendanceKeyConstraint = "attendance_student_activity_date_key"

type recordRepository struct {
	db *sqlx.DB
}

var _ checkin.RecordRepository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(db *sqlx.DB) *recordRepository {
	return &recordRepository{db: db}
}

type recordRow struct {
	ID         string       `db:"id"`
	StudentID  string       `db:"student_id"`
	ActivityID string       `db:"activity_id"`
	Date       time.Time    `db:"date"`
	Status     string       `db:"status"`
	Method     string       `db:"method"`
	RecordedBy string       `db:"recorded_by"`
	RecordedAt time.Time    `db:"recorded_at"`
	Lat        null.Float64 `db:"lat"`
	Lng        null.Float64 `db:"lng"`
}

func (repo recordRepository) toRow(rec checkin.Record) recordRow {
	row := recordRow{
		ID:         rec.ID,
		StudentID:  rec.StudentID,
		ActivityID: rec.ActivityID,
		Date:       rec.Date,
		Status:     rec.Status,
		Method:     rec.Method,
		RecordedBy: rec.RecordedBy,
		RecordedAt: rec.RecordedAt.UTC(),
	}
	if rec.Location != nil {
		row.Lat = null.Float64From(rec.Location.Lat)
		row.Lng = null.Float64From(rec.Location.Lng)
	}
	return row
}

func (repo recordRepository) fromRow(row recordRow) checkin.Record {
	rec := checkin.Record{
		ID:         row.ID,
		StudentID:  row.StudentID,
		ActivityID: row.ActivityID,
		Date:       row.Date,
		Status:     row.Status,
		Method:     row.Method,
		RecordedBy: row.RecordedBy,
		RecordedAt: row.RecordedAt,
	}
	if row.Lat.Valid && row.Lng.Valid {
		rec.Location = &checkin.Coordinate{Lat: row.Lat.Float64, Lng: row.Lng.Float64}
	}
	return rec
}

// CreateRecord inserts exactly one attendance record per (student, activity,
// date); the unique constraint resolves concurrent redemption, a conflict is
// reported as checkin.ErrAlreadyCheckedIn.
func (repo recordRepository) CreateRecord(ctx context.Context, rec checkin.Record) (checkin.Record, error) {
	const query = `
		INSERT INTO attendance (
			id, student_id, activity_id, date, status, method, recorded_by, recorded_at, lat, lng
		) VALUES (
			:id, :student_id, :activity_id, :date, :status, :method, :recorded_by, :recorded_at, :lat, :lng
		)`
	if _, err := repo.db.NamedExecContext(ctx, query, repo.toRow(rec)); err != nil {
		if isUniqueViolation(err, attendanceKeyConstraint) {
			return checkin.Record{}, checkin.ErrAlreadyCheckedIn
		}
		return checkin.Record{}, errors.Wrap(err, "inserting attendance record")
	}
	return rec, nil
}

func (repo recordRepository) GetRecord(ctx context.Context, studentID, activityID string, date time.Time) (checkin.Record, error) {
	const query = `SELECT * FROM attendance WHERE student_id = $1 AND activity_id = $2 AND date = $3`
	var row recordRow
	if err := repo.db.GetContext(ctx, &row, query, studentID, activityID, date); err != nil {
		if err == sql.ErrNoRows {
			return checkin.Record{}, checkin.ErrRecordNotFound
		}
		return checkin.Record{}, errors.Wrap(err, "getting attendance record")
	}
	return repo.fromRow(row), nil
}

func (repo recordRepository) FilterRecords(ctx context.Context, filter checkin.RecordFilter) ([]checkin.Record, error) {
	query := `SELECT * FROM attendance`
	var (
		conds []string
		args  []interface{}
	)
	addCond := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.StudentID != "" {
		addCond("student_id = $%d", filter.StudentID)
	}
	if filter.ActivityID != "" {
		addCond("activity_id = $%d", filter.ActivityID)
	}
	if !filter.DateFrom.IsZero() {
		addCond("date >= $%d", filter.DateFrom.Time)
	}
	if !filter.DateTo.IsZero() {
		addCond("date <= $%d", filter.DateTo.Time)
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY recorded_at DESC"

	var rows []recordRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "filtering attendance records")
	}
	recs := make([]checkin.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, repo.fromRow(row))
	}
	return recs, nil
}
