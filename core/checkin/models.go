package checkin

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Rutik-tetare29/Campushub-sub001/core"
)

// Attendance statuses
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusExcused = "excused"
)

// Recording methods
const (
	MethodScanned   = "scanned"
	MethodManual    = "manual"
	MethodAutomatic = "automatic"
)

// Session is a time-boxed, teacher-owned window during which a single token
// can be redeemed by students to record presence.
type Session struct {
	ID         string    `json:"id"`
	ActivityID string    `json:"activity_id"`
	TeacherID  string    `json:"teacher_id"`
	Date       time.Time `json:"date"` // calendar day, UTC midnight
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsActive   bool      `json:"is_active"`
	Geofence   *Geofence `json:"geofence,omitempty"`
	// PresentIDs is a best-effort projection of checked-in students; the
	// attendance records are authoritative.
	PresentIDs []string  `json:"present_ids"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Open reports whether the session still accepts redemptions. A session past
// its expiry is closed for every reader even if IsActive was never flipped.
func (s Session) Open(now time.Time) bool {
	return s.IsActive && !s.Expired(now)
}

// Record is one student's attendance for one activity on one calendar date.
// At most one record may exist per (student, activity, date); the storage
// layer enforces this with a unique constraint.
type Record struct {
	ID         string      `json:"id"`
	StudentID  string      `json:"student_id"`
	ActivityID string      `json:"activity_id"`
	Date       time.Time   `json:"date"`
	Status     string      `json:"status"`
	Method     string      `json:"method"`
	RecordedBy string      `json:"recorded_by"`
	RecordedAt time.Time   `json:"recorded_at"` // UTC
	Location   *Coordinate `json:"location,omitempty"`
}

// SessionPayload is the token payload variant for kind "session-checkin".
type SessionPayload struct {
	SessionID  string `json:"session_id"`
	ActivityID string `json:"activity_id"`
	Date       string `json:"date"`
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewSession contains information needed to open a check-in session.
type NewSession struct {
	ActivityID    string       `json:"activity_id" validate:"required"`
	Date          string       `json:"date" validate:"required,datetime=2006-01-02"`
	ExpiryMinutes int          `json:"expiry_minutes" validate:"omitempty,min=1"`
	Geofence      *NewGeofence `json:"geofence,omitempty"`
}

type NewGeofence struct {
	Lat          float64 `json:"lat" validate:"latitude_deg"`
	Lng          float64 `json:"lng" validate:"longitude_deg"`
	RadiusMeters float64 `json:"radius_meters" validate:"required,gt=0"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.ActivityID = core.CleanString(ns.ActivityID)
	ns.Date = core.CleanString(ns.Date)
	return validate.Struct(ns)
}

func (ns NewSession) day() time.Time {
	day, _ := time.ParseInLocation("2006-01-02", ns.Date, time.UTC)
	return day
}

func (ns NewSession) fence() *Geofence {
	if ns.Geofence == nil {
		return nil
	}
	return &Geofence{
		Center:       Coordinate{Lat: ns.Geofence.Lat, Lng: ns.Geofence.Lng},
		RadiusMeters: ns.Geofence.RadiusMeters,
	}
}

// NewRecord contains information needed to record attendance manually.
type NewRecord struct {
	StudentID  string `json:"student_id" validate:"required"`
	ActivityID string `json:"activity_id" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	Status     string `json:"status" validate:"required,oneof=present absent late excused"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.ActivityID = core.CleanString(nr.ActivityID)
	nr.Date = core.CleanString(nr.Date)
	return validate.Struct(nr)
}

func (nr NewRecord) day() time.Time {
	day, _ := time.ParseInLocation("2006-01-02", nr.Date, time.UTC)
	return day
}

// FilterDate is a calendar day bound from a query parameter. It only accepts
// the 2006-01-02 format the rest of the attendance API speaks.
type FilterDate struct {
	time.Time
}

func (d *FilterDate) UnmarshalParam(param string) error {
	day, err := time.ParseInLocation("2006-01-02", param, time.UTC)
	if err != nil {
		return err
	}
	d.Time = day
	return nil
}

// RecordFilter narrows attendance record queries; zero fields are ignored.
type RecordFilter struct {
	StudentID  string     `query:"student"`
	ActivityID string     `query:"activity"`
	DateFrom   FilterDate `query:"date_from"`
	DateTo     FilterDate `query:"date_to"`
}

func (rf *RecordFilter) IsEmpty() bool {
	return rf.StudentID == "" && rf.ActivityID == "" && rf.DateFrom.IsZero() && rf.DateTo.IsZero()
}
