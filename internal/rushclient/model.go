package rushclient

import "time"

// AttendanceStatus is the attendance lifecycle of a session as reported by the backend.
// not_applied_yet moves to either applied or ignored when an admin closes the session.
type AttendanceStatus string

const (
	AttendanceStatusNotAppliedYet AttendanceStatus = "not_applied_yet"
	AttendanceStatusApplied       AttendanceStatus = "applied"
	AttendanceStatusIgnored       AttendanceStatus = "ignored"
)

// Terminal reports whether no further transition is expected.
func (s AttendanceStatus) Terminal() bool {
	return s == AttendanceStatusApplied || s == AttendanceStatusIgnored
}

// AttendanceAppliedBy tells how the attendance of a session was applied.
type AttendanceAppliedBy string

const (
	AttendanceAppliedByUnknown     AttendanceAppliedBy = "unknown"
	AttendanceAppliedByUnspecified AttendanceAppliedBy = "unspecified"
	AttendanceAppliedByManual      AttendanceAppliedBy = "manual"
	AttendanceAppliedByForm        AttendanceAppliedBy = "form"
)

// User is a club member.
type User struct {
	ID           string
	Name         string
	ExternalName string
	// Generation is the cohort number, e.g. 9.5.
	Generation float64
	IsActive   bool
	Email      string
}

// Session is a club meeting that members attend.
type Session struct {
	ID                  string
	Name                string
	Description         string
	CreatedBy           string
	GoogleFormURI       string
	GoogleFormID        string
	CreatedAt           time.Time
	StartsAt            time.Time
	Score               int
	AttendanceStatus    AttendanceStatus
	AttendanceAppliedBy AttendanceAppliedBy
}

// HasForm reports whether an attendance form is attached.
func (s Session) HasForm() bool {
	return s.GoogleFormURI != ""
}

// Deletable reports whether the session can still be deleted.
// The backend locks sessions whose attendance was applied.
func (s Session) Deletable() bool {
	return s.AttendanceStatus != AttendanceStatusApplied
}

// UsesForm reports whether attendance is (or will be) taken through the form.
func (s Session) UsesForm() bool {
	return s.AttendanceAppliedBy == AttendanceAppliedByUnspecified || s.AttendanceAppliedBy == AttendanceAppliedByForm
}

// FormEditURL is the link to edit the attached Google form.
func (s Session) FormEditURL() string {
	if s.GoogleFormID == "" {
		return ""
	}
	return "https://docs.google.com/forms/d/" + s.GoogleFormID + "/edit"
}

// Attendance is one user's credited attendance for one session.
type Attendance struct {
	ID               string
	SessionID        string
	SessionName      string
	SessionScore     int
	SessionStartedAt time.Time
	UserID           string
	UserExternalName string
	UserGeneration   float64
	// UserJoinedAt is the form submission time.
	UserJoinedAt time.Time
	CreatedAt    time.Time
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T
	IsEnd      bool
	TotalCount int
}

// HalfYearSession is the session summary returned with the half-year attendance.
type HalfYearSession struct {
	ID        string
	Name      string
	StartedAt time.Time
}

// HalfYearUser is the user summary returned with the half-year attendance.
type HalfYearUser struct {
	ID         string
	Name       string
	Generation float64
}

// HalfYearAttendance holds everything needed to build the attendance matrix.
type HalfYearAttendance struct {
	Sessions    []HalfYearSession
	Users       []HalfYearUser
	Attendances []Attendance
}

// UserAuth identifies the caller of the backend.
type UserAuth struct {
	UserID string
	// Role is the backend role value: "", "unknown", "super_admin", "admin" or "member".
	Role string
}

// NewSession is the input of CreateSession.
type NewSession struct {
	Name        string
	Description string
	StartsAt    time.Time
	Score       int
}

// NewUser is the input of AddUser.
type NewUser struct {
	Name       string
	Generation float64
	IsActive   bool
	Email      string
}
