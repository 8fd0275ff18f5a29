package rushclient

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Wire types mirror the backend JSON. Every field is a pointer so that a missing
// field can be told apart from a zero value; validate tags reject missing fields
// and unknown enum values.

var validate = newValidator()

// userRoles are the role values GET /api/auth may report; '' means no role yet.
var userRoles = map[string]struct{}{
	"": {}, "unknown": {}, "super_admin": {}, "admin": {}, "member": {},
}

func newValidator() *validator.Validate {
	v := validator.New()
	// oneof cannot list the empty string.
	_ = v.RegisterValidation("userrole", func(fl validator.FieldLevel) bool {
		_, ok := userRoles[fl.Field().String()]
		return ok
	})
	return v
}

type wireUser struct {
	ID           *string  `json:"id" validate:"required"`
	Name         *string  `json:"name" validate:"required"`
	Generation   *float64 `json:"generation" validate:"required"`
	IsActive     *bool    `json:"is_active" validate:"required"`
	Email        *string  `json:"email" validate:"required"`
	ExternalName *string  `json:"external_name" validate:"required"`
}

type wireSession struct {
	ID                  *string `json:"id" validate:"required"`
	Name                *string `json:"name" validate:"required"`
	Description         *string `json:"description" validate:"required"`
	CreatedBy           *string `json:"created_by" validate:"required"`
	GoogleFormURI       *string `json:"google_form_uri"`
	GoogleFormID        *string `json:"google_form_id"`
	CreatedAt           *string `json:"created_at" validate:"required"`
	StartsAt            *string `json:"starts_at" validate:"required"`
	Score               *int    `json:"score" validate:"required"`
	// Form and attendance fields are only present in the admin view of a session.
	AttendanceStatus    *string `json:"attendance_status" validate:"omitempty,oneof=not_applied_yet applied ignored"`
	AttendanceAppliedBy *string `json:"attendance_applied_by" validate:"omitempty,oneof=unknown unspecified manual form"`
}

type wireAttendance struct {
	ID               *string  `json:"id" validate:"required"`
	SessionID        *string  `json:"session_id" validate:"required"`
	SessionName      *string  `json:"session_name" validate:"required"`
	SessionScore     *int     `json:"session_score" validate:"required"`
	SessionStartedAt *string  `json:"session_started_at" validate:"required"`
	UserID           *string  `json:"user_id" validate:"required"`
	UserExternalName *string  `json:"user_external_name" validate:"required"`
	UserGeneration   *float64 `json:"user_generation" validate:"required"`
	UserJoinedAt     *string  `json:"user_joined_at" validate:"required"`
	CreatedAt        *string  `json:"created_at" validate:"required"`
}

type wireUserPage struct {
	IsEnd      *bool       `json:"is_end" validate:"required"`
	Users      []*wireUser `json:"users" validate:"required,dive,required"`
	TotalCount *int        `json:"total_count" validate:"required"`
}

type wireSessionPage struct {
	IsEnd      *bool          `json:"is_end" validate:"required"`
	Sessions   []*wireSession `json:"sessions" validate:"required,dive,required"`
	TotalCount *int           `json:"total_count" validate:"required"`
}

type wireAttendances struct {
	Attendances []*wireAttendance `json:"attendances" validate:"required,dive,required"`
}

type wireHalfYearSession struct {
	ID        *string `json:"id" validate:"required"`
	Name      *string `json:"name" validate:"required"`
	StartedAt *string `json:"started_at" validate:"required"`
}

type wireHalfYearUser struct {
	ID         *string  `json:"id" validate:"required"`
	Name       *string  `json:"name" validate:"required"`
	Generation *float64 `json:"generation" validate:"required"`
}

type wireHalfYear struct {
	Sessions    []*wireHalfYearSession `json:"sessions" validate:"required,dive,required"`
	Users       []*wireHalfYearUser    `json:"users" validate:"required,dive,required"`
	Attendances []*wireAttendance      `json:"attendances" validate:"required,dive,required"`
}

type wireUserAuth struct {
	UserID   *string `json:"user_id" validate:"required"`
	UserRole *string `json:"user_role" validate:"required,userrole"`
}

type wireSignIn struct {
	Token *string `json:"token" validate:"required"`
}

type wireCreated struct {
	ID *string `json:"id" validate:"required"`
}

type wireFormURL struct {
	FormURL *string `json:"form_url" validate:"required"`
}

// parse unmarshals raw into v and validates the result.
func parse(entity string, raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return newDecodeError(entity, err)
	}
	if err := validate.Struct(v); err != nil {
		return newDecodeError(entity, err)
	}
	return nil
}

func parseTime(entity, field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, newDecodeError(entity, fmt.Errorf("%s: %w", field, err))
	}
	return t, nil
}

func (w *wireUser) toUser() User {
	return User{
		ID:           *w.ID,
		Name:         *w.Name,
		ExternalName: *w.ExternalName,
		Generation:   *w.Generation,
		IsActive:     *w.IsActive,
		Email:        *w.Email,
	}
}

func (w *wireSession) toSession() (Session, error) {
	createdAt, err := parseTime("session", "created_at", *w.CreatedAt)
	if err != nil {
		return Session{}, err
	}
	startsAt, err := parseTime("session", "starts_at", *w.StartsAt)
	if err != nil {
		return Session{}, err
	}
	return Session{
		ID:                  *w.ID,
		Name:                *w.Name,
		Description:         *w.Description,
		CreatedBy:           *w.CreatedBy,
		GoogleFormURI:       deref(w.GoogleFormURI, ""),
		GoogleFormID:        deref(w.GoogleFormID, ""),
		CreatedAt:           createdAt,
		StartsAt:            startsAt,
		Score:               *w.Score,
		AttendanceStatus:    AttendanceStatus(deref(w.AttendanceStatus, string(AttendanceStatusNotAppliedYet))),
		AttendanceAppliedBy: AttendanceAppliedBy(deref(w.AttendanceAppliedBy, string(AttendanceAppliedByUnknown))),
	}, nil
}

func deref(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}

func (w *wireAttendance) toAttendance() (Attendance, error) {
	startedAt, err := parseTime("attendance", "session_started_at", *w.SessionStartedAt)
	if err != nil {
		return Attendance{}, err
	}
	joinedAt, err := parseTime("attendance", "user_joined_at", *w.UserJoinedAt)
	if err != nil {
		return Attendance{}, err
	}
	createdAt, err := parseTime("attendance", "created_at", *w.CreatedAt)
	if err != nil {
		return Attendance{}, err
	}
	return Attendance{
		ID:               *w.ID,
		SessionID:        *w.SessionID,
		SessionName:      *w.SessionName,
		SessionScore:     *w.SessionScore,
		SessionStartedAt: startedAt,
		UserID:           *w.UserID,
		UserExternalName: *w.UserExternalName,
		UserGeneration:   *w.UserGeneration,
		UserJoinedAt:     joinedAt,
		CreatedAt:        createdAt,
	}, nil
}

func toAttendances(in []*wireAttendance) ([]Attendance, error) {
	out := make([]Attendance, 0, len(in))
	for _, w := range in {
		a, err := w.toAttendance()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// DecodeUser decodes a single user.
func DecodeUser(raw []byte) (User, error) {
	var w wireUser
	if err := parse("user", raw, &w); err != nil {
		return User{}, err
	}
	return w.toUser(), nil
}

// DecodeUserList decodes a bare JSON array of users.
func DecodeUserList(raw []byte) ([]User, error) {
	var ws []*wireUser
	if err := json.Unmarshal(raw, &ws); err != nil {
		return nil, newDecodeError("users", err)
	}
	if err := validate.Var(ws, "dive,required"); err != nil {
		return nil, newDecodeError("users", err)
	}
	users := make([]User, 0, len(ws))
	for _, w := range ws {
		if err := validate.Struct(w); err != nil {
			return nil, newDecodeError("users", err)
		}
		users = append(users, w.toUser())
	}
	return users, nil
}

// DecodeUserPage decodes a page of the user listing.
func DecodeUserPage(raw []byte) (Page[User], error) {
	var w wireUserPage
	if err := parse("user page", raw, &w); err != nil {
		return Page[User]{}, err
	}
	page := Page[User]{IsEnd: *w.IsEnd, TotalCount: *w.TotalCount, Items: make([]User, 0, len(w.Users))}
	for _, u := range w.Users {
		page.Items = append(page.Items, u.toUser())
	}
	return page, nil
}

// DecodeSession decodes a single session.
func DecodeSession(raw []byte) (Session, error) {
	var w wireSession
	if err := parse("session", raw, &w); err != nil {
		return Session{}, err
	}
	return w.toSession()
}

// DecodeSessionPage decodes a page of the session listing.
func DecodeSessionPage(raw []byte) (Page[Session], error) {
	var w wireSessionPage
	if err := parse("session page", raw, &w); err != nil {
		return Page[Session]{}, err
	}
	page := Page[Session]{IsEnd: *w.IsEnd, TotalCount: *w.TotalCount, Items: make([]Session, 0, len(w.Sessions))}
	for _, s := range w.Sessions {
		session, err := s.toSession()
		if err != nil {
			return Page[Session]{}, err
		}
		page.Items = append(page.Items, session)
	}
	return page, nil
}

// DecodeAttendances decodes {"attendances": [...]}.
func DecodeAttendances(raw []byte) ([]Attendance, error) {
	var w wireAttendances
	if err := parse("attendances", raw, &w); err != nil {
		return nil, err
	}
	return toAttendances(w.Attendances)
}

// DecodeHalfYearAttendance decodes the half-year attendance bundle.
func DecodeHalfYearAttendance(raw []byte) (HalfYearAttendance, error) {
	var w wireHalfYear
	if err := parse("half-year attendance", raw, &w); err != nil {
		return HalfYearAttendance{}, err
	}

	out := HalfYearAttendance{
		Sessions: make([]HalfYearSession, 0, len(w.Sessions)),
		Users:    make([]HalfYearUser, 0, len(w.Users)),
	}
	for _, s := range w.Sessions {
		startedAt, err := parseTime("half-year session", "started_at", *s.StartedAt)
		if err != nil {
			return HalfYearAttendance{}, err
		}
		out.Sessions = append(out.Sessions, HalfYearSession{ID: *s.ID, Name: *s.Name, StartedAt: startedAt})
	}
	for _, u := range w.Users {
		out.Users = append(out.Users, HalfYearUser{ID: *u.ID, Name: *u.Name, Generation: *u.Generation})
	}
	attendances, err := toAttendances(w.Attendances)
	if err != nil {
		return HalfYearAttendance{}, err
	}
	out.Attendances = attendances
	return out, nil
}

// DecodeUserAuth decodes the response of GET /api/auth.
func DecodeUserAuth(raw []byte) (UserAuth, error) {
	var w wireUserAuth
	if err := parse("auth", raw, &w); err != nil {
		return UserAuth{}, err
	}
	return UserAuth{UserID: *w.UserID, Role: *w.UserRole}, nil
}

func decodeSignIn(raw []byte) (string, error) {
	var w wireSignIn
	if err := parse("sign-in", raw, &w); err != nil {
		return "", err
	}
	return *w.Token, nil
}

func decodeCreated(raw []byte) (string, error) {
	var w wireCreated
	if err := parse("created", raw, &w); err != nil {
		return "", err
	}
	return *w.ID, nil
}

func decodeFormURL(raw []byte) (string, error) {
	var w wireFormURL
	if err := parse("attendance form", raw, &w); err != nil {
		return "", err
	}
	return *w.FormURL, nil
}
