package rushclient

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// ListSessions returns one page of sessions, newest first.
func (c *Client) ListSessions(ctx context.Context, offset, pageSize int) (Page[Session], error) {
	raw, err := c.do(ctx, "list sessions", http.MethodGet, "/sessions", pageQuery(offset, pageSize), nil)
	if err != nil {
		return Page[Session]{}, err
	}
	return DecodeSessionPage(raw)
}

// GetSession fetches one session.
func (c *Client) GetSession(ctx context.Context, id string) (Session, error) {
	raw, err := c.do(ctx, "get session", http.MethodGet, sessionPath(id), nil, nil)
	if err != nil {
		return Session{}, err
	}
	return DecodeSession(raw)
}

// CreateSession creates a session and returns its id.
func (c *Client) CreateSession(ctx context.Context, in NewSession) (string, error) {
	payload := map[string]any{
		"name":        in.Name,
		"description": in.Description,
		"starts_at":   in.StartsAt.UTC().Format(time.RFC3339Nano),
		"score":       in.Score,
	}
	raw, err := c.do(ctx, "create session", http.MethodPost, "/sessions", nil, payload)
	if err != nil {
		return "", err
	}
	return decodeCreated(raw)
}

// DeleteSession deletes a session. The backend refuses once attendance was applied.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete session", http.MethodDelete, sessionPath(id), nil, nil)
	return err
}

// CreateAttendanceForm attaches a Google form to the session and returns its URL.
func (c *Client) CreateAttendanceForm(ctx context.Context, id string) (string, error) {
	raw, err := c.do(ctx, "create attendance form", http.MethodPost, sessionPath(id)+"/attendance-form", nil, nil)
	if err != nil {
		return "", err
	}
	return decodeFormURL(raw)
}

// ApplyAttendanceByForm closes the session and credits everyone who submitted the form.
func (c *Client) ApplyAttendanceByForm(ctx context.Context, id string) error {
	_, err := c.do(ctx, "apply attendance", http.MethodPost, sessionPath(id)+"/attendance", nil, nil)
	return err
}

// MarkUsersAsPresent credits the users by hand and closes the session.
func (c *Client) MarkUsersAsPresent(ctx context.Context, id string, userIDs []string) error {
	_, err := c.do(ctx, "mark users as present", http.MethodPost, sessionPath(id)+"/attendance/manual", nil, userIDsBody(userIDs))
	return err
}

// LateApplyAttendance credits users after the session was already applied.
func (c *Client) LateApplyAttendance(ctx context.Context, id string, userIDs []string) error {
	_, err := c.do(ctx, "late apply attendance", http.MethodPost, sessionPath(id)+"/attendance/late", nil, userIDsBody(userIDs))
	return err
}

// GetSessionAttendances returns the attendances of a session.
func (c *Client) GetSessionAttendances(ctx context.Context, id string) ([]Attendance, error) {
	raw, err := c.do(ctx, "get session attendances", http.MethodGet, sessionPath(id)+"/attendances", nil, nil)
	if err != nil {
		return nil, err
	}
	return DecodeAttendances(raw)
}

// GetHalfYearAttendances returns the attendance of the current half year.
func (c *Client) GetHalfYearAttendances(ctx context.Context) (HalfYearAttendance, error) {
	raw, err := c.do(ctx, "get half-year attendances", http.MethodGet, "/attendances/half-year", nil, nil)
	if err != nil {
		return HalfYearAttendance{}, err
	}
	return DecodeHalfYearAttendance(raw)
}

func sessionPath(id string) string {
	return "/sessions/" + url.PathEscape(id)
}

func userIDsBody(userIDs []string) map[string][]string {
	if userIDs == nil {
		userIDs = []string{}
	}
	return map[string][]string{"user_ids": userIDs}
}
