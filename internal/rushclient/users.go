package rushclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func pageQuery(offset, pageSize int) url.Values {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("pageSize", strconv.Itoa(pageSize))
	return q
}

// ListUsers returns one page of users.
func (c *Client) ListUsers(ctx context.Context, offset, pageSize int) (Page[User], error) {
	raw, err := c.do(ctx, "list users", http.MethodGet, "/users", pageQuery(offset, pageSize), nil)
	if err != nil {
		return Page[User]{}, err
	}
	return DecodeUserPage(raw)
}

// ListAllUsers returns every active user. Used to pick attendees by hand.
func (c *Client) ListAllUsers(ctx context.Context) ([]User, error) {
	raw, err := c.do(ctx, "list all users", http.MethodGet, "/users", url.Values{"all": {"1"}}, nil)
	if err != nil {
		return nil, err
	}
	return DecodeUserList(raw)
}

// GetUser fetches one user.
func (c *Client) GetUser(ctx context.Context, id string) (User, error) {
	raw, err := c.do(ctx, "get user", http.MethodGet, "/users/"+url.PathEscape(id), nil, nil)
	if err != nil {
		return User{}, err
	}
	return DecodeUser(raw)
}

// AddUser registers a new member.
func (c *Client) AddUser(ctx context.Context, in NewUser) error {
	payload := map[string]any{
		"name":       in.Name,
		"generation": in.Generation,
		"is_active":  in.IsActive,
		"email":      in.Email,
	}
	_, err := c.do(ctx, "add user", http.MethodPost, "/users", nil, payload)
	return err
}

// GetUserAttendances returns the attendances credited to a user.
func (c *Client) GetUserAttendances(ctx context.Context, userID string) ([]Attendance, error) {
	raw, err := c.do(ctx, "get user attendances", http.MethodGet, "/users/"+url.PathEscape(userID)+"/attendances", nil, nil)
	if err != nil {
		return nil, err
	}
	return DecodeAttendances(raw)
}
