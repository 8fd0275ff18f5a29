package rushclient

import (
	"context"
	"net/http"
)

// GetUserAuth returns who the current token belongs to.
func (c *Client) GetUserAuth(ctx context.Context) (UserAuth, error) {
	raw, err := c.do(ctx, "get user auth", http.MethodGet, "/auth", nil, nil)
	if err != nil {
		return UserAuth{}, err
	}
	return DecodeUserAuth(raw)
}

// CheckAuth asks the backend to validate the current token. The backend may rotate it.
func (c *Client) CheckAuth(ctx context.Context) error {
	_, err := c.do(ctx, "check auth", http.MethodPost, "/auth", nil, nil)
	return err
}

// SignIn exchanges a Google ID token for a backend session token.
func (c *Client) SignIn(ctx context.Context, idToken string) (string, error) {
	raw, err := c.do(ctx, "sign in", http.MethodPost, "/sign-in", nil, map[string]string{"token": idToken})
	if err != nil {
		return "", err
	}
	return decodeSignIn(raw)
}
