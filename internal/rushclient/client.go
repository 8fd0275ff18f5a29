// Package rushclient talks to the RU:SH REST backend.
package rushclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	// AuthCookieName is the cookie the backend reads the session token from.
	AuthCookieName = "rush-auth"
	// ReplaceCookieHeader carries a rotated session token on any response.
	ReplaceCookieHeader = "X-Replace-Cookie"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rush_backend_requests_total",
		Help: "Backend requests by operation and status code.",
	}, []string{"op", "code"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rush_backend_request_duration_seconds",
		Help:    "Backend request latency by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

type tokenKey struct{}
type rotateKey struct{}

// WithToken returns a context whose backend calls authenticate with token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the token stored by WithToken.
func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// WithTokenRotation registers fn to receive tokens rotated by the backend.
func WithTokenRotation(ctx context.Context, fn func(token string)) context.Context {
	return context.WithValue(ctx, rotateKey{}, fn)
}

func rotationFrom(ctx context.Context) func(string) {
	fn, _ := ctx.Value(rotateKey{}).(func(string))
	return fn
}

// Client calls the RU:SH backend.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Logger  *zap.Logger
}

// New creates a client for the backend at baseURL. Requests live under baseURL + "/api".
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/") + "/api",
		HTTP:    &http.Client{Timeout: timeout},
		Logger:  logger,
	}
}

// do sends one request and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := TokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
		req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(op, "error").Inc()
		c.Logger.Warn("backend request failed", zap.String("op", op), zap.Error(err))
		return nil, fmt.Errorf("%s: backend request failed: %w", op, err)
	}
	defer resp.Body.Close()
	requestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if token := resp.Header.Get(ReplaceCookieHeader); token != "" {
		if fn := rotationFrom(ctx); fn != nil {
			fn(token)
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode >= 300 {
		c.Logger.Warn("backend returned error",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return raw, nil
}

// Health checks that the backend answers at all. Any HTTP response counts as reachable.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/auth", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("backend unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("backend unhealthy: %s", resp.Status)
	}
	return nil
}
