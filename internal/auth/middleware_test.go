package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rushweb/internal/rushclient"
)

func newMiddlewareRouter(backend Backend) (*gin.Engine, *Registry, *State) {
	gin.SetMode(gin.TestMode)
	reg := NewRegistry(time.Minute, func(token string) *Session {
		return NewSession(backend, NewMemoryTokenStore(token), SessionOptions{Debounce: 10 * time.Millisecond})
	})
	var seen State
	r := gin.New()
	r.Use(Middleware(reg, DefaultCookie("", false), zap.NewNop()))
	r.GET("/", func(c *gin.Context) {
		seen = StateFrom(c)
		c.Status(http.StatusOK)
	})
	return r, reg, &seen
}

func TestMiddlewareAnonymous(t *testing.T) {
	r, reg, seen := newMiddlewareRouter(&fakeBackend{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, Anonymous, *seen)
	assert.Equal(t, 0, reg.Len())
}

func TestMiddlewareVerifiesCookie(t *testing.T) {
	r, _, seen := newMiddlewareRouter(&fakeBackend{auth: rushclient.UserAuth{UserID: "u1", Role: "admin"}})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: rushclient.AuthCookieName, Value: "tok"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.True(t, seen.IsAdmin())
	assert.Empty(t, w.Header().Values("Set-Cookie"))
}

func TestMiddlewareClearsRejectedCookie(t *testing.T) {
	backend := &fakeBackend{authErr: &rushclient.StatusError{StatusCode: http.StatusUnauthorized}}
	r, reg, seen := newMiddlewareRouter(backend)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: rushclient.AuthCookieName, Value: "stale"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.False(t, seen.Authenticated)
	assert.Equal(t, 0, reg.Len())
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, rushclient.AuthCookieName, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestCookieAttributes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	DefaultCookie("rush.example", true).Write(c, "tok")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	ck := cookies[0]
	assert.Equal(t, "tok", ck.Value)
	assert.Equal(t, "/", ck.Path)
	assert.Equal(t, "rush.example", ck.Domain)
	assert.Equal(t, 30*24*60*60, ck.MaxAge)
	assert.True(t, ck.Secure)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, ck.SameSite)
}
