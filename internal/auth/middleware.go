package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rushweb/internal/rushclient"
)

const (
	stateKey   = "auth.state"
	sessionKey = "auth.session"
)

// Cookie describes the cookie the session token is kept in.
type Cookie struct {
	Name   string
	Domain string
	// Secure adds the Secure flag and SameSite=Strict. Off only for local development.
	Secure bool
	MaxAge time.Duration
}

// DefaultCookie is the rush-auth cookie: 30 days on path "/".
func DefaultCookie(domain string, secure bool) Cookie {
	return Cookie{
		Name:   rushclient.AuthCookieName,
		Domain: domain,
		Secure: secure,
		MaxAge: 30 * 24 * time.Hour,
	}
}

// Read returns the token in the request cookie.
func (ck Cookie) Read(c *gin.Context) string {
	token, err := c.Cookie(ck.Name)
	if err != nil {
		return ""
	}
	return token
}

// Write stores token in the response cookie.
func (ck Cookie) Write(c *gin.Context, token string) {
	ck.set(c, token, int(ck.MaxAge.Seconds()))
}

// Clear removes the cookie.
func (ck Cookie) Clear(c *gin.Context) {
	ck.set(c, "", -1)
}

func (ck Cookie) set(c *gin.Context, value string, maxAge int) {
	if ck.Secure {
		c.SetSameSite(http.SameSiteStrictMode)
	} else {
		c.SetSameSite(http.SameSiteLaxMode)
	}
	c.SetCookie(ck.Name, value, maxAge, "/", ck.Domain, ck.Secure, true)
}

// Middleware resolves the session of the browser and verifies it.
// Handlers read the result with StateFrom and SessionFrom.
func Middleware(reg *Registry, cookie Cookie, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := cookie.Read(c)
		if token == "" {
			c.Set(stateKey, Anonymous)
			c.Next()
			return
		}

		session := reg.Get(token)
		if err := session.Dispatch(c.Request.Context(), Verify{}); err != nil {
			logger.Warn("auth verification aborted", zap.Error(err))
			c.Set(stateKey, Anonymous)
			c.Next()
			return
		}

		state := session.State()
		switch current := session.Token(); {
		case current == "":
			reg.Forget(token)
			cookie.Clear(c)
		case current != token:
			cookie.Write(c, current)
		}

		c.Set(stateKey, state)
		c.Set(sessionKey, session)
		c.Next()
	}
}

// StateFrom returns the state resolved by Middleware.
func StateFrom(c *gin.Context) State {
	v, ok := c.Get(stateKey)
	if !ok {
		return Anonymous
	}
	state, _ := v.(State)
	return state
}

// SessionFrom returns the browser session, or nil for anonymous visitors.
func SessionFrom(c *gin.Context) *Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	session, _ := v.(*Session)
	return session
}
