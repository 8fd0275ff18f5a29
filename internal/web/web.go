// Package web serves the RU:SH pages: server-rendered views over the REST backend.
package web

import (
	"context"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rushweb/internal/auth"
	"rushweb/internal/datefmt"
	"rushweb/internal/httpmiddleware"
	"rushweb/internal/notify"
	"rushweb/internal/route"
	"rushweb/internal/rushclient"
)

// Backend is the part of the RU:SH backend the pages use.
type Backend interface {
	ListSessions(ctx context.Context, offset, pageSize int) (rushclient.Page[rushclient.Session], error)
	GetSession(ctx context.Context, id string) (rushclient.Session, error)
	CreateSession(ctx context.Context, in rushclient.NewSession) (string, error)
	DeleteSession(ctx context.Context, id string) error
	CreateAttendanceForm(ctx context.Context, id string) (string, error)
	ApplyAttendanceByForm(ctx context.Context, id string) error
	MarkUsersAsPresent(ctx context.Context, id string, userIDs []string) error
	LateApplyAttendance(ctx context.Context, id string, userIDs []string) error
	GetSessionAttendances(ctx context.Context, id string) ([]rushclient.Attendance, error)
	GetHalfYearAttendances(ctx context.Context) (rushclient.HalfYearAttendance, error)

	ListUsers(ctx context.Context, offset, pageSize int) (rushclient.Page[rushclient.User], error)
	ListAllUsers(ctx context.Context) ([]rushclient.User, error)
	GetUser(ctx context.Context, id string) (rushclient.User, error)
	AddUser(ctx context.Context, in rushclient.NewUser) error
	GetUserAttendances(ctx context.Context, userID string) ([]rushclient.Attendance, error)
}

// Firebase is the public configuration of the Google sign-in popup.
type Firebase struct {
	APIKey     string
	AuthDomain string
}

// RedirectState signs the page a visitor returns to after signing in.
type RedirectState struct {
	Key    string
	Issuer string
	TTL    time.Duration
}

// Options wires a Handler.
type Options struct {
	Backend  Backend
	Sessions *auth.Registry
	Cookie   auth.Cookie
	Notifier *notify.Notifier
	Dates    datefmt.Formatter
	Logger   *zap.Logger
	PageSize int
	State    RedirectState
	Firebase Firebase
	// SignInLimiter throttles POST /signin when set.
	SignInLimiter *httpmiddleware.Limiter
}

// Handler renders every page of the site.
type Handler struct {
	backend  Backend
	sessions *auth.Registry
	cookie   auth.Cookie
	notifier *notify.Notifier
	dates    datefmt.Formatter
	logger   *zap.Logger
	pageSize int
	state    RedirectState
	firebase Firebase
	limiter  *httpmiddleware.Limiter
	pages    pageSet
	now      func() time.Time
}

// New parses the page templates and returns a handler.
func New(opts Options) (*Handler, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	pages, err := parsePages(opts.Dates)
	if err != nil {
		return nil, err
	}
	return &Handler{
		backend:  opts.Backend,
		sessions: opts.Sessions,
		cookie:   opts.Cookie,
		notifier: opts.Notifier,
		dates:    opts.Dates,
		logger:   opts.Logger,
		pageSize: opts.PageSize,
		state:    opts.State,
		firebase: opts.Firebase,
		limiter:  opts.SignInLimiter,
		pages:    pages,
		now:      time.Now,
	}, nil
}

// Register mounts the pages, their assets and the browser middleware on r.
func (h *Handler) Register(r *gin.Engine) {
	r.HTMLRender = h.pages
	static, _ := fs.Sub(assets, "static")
	r.StaticFS("/static", http.FS(static))

	g := r.Group("",
		httpmiddleware.BrowserID(h.cookie.Secure),
		auth.Middleware(h.sessions, h.cookie, h.logger),
	)

	g.GET(route.Home.Pattern, h.guard(route.Home), h.sessionList)
	g.GET(route.Sessions.Pattern, h.guard(route.Sessions), h.sessionList)
	g.GET(route.SessionDetail.Pattern, h.guard(route.SessionDetail), h.sessionDetail)
	g.GET(route.Users.Pattern, h.guard(route.Users), h.userList)
	g.GET(route.MyPage.Pattern, h.guard(route.MyPage), h.myPage)
	g.GET(route.Attendances.Pattern, h.guard(route.Attendances), h.halfYear)
	g.GET(route.AttendanceXLSX.Pattern, h.guard(route.AttendanceXLSX), h.exportHalfYear)

	signIn := []gin.HandlerFunc{h.guard(route.SignIn)}
	if h.limiter != nil {
		signIn = append(signIn, h.limiter.Middleware(h.logger))
	}
	g.GET(route.SignIn.Pattern, h.guard(route.SignIn), h.signInPage)
	g.POST(route.SignIn.Pattern, append(signIn, h.signIn)...)
	g.POST("/signout", h.signOut)

	admin := g.Group("/admin")
	admin.GET("/sessions", h.guard(route.AdminSessions), h.adminSessionList)
	admin.POST("/sessions", h.guard(route.AdminSessions), h.createSession)
	admin.GET("/sessions/:id", h.guard(route.AdminSession), h.sessionDetail)
	admin.POST("/sessions/:id/delete", h.guard(route.AdminSession), h.deleteSession)
	admin.POST("/sessions/:id/form", h.guard(route.AdminSession), h.createForm)
	admin.POST("/sessions/:id/apply", h.guard(route.AdminSession), h.applyByForm)
	admin.POST("/sessions/:id/attendance/manual", h.guard(route.AdminSession), h.markPresent)
	admin.POST("/sessions/:id/attendance/late", h.guard(route.AdminSession), h.lateApply)
	admin.GET("/sessions/:id/qr.png", h.guard(route.AdminSession), h.downloadQR)
	admin.GET("/users", h.guard(route.AdminUsers), h.adminUserList)
	admin.POST("/users", h.guard(route.AdminUsers), h.addUser)
}

// guard sends visitors who may not open rt elsewhere.
func (h *Handler) guard(rt route.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		target, from, denied := route.Redirect(rt, auth.StateFrom(c), c.Request.URL.RequestURI())
		if !denied {
			c.Next()
			return
		}
		if target == route.SignInPath {
			state, err := auth.IssueRedirect(from, h.state.Issuer, h.state.Key, h.state.TTL)
			if err != nil {
				h.logger.Warn("redirect state not issued", zap.String("from", from), zap.Error(err))
				state = ""
			}
			h.toast(c, notify.Info("Sign in to continue."))
			h.redirect(c, route.SignInURL(state))
			return
		}
		h.toast(c, notify.Warning("This page is restricted to admins."))
		h.redirect(c, target)
	}
}

// backendContext carries the session token of the browser. A token rotated during
// the call replaces the session token and the cookie.
func (h *Handler) backendContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	session := auth.SessionFrom(c)
	if session == nil {
		return ctx
	}
	return rushclient.WithTokenRotation(session.BackendContext(ctx), func(token string) {
		_ = session.Dispatch(c.Request.Context(), auth.ReplaceToken{Token: token})
		h.cookie.Write(c, token)
	})
}

func (h *Handler) toast(c *gin.Context, msg notify.Message) {
	key := httpmiddleware.BrowserIDFrom(c)
	if key == "" {
		return
	}
	if _, err := h.notifier.Show(c.Request.Context(), key, msg); err != nil {
		h.logger.Warn("toast not queued", zap.Error(err))
	}
}

// fail reports a failed backend call to the browser.
func (h *Handler) fail(c *gin.Context, err error, authText, internalText string) {
	h.logger.Warn("backend call failed",
		zap.String("route", c.FullPath()),
		zap.Int("status", rushclient.StatusCode(err)),
		zap.Error(err),
	)
	h.toast(c, notify.HandleError(err, authText, internalText))
}

// redirect answers GET with 302 and everything else with 303.
func (h *Handler) redirect(c *gin.Context, location string) {
	code := http.StatusSeeOther
	if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
		code = http.StatusFound
	}
	c.Redirect(code, location)
	c.Abort()
}

func (h *Handler) render(c *gin.Context, page, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["State"] = auth.StateFrom(c)
	data["Path"] = c.Request.URL.Path

	if key := httpmiddleware.BrowserIDFrom(c); key != "" {
		toasts, err := h.notifier.Drain(c.Request.Context(), key)
		if err != nil {
			h.logger.Warn("toasts not drained", zap.Error(err))
		}
		data["Toasts"] = toasts
	}
	c.HTML(http.StatusOK, page, data)
}

// attachment sends body as a download named name.
func attachment(c *gin.Context, name, contentType string, body []byte) {
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, contentType, body)
}

func pageParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("page"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// pager is the previous/next navigation of a paginated list.
type pager struct {
	Page     int
	Total    int
	PrevHref string
	NextHref string
}

func newPager(path string, page int, isEnd bool, total int) pager {
	p := pager{Page: page + 1, Total: total}
	if page > 0 {
		p.PrevHref = fmt.Sprintf("%s?page=%d", path, page-1)
	}
	if !isEnd {
		p.NextHref = fmt.Sprintf("%s?page=%d", path, page+1)
	}
	return p
}
