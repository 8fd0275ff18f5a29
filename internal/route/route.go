// Package route decides who may open which page.
package route

import (
	"net/url"

	"rushweb/internal/auth"
)

// Access is the audience of a page.
type Access int

const (
	Public Access = iota
	Authenticated
	Admin
)

func (a Access) String() string {
	switch a {
	case Authenticated:
		return "authenticated"
	case Admin:
		return "admin"
	default:
		return "public"
	}
}

// Route is one page of the site. Pattern uses gin syntax.
type Route struct {
	Name    string
	Pattern string
	Access  Access
}

// Paths of the pages that guards redirect to.
const (
	HomePath   = "/"
	SignInPath = "/signin"
)

var (
	Home           = Route{Name: "home", Pattern: "/", Access: Public}
	Sessions       = Route{Name: "sessions", Pattern: "/sessions", Access: Public}
	SessionDetail  = Route{Name: "session", Pattern: "/sessions/:id", Access: Public}
	Users          = Route{Name: "users", Pattern: "/users", Access: Public}
	MyPage         = Route{Name: "me", Pattern: "/me", Access: Authenticated}
	Attendances    = Route{Name: "attendances", Pattern: "/attendances", Access: Authenticated}
	AttendanceXLSX = Route{Name: "attendances-export", Pattern: "/attendances/export", Access: Authenticated}
	SignIn         = Route{Name: "signin", Pattern: SignInPath, Access: Public}
	AdminSessions  = Route{Name: "admin-sessions", Pattern: "/admin/sessions", Access: Admin}
	AdminSession   = Route{Name: "admin-session", Pattern: "/admin/sessions/:id", Access: Admin}
	AdminUsers     = Route{Name: "admin-users", Pattern: "/admin/users", Access: Admin}
)

// Table lists every page.
var Table = []Route{
	Home, Sessions, SessionDetail, Users,
	MyPage, Attendances, AttendanceXLSX,
	SignIn,
	AdminSessions, AdminSession, AdminUsers,
}

// CanAccess reports whether state may open r.
func CanAccess(r Route, state auth.State) bool {
	switch r.Access {
	case Authenticated:
		return state.Authenticated
	case Admin:
		return state.IsAdmin()
	default:
		return true
	}
}

// Redirect returns where a visitor who may not open r at path is sent.
// Unauthenticated visitors of member pages go to the sign-in page and keep path
// as from; everyone else who lacks access goes home. ok is false when access is granted.
func Redirect(r Route, state auth.State, path string) (target, from string, ok bool) {
	if CanAccess(r, state) {
		return "", "", false
	}
	if r.Access == Authenticated && !state.Authenticated {
		return SignInPath, path, true
	}
	return HomePath, "", true
}

// SignInURL builds the sign-in link carrying an opaque from value.
func SignInURL(from string) string {
	if from == "" {
		return SignInPath
	}
	return SignInPath + "?" + url.Values{"from": {from}}.Encode()
}
