package auth

// Role is what the UI lets a user do.
type Role string

const (
	RoleUnknown Role = "unknown"
	RoleAdmin   Role = "admin"
	RoleMember  Role = "member"
)

// ConvertRole maps the backend role value to a Role.
// super_admin and admin are both admins; anything unrecognised is unknown.
func ConvertRole(wire string) Role {
	switch wire {
	case "super_admin", "admin":
		return RoleAdmin
	case "member":
		return RoleMember
	default:
		return RoleUnknown
	}
}

// State is the authentication state of one browser.
type State struct {
	Authenticated bool
	Role          Role
	UserID        string
	// Loading is true until the first verification finished.
	Loading bool
}

// IsAdmin reports whether the state grants admin pages.
func (s State) IsAdmin() bool {
	return s.Authenticated && s.Role == RoleAdmin
}

// Anonymous is the state of a browser without a session token.
var Anonymous = State{Role: RoleUnknown}
