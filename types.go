package shelfmate

import "time"

// Role labels observed in the user_roles table.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Session is the provider-issued proof of an authenticated identity.
// It is owned by the identity provider; this library only holds a
// read-only cached copy.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	ExpiresAt    time.Time
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Profile is the application-level user record, keyed by the same
// identity as the session subject.
type Profile struct {
	ID       string
	Username string
	Name     string
	Active   bool
}

// RoleAssignment is one row of the many-to-many identity-to-role mapping.
// A user may hold zero, one, or several assignments.
type RoleAssignment struct {
	UserID string
	Role   string
}

// ResolvedAccess is the derived authorization snapshot, recomputed on
// every session change and never persisted.
type ResolvedAccess struct {
	IsAdmin   bool
	IsLoading bool
}

// LoggedOut is the ResolvedAccess forced whenever no session exists.
func LoggedOut() ResolvedAccess {
	return ResolvedAccess{IsAdmin: false, IsLoading: false}
}

// Routes names the navigation destinations the auth flow redirects to.
type Routes struct {
	Login        string
	Logout       string
	AdminHome    string
	UserHome     string
	Unauthorized string
}

// DefaultRoutes returns the route surface of the shelfmate web app.
// Insufficiently privileged users land on the user home rather than a
// dedicated error page.
func DefaultRoutes() Routes {
	return Routes{
		Login:        "/",
		Logout:       "/logout",
		AdminHome:    "/admin",
		UserHome:     "/user",
		Unauthorized: "/user",
	}
}

// SeededUser describes one demo identity created by the bootstrap seeder.
type SeededUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}
