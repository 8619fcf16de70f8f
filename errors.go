package shelfmate

import "errors"

// Error taxonomy for the auth core. Passive lookups (role resolution,
// session eager fetch) swallow their failures into a safe logged-out or
// non-admin default; only the active login and logout operations surface
// errors to the caller.
var (
	// ErrInvalidCredentials covers a bad username, bad secret, and
	// provider rejection alike. The causes are deliberately merged so
	// callers cannot enumerate usernames.
	ErrInvalidCredentials = errors.New("shelfmate: invalid credentials")

	// ErrProfileLookupFailed marks a store failure during role
	// resolution. Resolution degrades to non-admin instead of
	// propagating it.
	ErrProfileLookupFailed = errors.New("shelfmate: profile lookup failed")

	// ErrSessionProviderUnavailable marks a provider failure during the
	// eager session fetch. The store degrades to logged out.
	ErrSessionProviderUnavailable = errors.New("shelfmate: session provider unavailable")

	// ErrLogoutFailed marks a failed provider invalidation. The logout
	// redirect proceeds regardless.
	ErrLogoutFailed = errors.New("shelfmate: logout failed")
)
