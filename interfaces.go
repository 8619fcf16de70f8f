package shelfmate

import "context"

// IdentityProvider is the external service that issues and validates
// sessions. Implementations: provider/ (HTTP password grant), fake/ (testing).
type IdentityProvider interface {
	// Exchange trades a canonical credential identifier and secret for a
	// new Session. A rejected credential pair returns an error.
	Exchange(ctx context.Context, identifier, secret string) (*Session, error)

	// CurrentSession returns any pre-existing session, or nil when the
	// user is logged out. A nil session with a nil error is not a failure.
	CurrentSession(ctx context.Context) (*Session, error)

	// Subscribe registers a callback invoked on every session change
	// (login, logout, refresh). The callback receives nil when the
	// session is destroyed. The returned func releases the subscription.
	Subscribe(fn func(*Session)) (unsubscribe func())

	// Invalidate destroys the session with the provider.
	Invalidate(ctx context.Context, s *Session) error
}

// Directory is the read side of the relational store consumed during
// authentication. Implementations: directory/ (Postgres), fake/ (testing).
//
// Absent records are reported as (nil, nil); an error means the lookup
// itself failed.
type Directory interface {
	// ProfileByUsername looks up a profile by its unique username.
	ProfileByUsername(ctx context.Context, username string) (*Profile, error)

	// ProfileByID looks up a profile by user id.
	ProfileByID(ctx context.Context, id string) (*Profile, error)

	// RolesByUserID returns all role assignments for a user, in no
	// particular order. An empty set is valid.
	RolesByUserID(ctx context.Context, id string) ([]RoleAssignment, error)
}

// SessionSource exposes the current session state synchronously.
// Implemented by sessionstore.Store.
type SessionSource interface {
	// Current returns the cached session, or nil when logged out.
	Current() *Session

	// UserID returns the current session's subject, or "" when logged out.
	UserID() string

	// Watch registers a callback invoked on every applied session change.
	// The returned func cancels the watch.
	Watch(fn func(*Session)) (cancel func())
}

// AccessResolver exposes the derived authorization snapshot.
// Implemented by roles.Resolver.
type AccessResolver interface {
	// Access returns the current snapshot. IsLoading is true while a
	// resolution for the current identity is still in flight.
	Access() ResolvedAccess

	// AwaitSettled blocks until the current resolution settles or the
	// context is done, and returns the snapshot as of that moment.
	AwaitSettled(ctx context.Context) ResolvedAccess
}

// Notifier surfaces user-visible notifications from the login and logout
// flows. Implementations decide how to present them (toast, flash, log).
type Notifier interface {
	Success(message string)
	Failure(message string)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Failure(string) {}
