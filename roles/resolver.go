// Package roles derives the authorization classification for the current
// identity.
//
// Resolution is deliberately forgiving: a missing profile or a failed
// lookup settles as non-admin rather than erroring, because blocking the
// application on a transient store failure is worse than under-privileging.
package roles

import (
	"context"
	"log/slog"
	"sync"
	"time"

	shelfmate "github.com/adarshmaurya03/shelfmate-suite"
	"github.com/adarshmaurya03/shelfmate-suite/audit"
)

// IsAdmin folds a role assignment set into the admin classification.
// A user may hold zero, one, or several assignments; any "admin" entry
// grants elevated access.
func IsAdmin(assignments []shelfmate.RoleAssignment) bool {
	for _, a := range assignments {
		if a.Role == shelfmate.RoleAdmin {
			return true
		}
	}
	return false
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithTimeout bounds a single resolution. Default: 5 seconds.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithStaleDropHook registers a callback invoked whenever a settled
// resolution is discarded because the identity changed while it was in
// flight. Used for metrics.
func WithStaleDropHook(fn func()) Option {
	return func(r *Resolver) { r.staleDrop = fn }
}

// WithSettleHook registers a callback invoked with every applied
// resolution result. Used for metrics.
func WithSettleHook(fn func(shelfmate.ResolvedAccess)) Option {
	return func(r *Resolver) { r.onSettle = fn }
}

// WithAudit sets an audit logger; every applied resolution is recorded
// to it.
func WithAudit(l *audit.Logger) Option {
	return func(r *Resolver) { r.audit = l }
}

// Resolver implements shelfmate.AccessResolver over a Directory.
type Resolver struct {
	dir       shelfmate.Directory
	timeout   time.Duration
	logger    *slog.Logger
	staleDrop func()
	onSettle  func(shelfmate.ResolvedAccess)
	audit     *audit.Logger

	mu      sync.Mutex
	access  shelfmate.ResolvedAccess
	epoch   uint64
	settled chan struct{} // closed when the current epoch has settled
}

// compile-time check
var _ shelfmate.AccessResolver = (*Resolver)(nil)

// New creates a Resolver. Until bound to a session source it reports the
// logged-out default.
func New(dir shelfmate.Directory, opts ...Option) *Resolver {
	r := &Resolver{
		dir:     dir,
		timeout: 5 * time.Second,
		access:  shelfmate.LoggedOut(),
	}
	settled := make(chan struct{})
	close(settled)
	r.settled = settled

	for _, o := range opts {
		o(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Bind watches the session source and re-derives access on every session
// change: exactly one resolution per session-present transition, and an
// immediate logged-out settle when the session is absent. A session the
// source already holds counts as such a transition; the store replays it
// on registration. The returned func cancels the watch.
func (r *Resolver) Bind(src shelfmate.SessionSource) (cancel func()) {
	return src.Watch(func(sess *shelfmate.Session) {
		if sess == nil {
			r.reset()
			return
		}
		r.begin(sess.UserID)
	})
}

// reset settles immediately to the logged-out default, superseding any
// in-flight resolution.
func (r *Resolver) reset() {
	r.mu.Lock()
	r.epoch++
	r.access = shelfmate.LoggedOut()
	r.settleLocked()
	r.mu.Unlock()
}

// begin starts a resolution for a new identity. The epoch taken here is
// compared again at settle time; a resolution superseded by a newer
// session change is discarded no matter when its lookups complete.
func (r *Resolver) begin(userID string) {
	r.mu.Lock()
	r.epoch++
	epoch := r.epoch
	r.access = shelfmate.ResolvedAccess{IsAdmin: false, IsLoading: true}
	// Release waiters parked on the superseded resolution; they re-check
	// and pick up the new channel.
	r.settleLocked()
	r.settled = make(chan struct{})
	r.mu.Unlock()

	go r.resolve(userID, epoch)
}

func (r *Resolver) resolve(userID string, epoch uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	r.settle(userID, epoch, r.lookup(ctx, userID))
}

// lookup performs the profile and role queries. Every failure path
// degrades to non-admin.
func (r *Resolver) lookup(ctx context.Context, userID string) shelfmate.ResolvedAccess {
	profile, err := r.dir.ProfileByID(ctx, userID)
	if err != nil {
		r.logger.Warn("profile lookup failed, treating as non-admin",
			"user_id", userID, "error", err)
		return shelfmate.LoggedOut()
	}
	if profile == nil {
		// No profile means no elevated access, not an error.
		return shelfmate.LoggedOut()
	}

	assignments, err := r.dir.RolesByUserID(ctx, userID)
	if err != nil {
		r.logger.Warn("role lookup failed, treating as non-admin",
			"user_id", userID, "error", err)
		return shelfmate.LoggedOut()
	}

	return shelfmate.ResolvedAccess{IsAdmin: IsAdmin(assignments), IsLoading: false}
}

// settle applies a resolution result unless its epoch has been superseded.
// Hooks and the audit record run after the lock is released.
func (r *Resolver) settle(userID string, epoch uint64, access shelfmate.ResolvedAccess) {
	r.mu.Lock()
	if epoch != r.epoch {
		r.mu.Unlock()
		if r.staleDrop != nil {
			r.staleDrop()
		}
		return
	}
	r.access = access
	r.settleLocked()
	r.mu.Unlock()

	if r.onSettle != nil {
		r.onSettle(access)
	}
	if r.audit != nil {
		result := "user"
		if access.IsAdmin {
			result = "admin"
		}
		r.audit.Log(audit.Event{
			UserID:  userID,
			Action:  audit.ActionRoleResolve,
			Result:  audit.ResultSuccess,
			Details: result,
		})
	}
}

func (r *Resolver) settleLocked() {
	select {
	case <-r.settled:
		// already settled
	default:
		close(r.settled)
	}
}

// Access returns the current snapshot.
func (r *Resolver) Access() shelfmate.ResolvedAccess {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.access
}

// AwaitSettled blocks until the latest resolution settles or ctx is done,
// then returns the snapshot as of that moment. If the identity changes
// while waiting, the wait carries over to the new resolution. On ctx
// expiry the snapshot may still report IsLoading.
func (r *Resolver) AwaitSettled(ctx context.Context) shelfmate.ResolvedAccess {
	for {
		r.mu.Lock()
		access := r.access
		ch := r.settled
		r.mu.Unlock()

		if !access.IsLoading {
			return access
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return r.Access()
		}
	}
}

// Resolve performs one synchronous resolution for the given identity
// without touching the bound state. Used by the login flow, which needs
// the classification before any session event has propagated.
func (r *Resolver) Resolve(ctx context.Context, userID string) shelfmate.ResolvedAccess {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.lookup(ctx, userID)
}
