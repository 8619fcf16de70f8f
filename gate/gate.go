// Package gate decides whether protected navigation renders, waits, or
// redirects, given the current session and resolved access.
package gate

import (
	"context"
	"time"

	shelfmate "github.com/adarshmaurya03/shelfmate-suite"
	"github.com/adarshmaurya03/shelfmate-suite/audit"
)

// Action is the outcome of a gate evaluation.
type Action int

const (
	// Render allows the protected content through.
	Render Action = iota
	// Wait means role resolution has not settled yet; callers must not
	// flash protected content and should apply a bounded wait.
	Wait
	// RedirectLogin sends the user to the login view.
	RedirectLogin
	// RedirectUnauthorized sends an authenticated but under-privileged
	// user away from an admin subtree.
	RedirectUnauthorized
)

// String returns the action name for logs and metrics labels.
func (a Action) String() string {
	switch a {
	case Render:
		return "render"
	case Wait:
		return "wait"
	case RedirectLogin:
		return "redirect_login"
	case RedirectUnauthorized:
		return "redirect_unauthorized"
	default:
		return "unknown"
	}
}

// Evaluate is the pure decision table. It never returns Render while the
// resolution is still loading.
func Evaluate(sessionPresent bool, access shelfmate.ResolvedAccess, requireAdmin bool) Action {
	if !sessionPresent {
		return RedirectLogin
	}
	if access.IsLoading {
		return Wait
	}
	if requireAdmin && !access.IsAdmin {
		return RedirectUnauthorized
	}
	return Render
}

// Option configures the Gate.
type Option func(*Gate)

// WithWaitTimeout bounds how long Check waits for resolution to settle
// before falling back to a login redirect. Default: 10 seconds.
func WithWaitTimeout(d time.Duration) Option {
	return func(g *Gate) { g.waitTimeout = d }
}

// WithDecisionHook registers a callback invoked with every final action.
// Used for metrics.
func WithDecisionHook(fn func(Action)) Option {
	return func(g *Gate) { g.decision = fn }
}

// WithAudit sets an audit logger; checks that deny access are recorded
// to it.
func WithAudit(l *audit.Logger) Option {
	return func(g *Gate) { g.audit = l }
}

// Gate binds the decision table to live session and access state.
type Gate struct {
	sessions    shelfmate.SessionSource
	access      shelfmate.AccessResolver
	waitTimeout time.Duration
	decision    func(Action)
	audit       *audit.Logger
}

// New creates a Gate over the given session source and access resolver.
func New(sessions shelfmate.SessionSource, access shelfmate.AccessResolver, opts ...Option) *Gate {
	g := &Gate{
		sessions:    sessions,
		access:      access,
		waitTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Check evaluates access for a protected subtree and resolves any Wait
// internally: it blocks (bounded by the wait timeout) until resolution
// settles, and treats a resolution that never settles as logged out. The
// returned action is therefore never Wait.
func (g *Gate) Check(ctx context.Context, requireAdmin bool) Action {
	action := Evaluate(g.sessions.Current() != nil, g.access.Access(), requireAdmin)
	if action == Wait {
		waitCtx, cancel := context.WithTimeout(ctx, g.waitTimeout)
		access := g.access.AwaitSettled(waitCtx)
		cancel()

		if access.IsLoading {
			// Resolution never settled inside the bound. Fail closed.
			action = RedirectLogin
		} else {
			action = Evaluate(g.sessions.Current() != nil, access, requireAdmin)
		}
	}

	if g.decision != nil {
		g.decision(action)
	}
	if g.audit != nil && (action == RedirectLogin || action == RedirectUnauthorized) {
		g.audit.Log(audit.Event{
			UserID:  g.sessions.UserID(),
			Action:  audit.ActionGateDeny,
			Result:  audit.ResultDenied,
			Details: action.String(),
		})
	}
	return action
}
