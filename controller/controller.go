// Package controller orchestrates the active login and logout flows.
package controller

import (
	"context"
	"fmt"
	"log/slog"

	shelfmate "github.com/adarshmaurya03/shelfmate-suite"
	"github.com/adarshmaurya03/shelfmate-suite/audit"
	"github.com/adarshmaurya03/shelfmate-suite/metrics"
	"github.com/adarshmaurya03/shelfmate-suite/roles"
)

// Option configures the Controller.
type Option func(*Controller)

// WithAudit sets an audit logger for login/logout events.
func WithAudit(l *audit.Logger) Option {
	return func(c *Controller) { c.audit = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// Controller implements the login and logout operations over the
// collaborators wired into a shelfmate.Client.
type Controller struct {
	client  *shelfmate.Client
	logger  *slog.Logger
	audit   *audit.Logger
	metrics *metrics.Metrics
}

// New creates a Controller. The client must carry an identity provider and
// a directory.
func New(client *shelfmate.Client, opts ...Option) (*Controller, error) {
	if client.Provider() == nil || client.Directory() == nil {
		return nil, fmt.Errorf("shelfmate/controller: client needs an identity provider and a directory")
	}
	c := &Controller{client: client, logger: client.Logger()}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Login resolves the username to a profile, exchanges the canonical
// credential identifier and secret for a session, classifies the new
// identity and returns the role-appropriate redirect destination.
//
// A missing profile and a provider rejection both come back as
// ErrInvalidCredentials so callers cannot enumerate usernames.
func (c *Controller) Login(ctx context.Context, username, secret string) (string, error) {
	routes := c.client.Config().Routes

	profile, err := c.client.Directory().ProfileByUsername(ctx, username)
	if err != nil || profile == nil || !profile.Active {
		if err != nil {
			c.logger.Warn("profile lookup failed during login", "error", err)
		}
		return "", c.loginRejected(username, "unknown_user")
	}

	sess, err := c.client.Provider().Exchange(ctx, c.client.CredentialID(profile.Username), secret)
	if err != nil {
		return "", c.loginRejected(username, "provider_rejected")
	}

	// A role-lookup failure after a successful exchange degrades to the
	// user area instead of failing the login.
	isAdmin := false
	assignments, err := c.client.Directory().RolesByUserID(ctx, profile.ID)
	if err != nil {
		c.logger.Warn("role lookup failed after login, defaulting to user area",
			"user_id", profile.ID, "error", err)
	} else {
		isAdmin = roles.IsAdmin(assignments)
	}

	c.client.Notifier().Success("Login successful!")
	if c.metrics != nil {
		c.metrics.RecordLogin(isAdmin)
	}
	if c.audit != nil {
		c.audit.Log(audit.Event{
			UserID: profile.ID,
			Action: audit.ActionLogin,
			Result: audit.ResultSuccess,
		})
	}
	c.logger.Info("login succeeded", "user_id", profile.ID, "admin", isAdmin,
		"session_expires", sess.ExpiresAt)

	if isAdmin {
		return routes.AdminHome, nil
	}
	return routes.UserHome, nil
}

func (c *Controller) loginRejected(username, reason string) error {
	c.client.Notifier().Failure("Invalid credentials")
	if c.metrics != nil {
		c.metrics.RecordLoginFailure(reason)
	}
	if c.audit != nil {
		c.audit.Log(audit.Event{
			Action:  audit.ActionLogin,
			Result:  audit.ResultFailure,
			Details: reason,
		})
	}
	c.logger.Info("login rejected", "username", username, "reason", reason)
	return shelfmate.ErrInvalidCredentials
}

// Logout invalidates the current session with the provider and returns the
// confirmation redirect. A provider failure is reported through the
// returned error and the notifier, but the redirect destination is valid
// either way; callers should navigate regardless.
func (c *Controller) Logout(ctx context.Context) (string, error) {
	routes := c.client.Config().Routes

	sess := c.currentSession(ctx)
	if sess == nil {
		return routes.Logout, nil
	}

	if err := c.client.Provider().Invalidate(ctx, sess); err != nil {
		c.client.Notifier().Failure("An error occurred during logout")
		if c.audit != nil {
			c.audit.Log(audit.Event{
				UserID: sess.UserID,
				Action: audit.ActionLogout,
				Result: audit.ResultFailure,
				Error:  err.Error(),
			})
		}
		c.logger.Warn("session invalidation failed", "user_id", sess.UserID, "error", err)
		return routes.Logout, fmt.Errorf("%w: %v", shelfmate.ErrLogoutFailed, err)
	}

	c.client.Notifier().Success("Logged out successfully")
	if c.metrics != nil {
		c.metrics.RecordLogout()
	}
	if c.audit != nil {
		c.audit.Log(audit.Event{
			UserID: sess.UserID,
			Action: audit.ActionLogout,
			Result: audit.ResultSuccess,
		})
	}
	return routes.Logout, nil
}

func (c *Controller) currentSession(ctx context.Context) *shelfmate.Session {
	if src := c.client.Sessions(); src != nil {
		return src.Current()
	}
	sess, err := c.client.Provider().CurrentSession(ctx)
	if err != nil {
		return nil
	}
	return sess
}
