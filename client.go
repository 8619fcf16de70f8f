// Package shelfmate provides the authentication and authorization core of
// the shelfmate library-management system.
//
// The package defines shared types and the contracts for the external
// collaborators (identity provider, relational directory) plus the derived
// session state exposed to the rest of the application. Concrete
// implementations are injected via Option functions, so the core stays
// independent of any specific backend.
//
// Example usage with the in-memory fake backends:
//
//	client, err := shelfmate.NewClient(
//	    shelfmate.Config{},
//	    shelfmate.WithIdentityProvider(myProvider),
//	    shelfmate.WithDirectory(myDirectory),
//	)
package shelfmate

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Client is the composition root for the auth core. Collaborators and the
// derived session/role state are injected via Option functions.
type Client struct {
	config   Config
	logger   *slog.Logger
	provider IdentityProvider
	dir      Directory
	sessions SessionSource
	access   AccessResolver
	notifier Notifier
}

// Config holds behavior configuration for the auth core.
type Config struct {
	// CredentialDomain is appended to a profile's username to form the
	// canonical credential identifier exchanged with the identity
	// provider. Default: "library.local".
	CredentialDomain string

	// ResolveTimeout bounds a single role resolution so a gate's wait
	// state can never be permanent. Default: 5 seconds.
	ResolveTimeout time.Duration

	// WaitTimeout bounds how long a gate waits for role resolution to
	// settle before falling back to a login redirect. Default: 10 seconds.
	WaitTimeout time.Duration

	// Routes names the redirect destinations. Zero value means
	// DefaultRoutes().
	Routes Routes
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithIdentityProvider sets the identity provider implementation.
func WithIdentityProvider(p IdentityProvider) Option {
	return func(c *Client) { c.provider = p }
}

// WithDirectory sets the relational directory implementation.
func WithDirectory(d Directory) Option {
	return func(c *Client) { c.dir = d }
}

// WithSessionSource sets the session state implementation.
func WithSessionSource(s SessionSource) Option {
	return func(c *Client) { c.sessions = s }
}

// WithAccessResolver sets the resolved-access implementation.
func WithAccessResolver(a AccessResolver) Option {
	return func(c *Client) { c.access = a }
}

// WithNotifier sets the user-visible notification sink.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// Defaults applied by NewClient.
const (
	DefaultCredentialDomain = "library.local"
	DefaultResolveTimeout   = 5 * time.Second
	DefaultWaitTimeout      = 10 * time.Second
)

// NewClient creates a new auth core client with the given configuration
// and options.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.CredentialDomain == "" {
		cfg.CredentialDomain = DefaultCredentialDomain
	}
	if strings.Contains(cfg.CredentialDomain, "@") {
		return nil, fmt.Errorf("shelfmate: CredentialDomain %q must not contain '@'", cfg.CredentialDomain)
	}
	if cfg.ResolveTimeout == 0 {
		cfg.ResolveTimeout = DefaultResolveTimeout
	}
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	if cfg.Routes == (Routes{}) {
		cfg.Routes = DefaultRoutes()
	}

	c := &Client{config: cfg, notifier: NopNotifier{}}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.config }

// Logger returns the structured logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Provider returns the identity provider, or nil if not configured.
func (c *Client) Provider() IdentityProvider { return c.provider }

// Directory returns the relational directory, or nil if not configured.
func (c *Client) Directory() Directory { return c.dir }

// Sessions returns the session source, or nil if not configured.
func (c *Client) Sessions() SessionSource { return c.sessions }

// Access returns the access resolver, or nil if not configured.
func (c *Client) Access() AccessResolver { return c.access }

// Notifier returns the notification sink. Never nil.
func (c *Client) Notifier() Notifier { return c.notifier }

// CredentialID derives the canonical credential identifier the identity
// provider authenticates, from a profile's username.
func (c *Client) CredentialID(username string) string {
	return username + "@" + c.config.CredentialDomain
}

// HealthCheck verifies the client has the collaborators required for the
// login flow and that the provider is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.provider == nil || c.dir == nil {
		return fmt.Errorf("shelfmate: identity provider and directory are required")
	}
	if _, err := c.provider.CurrentSession(ctx); err != nil {
		return fmt.Errorf("shelfmate: provider unreachable: %w", err)
	}
	return nil
}

// Close releases all resources held by the client. Any injected
// collaborator that implements io.Closer will be closed.
func (c *Client) Close() error {
	closers := []interface{}{
		c.sessions, c.access, c.provider, c.dir,
	}
	var firstErr error
	for _, svc := range closers {
		if cl, ok := svc.(io.Closer); ok && cl != nil {
			if err := cl.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
