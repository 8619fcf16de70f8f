// Package provider implements the identity-provider contract over the
// hosted auth service's HTTP API (password-grant token endpoint, refresh,
// logout, and the service-key admin surface used for seeding).
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	shelfmate "github.com/adarshmaurya03/shelfmate-suite"
	"github.com/adarshmaurya03/shelfmate-suite/token"
)

// Client implements shelfmate.IdentityProvider against an HTTP auth
// backend. It caches the established session and refreshes it
// transparently ahead of expiry; concurrent refreshes collapse into one
// request through singleflight.
type Client struct {
	baseURL       string
	apiKey        string
	serviceKey    string
	refreshBuffer time.Duration
	httpClient    *http.Client
	verifier      *token.Verifier

	mu          sync.RWMutex
	session     *shelfmate.Session
	subscribers map[int]func(*shelfmate.Session)
	nextSub     int

	sf singleflight.Group
}

// compile-time check
var _ shelfmate.IdentityProvider = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client for provider requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Client) { p.httpClient = c }
}

// WithRefreshBuffer sets how long before expiry the session is refreshed.
// Default: 1 minute.
func WithRefreshBuffer(d time.Duration) Option {
	return func(p *Client) { p.refreshBuffer = d }
}

// WithServiceKey sets the elevated key for the admin surface (CreateUser).
func WithServiceKey(key string) Option {
	return func(p *Client) { p.serviceKey = key }
}

// WithTokenVerifier verifies issued access tokens locally and derives the
// session subject and expiry from their claims instead of trusting the
// response body alone.
func WithTokenVerifier(v *token.Verifier) Option {
	return func(p *Client) { p.verifier = v }
}

// New creates a provider client for the given base URL and API key.
func New(baseURL, apiKey string, opts ...Option) *Client {
	p := &Client{
		baseURL:       baseURL,
		apiKey:        apiKey,
		refreshBuffer: time.Minute,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		subscribers:   make(map[int]func(*shelfmate.Session)),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// tokenResponse is the raw JSON response from the token endpoint.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

// Exchange trades a credential identifier and secret for a new session and
// notifies subscribers.
func (p *Client) Exchange(ctx context.Context, identifier, secret string) (*shelfmate.Session, error) {
	sess, err := p.grant(ctx, "password", map[string]string{
		"email":    identifier,
		"password": secret,
	})
	if err != nil {
		return nil, err
	}

	p.store(sess)
	return sess, nil
}

// CurrentSession returns the cached session, refreshing it if it is about
// to expire. No session is (nil, nil), not an error.
func (p *Client) CurrentSession(ctx context.Context) (*shelfmate.Session, error) {
	p.mu.RLock()
	sess := p.session
	p.mu.RUnlock()

	if sess == nil {
		return nil, nil
	}
	if time.Now().Before(sess.ExpiresAt.Add(-p.refreshBuffer)) {
		return sess, nil
	}

	// singleflight prevents a refresh stampede
	result, err, _ := p.sf.Do("refresh", func() (interface{}, error) {
		return p.grant(ctx, "refresh_token", map[string]string{
			"refresh_token": sess.RefreshToken,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shelfmate.ErrSessionProviderUnavailable, err)
	}

	fresh := result.(*shelfmate.Session)
	p.store(fresh)
	return fresh, nil
}

// Subscribe registers a session-change callback.
func (p *Client) Subscribe(fn func(*shelfmate.Session)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subscribers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

// Invalidate revokes the session with the provider. The local session is
// cleared and subscribers notified even when the remote call fails, so a
// degraded provider cannot pin the user logged in.
func (p *Client) Invalidate(ctx context.Context, s *shelfmate.Session) error {
	var remoteErr error
	if s != nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/logout", nil)
		if err != nil {
			remoteErr = err
		} else {
			req.Header.Set("Authorization", "Bearer "+s.AccessToken)
			req.Header.Set("apikey", p.apiKey)
			resp, err := p.httpClient.Do(req)
			if err != nil {
				remoteErr = err
			} else {
				_ = resp.Body.Close()
				if resp.StatusCode >= 300 {
					remoteErr = fmt.Errorf("logout returned status %d", resp.StatusCode)
				}
			}
		}
	}

	p.store(nil)

	if remoteErr != nil {
		return fmt.Errorf("%w: %v", shelfmate.ErrLogoutFailed, remoteErr)
	}
	return nil
}

// CreateUser provisions an identity through the admin surface. Requires a
// service key. Used by the bootstrap seeder.
func (p *Client) CreateUser(ctx context.Context, identifier, password string) (string, error) {
	if p.serviceKey == "" {
		return "", fmt.Errorf("shelfmate/provider: admin surface needs a service key")
	}

	body, _ := json.Marshal(map[string]any{
		"email":         identifier,
		"password":      password,
		"email_confirm": true,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/admin/users", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("shelfmate/provider: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)
	req.Header.Set("apikey", p.serviceKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("shelfmate/provider: create user: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("shelfmate/provider: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("shelfmate/provider: create user returned %d: %s", resp.StatusCode, raw)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", fmt.Errorf("shelfmate/provider: decode response: %w", err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("shelfmate/provider: empty user id in response")
	}
	return created.ID, nil
}

// grant posts to the token endpoint with the given grant type.
func (p *Client) grant(ctx context.Context, grantType string, form map[string]string) (*shelfmate.Session, error) {
	body, _ := json.Marshal(form)
	url := fmt.Sprintf("%s/token?grant_type=%s", p.baseURL, grantType)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("shelfmate/provider: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shelfmate/provider: token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("shelfmate/provider: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shelfmate/provider: token endpoint returned %d: %s", resp.StatusCode, raw)
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("shelfmate/provider: decode response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("shelfmate/provider: empty access_token in response")
	}

	sess := &shelfmate.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		UserID:       tr.User.ID,
		ExpiresAt:    time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}

	if p.verifier != nil {
		claims, err := p.verifier.Verify(tr.AccessToken)
		if err != nil {
			return nil, fmt.Errorf("shelfmate/provider: issued token failed verification: %w", err)
		}
		sess.UserID = claims.Subject
		sess.ExpiresAt = claims.ExpiresAt
	}
	return sess, nil
}

// store updates the cached session and fans the change out to subscribers.
func (p *Client) store(sess *shelfmate.Session) {
	p.mu.Lock()
	p.session = sess
	subs := make([]func(*shelfmate.Session), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(sess)
	}
}
