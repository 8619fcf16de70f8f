// Package fake provides in-memory implementations of the identity provider
// and directory contracts for testing.
//
// Use fake.New() in unit tests to avoid network calls and external
// dependencies. The fake provider behaves like the real one where the core
// depends on it: Exchange and Invalidate emit session-change events to
// subscribers, and Invalidate clears the local session even when it is
// configured to fail, so logout never leaves a stale session behind.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	shelfmate "github.com/adarshmaurya03/shelfmate-suite"
)

// Option configures the fake backends.
type Option func(*state)

type credential struct {
	hash   []byte
	userID string
}

type state struct {
	mu        sync.RWMutex
	profiles  map[string]*shelfmate.Profile // userID → profile
	usernames map[string]string             // username → userID
	creds     map[string]credential         // credential identifier → credential
	roles     map[string][]shelfmate.RoleAssignment
	domain    string

	session     *shelfmate.Session
	subscribers map[int]func(*shelfmate.Session)
	nextSub     int

	currentErr    error
	invalidateErr error
}

// WithUser seeds a user with bcrypt-hashed credentials and the given roles.
// The user id is generated; look it up via the directory when needed.
func WithUser(username, password string, roleNames ...string) Option {
	return func(s *state) {
		id := uuid.NewString()
		s.profiles[id] = &shelfmate.Profile{
			ID:       id,
			Username: username,
			Name:     username,
			Active:   true,
		}
		s.usernames[username] = id

		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		s.creds[username+"@"+s.domain] = credential{hash: hash, userID: id}

		for _, r := range roleNames {
			s.roles[id] = append(s.roles[id], shelfmate.RoleAssignment{UserID: id, Role: r})
		}
	}
}

// WithCredentialDomain sets the domain used to form credential identifiers.
// Must come before WithUser options. Default: "library.local".
func WithCredentialDomain(domain string) Option {
	return func(s *state) { s.domain = domain }
}

// WithExistingSession seeds a pre-existing session, as if the user were
// already logged in before the process started.
func WithExistingSession(userID string) Option {
	return func(s *state) {
		s.session = &shelfmate.Session{
			AccessToken: uuid.NewString(),
			UserID:      userID,
			ExpiresAt:   time.Now().Add(time.Hour),
		}
	}
}

// New creates a fake identity provider and directory sharing one in-memory
// state.
func New(opts ...Option) (*Provider, *Directory) {
	s := &state{
		profiles:    make(map[string]*shelfmate.Profile),
		usernames:   make(map[string]string),
		creds:       make(map[string]credential),
		roles:       make(map[string][]shelfmate.RoleAssignment),
		subscribers: make(map[int]func(*shelfmate.Session)),
		domain:      shelfmate.DefaultCredentialDomain,
	}
	for _, o := range opts {
		o(s)
	}
	return &Provider{s: s}, &Directory{s: s}
}

// --- IdentityProvider ---

// Provider is the in-memory identity provider.
type Provider struct{ s *state }

// compile-time check
var _ shelfmate.IdentityProvider = (*Provider)(nil)

// Exchange validates the credential pair and establishes a new session,
// notifying subscribers.
func (p *Provider) Exchange(_ context.Context, identifier, secret string) (*shelfmate.Session, error) {
	p.s.mu.Lock()
	cred, ok := p.s.creds[identifier]
	if !ok || bcrypt.CompareHashAndPassword(cred.hash, []byte(secret)) != nil {
		p.s.mu.Unlock()
		return nil, fmt.Errorf("shelfmate/fake: credentials rejected")
	}

	sess := &shelfmate.Session{
		AccessToken:  uuid.NewString(),
		RefreshToken: uuid.NewString(),
		UserID:       cred.userID,
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	p.s.session = sess
	subs := p.subscribersLocked()
	p.s.mu.Unlock()

	for _, fn := range subs {
		fn(sess)
	}
	return sess, nil
}

// CurrentSession returns the established session, or nil when logged out.
func (p *Provider) CurrentSession(_ context.Context) (*shelfmate.Session, error) {
	p.s.mu.RLock()
	defer p.s.mu.RUnlock()
	if p.s.currentErr != nil {
		return nil, p.s.currentErr
	}
	return p.s.session, nil
}

// Subscribe registers a session-change callback.
func (p *Provider) Subscribe(fn func(*shelfmate.Session)) func() {
	p.s.mu.Lock()
	id := p.s.nextSub
	p.s.nextSub++
	p.s.subscribers[id] = fn
	p.s.mu.Unlock()

	return func() {
		p.s.mu.Lock()
		delete(p.s.subscribers, id)
		p.s.mu.Unlock()
	}
}

// Invalidate destroys the session and notifies subscribers. When a failure
// is injected the local session is still cleared, mirroring the degraded
// logout path of the real provider client.
func (p *Provider) Invalidate(_ context.Context, _ *shelfmate.Session) error {
	p.s.mu.Lock()
	p.s.session = nil
	err := p.s.invalidateErr
	subs := p.subscribersLocked()
	p.s.mu.Unlock()

	for _, fn := range subs {
		fn(nil)
	}
	return err
}

// CreateUser provisions an identity with credentials, as the provider's
// admin API would. Used by the bootstrap seeder.
func (p *Provider) CreateUser(_ context.Context, identifier, password string) (string, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	if _, exists := p.s.creds[identifier]; exists {
		return "", fmt.Errorf("shelfmate/fake: identifier %q already registered", identifier)
	}
	id := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", err
	}
	p.s.creds[identifier] = credential{hash: hash, userID: id}
	return id, nil
}

// FailCurrentSession makes CurrentSession return err (nil restores normal
// behavior).
func (p *Provider) FailCurrentSession(err error) {
	p.s.mu.Lock()
	p.s.currentErr = err
	p.s.mu.Unlock()
}

// FailInvalidate makes Invalidate return err while still clearing the
// session locally.
func (p *Provider) FailInvalidate(err error) {
	p.s.mu.Lock()
	p.s.invalidateErr = err
	p.s.mu.Unlock()
}

func (p *Provider) subscribersLocked() []func(*shelfmate.Session) {
	subs := make([]func(*shelfmate.Session), 0, len(p.s.subscribers))
	for _, fn := range p.s.subscribers {
		subs = append(subs, fn)
	}
	return subs
}

// --- Directory ---

// Directory is the in-memory relational directory.
type Directory struct{ s *state }

// compile-time check
var _ shelfmate.Directory = (*Directory)(nil)

// ProfileByUsername looks up a profile by username. Absent is (nil, nil).
func (d *Directory) ProfileByUsername(_ context.Context, username string) (*shelfmate.Profile, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	id, ok := d.s.usernames[username]
	if !ok {
		return nil, nil
	}
	p := *d.s.profiles[id]
	return &p, nil
}

// ProfileByID looks up a profile by user id. Absent is (nil, nil).
func (d *Directory) ProfileByID(_ context.Context, id string) (*shelfmate.Profile, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()

	profile, ok := d.s.profiles[id]
	if !ok {
		return nil, nil
	}
	p := *profile
	return &p, nil
}

// RolesByUserID returns all role assignments for a user.
func (d *Directory) RolesByUserID(_ context.Context, id string) ([]shelfmate.RoleAssignment, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	return append([]shelfmate.RoleAssignment(nil), d.s.roles[id]...), nil
}

// InsertProfile writes a profile record. Used by the bootstrap seeder.
func (d *Directory) InsertProfile(_ context.Context, p shelfmate.Profile) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	if _, exists := d.s.profiles[p.ID]; exists {
		return fmt.Errorf("shelfmate/fake: profile %q already exists", p.ID)
	}
	stored := p
	d.s.profiles[p.ID] = &stored
	d.s.usernames[p.Username] = p.ID
	return nil
}

// AssignRole writes a role assignment. Used by the bootstrap seeder.
func (d *Directory) AssignRole(_ context.Context, userID, role string) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()

	d.s.roles[userID] = append(d.s.roles[userID], shelfmate.RoleAssignment{UserID: userID, Role: role})
	return nil
}

// UserID returns the generated id for a seeded username, or "".
func (d *Directory) UserID(username string) string {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	return d.s.usernames[username]
}
