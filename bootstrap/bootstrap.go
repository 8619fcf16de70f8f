// Package bootstrap seeds the two demo identities the shelfmate demo
// environment ships with.
//
// Seeding is idempotent: if either demo profile already exists the seeder
// reports so and changes nothing. The returned Result is a machine-readable
// status payload consumed by setup tooling.
package bootstrap

import (
	"context"
	"fmt"

	shelfmate "github.com/adarshmaurya03/shelfmate-suite"
)

// Accounts is the slice of the identity provider's admin surface the
// seeder needs. Implemented by provider.Client and fake.Provider.
type Accounts interface {
	// CreateUser provisions an identity with credentials and returns its id.
	CreateUser(ctx context.Context, identifier, password string) (string, error)
}

// Store is the slice of the directory the seeder needs. Implemented by
// directory.Store and fake.Directory.
type Store interface {
	ProfileByUsername(ctx context.Context, username string) (*shelfmate.Profile, error)
	InsertProfile(ctx context.Context, p shelfmate.Profile) error
	AssignRole(ctx context.Context, userID, role string) error
}

// Result is the status payload returned to setup tooling.
type Result struct {
	Message string                 `json:"message"`
	Users   []shelfmate.SeededUser `json:"users,omitempty"`
}

type demoUser struct {
	username string
	password string
	name     string
	role     string
}

var demoUsers = []demoUser{
	{username: "adm", password: "adm", name: "Administrator", role: shelfmate.RoleAdmin},
	{username: "user", password: "user", name: "Regular User", role: shelfmate.RoleUser},
}

// Seeder creates the demo identities.
type Seeder struct {
	accounts Accounts
	store    Store
	domain   string
}

// New creates a Seeder. domain is the credential domain appended to
// usernames, e.g. "library.local".
func New(accounts Accounts, store Store, domain string) *Seeder {
	return &Seeder{accounts: accounts, store: store, domain: domain}
}

// EnsureDemoUsers creates the demo identities with fixed credentials and
// roles, or reports that they already exist.
func (s *Seeder) EnsureDemoUsers(ctx context.Context) (*Result, error) {
	for _, u := range demoUsers {
		existing, err := s.store.ProfileByUsername(ctx, u.username)
		if err != nil {
			return nil, fmt.Errorf("shelfmate/bootstrap: check %q: %w", u.username, err)
		}
		if existing != nil {
			return &Result{Message: "Demo users already exist"}, nil
		}
	}

	result := &Result{Message: "Demo users created successfully"}
	for _, u := range demoUsers {
		id, err := s.accounts.CreateUser(ctx, u.username+"@"+s.domain, u.password)
		if err != nil {
			return nil, fmt.Errorf("shelfmate/bootstrap: create %q: %w", u.username, err)
		}
		if err := s.store.InsertProfile(ctx, shelfmate.Profile{
			ID:       id,
			Username: u.username,
			Name:     u.name,
			Active:   true,
		}); err != nil {
			return nil, fmt.Errorf("shelfmate/bootstrap: profile %q: %w", u.username, err)
		}
		if err := s.store.AssignRole(ctx, id, u.role); err != nil {
			return nil, fmt.Errorf("shelfmate/bootstrap: role %q: %w", u.username, err)
		}
		result.Users = append(result.Users, shelfmate.SeededUser{
			Username: u.username,
			Password: u.password,
			Role:     u.role,
		})
	}
	return result, nil
}
