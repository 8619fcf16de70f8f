// Package directory implements the relational directory contract over
// Postgres.
//
// The schema is the hosted backend's public schema: a profiles table keyed
// by the identity-provider user id, and a user_roles table holding the
// many-to-many identity-to-role mapping.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	shelfmate "github.com/adarshmaurya03/shelfmate-suite"
)

// Store implements shelfmate.Directory over database/sql.
type Store struct {
	db *sql.DB
}

// compile-time check
var _ shelfmate.Directory = (*Store)(nil)

// Open connects to Postgres with the given DSN.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("shelfmate/directory: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ProfileByUsername looks up a profile by its unique username. An absent
// row is (nil, nil).
func (s *Store) ProfileByUsername(ctx context.Context, username string) (*shelfmate.Profile, error) {
	return s.profile(ctx, `
		SELECT id, username, name, is_active
		FROM public.profiles
		WHERE username = $1
	`, username)
}

// ProfileByID looks up a profile by user id. An absent row is (nil, nil).
func (s *Store) ProfileByID(ctx context.Context, id string) (*shelfmate.Profile, error) {
	return s.profile(ctx, `
		SELECT id, username, name, is_active
		FROM public.profiles
		WHERE id = $1
	`, id)
}

func (s *Store) profile(ctx context.Context, query, arg string) (*shelfmate.Profile, error) {
	var p shelfmate.Profile
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&p.ID, &p.Username, &p.Name, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shelfmate.ErrProfileLookupFailed, err)
	}
	return &p, nil
}

// RolesByUserID returns all role assignments for a user, in no particular
// order.
func (s *Store) RolesByUserID(ctx context.Context, id string) ([]shelfmate.RoleAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, role
		FROM public.user_roles
		WHERE user_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("shelfmate/directory: roles query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assignments []shelfmate.RoleAssignment
	for rows.Next() {
		var a shelfmate.RoleAssignment
		if err := rows.Scan(&a.UserID, &a.Role); err != nil {
			return nil, fmt.Errorf("shelfmate/directory: scan role: %w", err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("shelfmate/directory: roles rows: %w", err)
	}
	return assignments, nil
}

// InsertProfile writes a profile record. Used by the bootstrap seeder.
func (s *Store) InsertProfile(ctx context.Context, p shelfmate.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO public.profiles (id, username, name, is_active)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.Username, p.Name, p.Active)
	if err != nil {
		return fmt.Errorf("shelfmate/directory: insert profile: %w", err)
	}
	return nil
}

// AssignRole writes a role assignment. Used by the bootstrap seeder.
func (s *Store) AssignRole(ctx context.Context, userID, role string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO public.user_roles (user_id, role)
		VALUES ($1, $2)
	`, userID, role)
	if err != nil {
		return fmt.Errorf("shelfmate/directory: assign role: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
