package roles

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	shelfmate "github.com/adarshmaurya03/shelfmate-suite"
	"github.com/adarshmaurya03/shelfmate-suite/audit"
)

// mockDirectory serves canned profiles and roles, with optional per-user
// delays so tests can interleave resolutions.
type mockDirectory struct {
	mu       sync.Mutex
	profiles map[string]*shelfmate.Profile
	roles    map[string][]shelfmate.RoleAssignment
	delays   map[string]time.Duration
	failAll  bool
}

func newMockDirectory() *mockDirectory {
	return &mockDirectory{
		profiles: make(map[string]*shelfmate.Profile),
		roles:    make(map[string][]shelfmate.RoleAssignment),
		delays:   make(map[string]time.Duration),
	}
}

func (d *mockDirectory) addUser(id, username string, roleNames ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[id] = &shelfmate.Profile{ID: id, Username: username, Active: true}
	for _, r := range roleNames {
		d.roles[id] = append(d.roles[id], shelfmate.RoleAssignment{UserID: id, Role: r})
	}
}

func (d *mockDirectory) ProfileByUsername(ctx context.Context, username string) (*shelfmate.Profile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.profiles {
		if p.Username == username {
			return p, nil
		}
	}
	return nil, nil
}

func (d *mockDirectory) ProfileByID(ctx context.Context, id string) (*shelfmate.Profile, error) {
	d.mu.Lock()
	delay := d.delays[id]
	failAll := d.failAll
	p := d.profiles[id]
	d.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failAll {
		return nil, errors.New("store unreachable")
	}
	return p, nil
}

func (d *mockDirectory) RolesByUserID(ctx context.Context, id string) ([]shelfmate.RoleAssignment, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAll {
		return nil, errors.New("store unreachable")
	}
	return d.roles[id], nil
}

// mockSource is a hand-cranked SessionSource.
type mockSource struct {
	mu       sync.Mutex
	session  *shelfmate.Session
	watchers []func(*shelfmate.Session)
}

func (m *mockSource) Current() *shelfmate.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

func (m *mockSource) UserID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.UserID
}

func (m *mockSource) Watch(fn func(*shelfmate.Session)) func() {
	m.mu.Lock()
	m.watchers = append(m.watchers, fn)
	m.mu.Unlock()
	return func() {}
}

func (m *mockSource) emit(s *shelfmate.Session) {
	m.mu.Lock()
	m.session = s
	watchers := append([]func(*shelfmate.Session){}, m.watchers...)
	m.mu.Unlock()
	for _, fn := range watchers {
		fn(s)
	}
}

func settledAccess(t *testing.T, r *Resolver) shelfmate.ResolvedAccess {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	access := r.AwaitSettled(ctx)
	if access.IsLoading {
		t.Fatal("resolution never settled")
	}
	return access
}

func TestIsAdmin_Fold(t *testing.T) {
	tests := []struct {
		name        string
		assignments []shelfmate.RoleAssignment
		want        bool
	}{
		{"empty set", nil, false},
		{"single admin", []shelfmate.RoleAssignment{{UserID: "u", Role: "admin"}}, true},
		{"single user", []shelfmate.RoleAssignment{{UserID: "u", Role: "user"}}, false},
		{"mixed", []shelfmate.RoleAssignment{{UserID: "u", Role: "user"}, {UserID: "u", Role: "admin"}}, true},
		{"unknown roles only", []shelfmate.RoleAssignment{{UserID: "u", Role: "librarian"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAdmin(tt.assignments); got != tt.want {
				t.Errorf("IsAdmin(%v) = %v, want %v", tt.assignments, got, tt.want)
			}
		})
	}
}

func TestResolve_AdminUser(t *testing.T) {
	dir := newMockDirectory()
	dir.addUser("u1", "adm", "admin")
	r := New(dir)

	access := r.Resolve(context.Background(), "u1")

	if !access.IsAdmin {
		t.Error("IsAdmin should be true for a user with an admin assignment")
	}
	if access.IsLoading {
		t.Error("IsLoading should be false after a synchronous resolve")
	}
}

func TestResolve_MissingProfileIsNotAnError(t *testing.T) {
	dir := newMockDirectory()
	r := New(dir)

	access := r.Resolve(context.Background(), "ghost")

	if access.IsAdmin || access.IsLoading {
		t.Errorf("access = %+v, want logged-out default", access)
	}
}

func TestResolve_LookupFailureDegradesToNonAdmin(t *testing.T) {
	dir := newMockDirectory()
	dir.addUser("u1", "adm", "admin")
	dir.failAll = true
	r := New(dir)

	access := r.Resolve(context.Background(), "u1")

	if access.IsAdmin {
		t.Error("a failed lookup must not grant admin")
	}
	if access.IsLoading {
		t.Error("a failed lookup must still settle")
	}
}

func TestResolve_Idempotent(t *testing.T) {
	dir := newMockDirectory()
	dir.addUser("u1", "adm", "admin")
	r := New(dir)

	first := r.Resolve(context.Background(), "u1")
	second := r.Resolve(context.Background(), "u1")

	if first != second {
		t.Errorf("repeated resolution diverged: %+v vs %+v", first, second)
	}
}

func TestBind_SessionPresentResolves(t *testing.T) {
	dir := newMockDirectory()
	dir.addUser("u1", "adm", "admin")
	r := New(dir)
	src := &mockSource{}
	defer r.Bind(src)()

	src.emit(&shelfmate.Session{UserID: "u1"})

	if access := settledAccess(t, r); !access.IsAdmin {
		t.Error("bound resolver should classify u1 as admin")
	}
}

func TestBind_AbsentSessionForcesLoggedOut(t *testing.T) {
	dir := newMockDirectory()
	dir.addUser("u1", "adm", "admin")
	r := New(dir)
	src := &mockSource{}
	defer r.Bind(src)()

	src.emit(&shelfmate.Session{UserID: "u1"})
	settledAccess(t, r)
	src.emit(nil)

	access := r.Access()
	if access != shelfmate.LoggedOut() {
		t.Errorf("access after logout = %+v, want logged-out default", access)
	}
}

func TestBind_StaleResolutionDiscarded(t *testing.T) {
	dir := newMockDirectory()
	dir.addUser("a", "adm", "admin")
	dir.addUser("b", "user", "user")
	dir.mu.Lock()
	dir.delays["a"] = 100 * time.Millisecond
	dir.mu.Unlock()

	dropped := make(chan struct{}, 1)
	r := New(dir, WithStaleDropHook(func() {
		select {
		case dropped <- struct{}{}:
		default:
		}
	}))
	src := &mockSource{}
	defer r.Bind(src)()

	// A's resolution is still in flight when the identity changes to B.
	src.emit(&shelfmate.Session{UserID: "a"})
	src.emit(&shelfmate.Session{UserID: "b"})

	access := settledAccess(t, r)
	if access.IsAdmin {
		t.Error("settled access must reflect b's roles, never a's")
	}

	// Give a's delayed resolution a chance to complete and be discarded.
	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded resolution was never discarded")
	}
	if r.Access().IsAdmin {
		t.Error("a's late settle overwrote b's resolution")
	}
}

func TestSettleHook_SeesAppliedResult(t *testing.T) {
	dir := newMockDirectory()
	dir.addUser("u1", "adm", "admin")

	settled := make(chan shelfmate.ResolvedAccess, 1)
	r := New(dir, WithSettleHook(func(a shelfmate.ResolvedAccess) {
		select {
		case settled <- a:
		default:
		}
	}))
	src := &mockSource{}
	defer r.Bind(src)()

	src.emit(&shelfmate.Session{UserID: "u1"})

	select {
	case a := <-settled:
		if !a.IsAdmin || a.IsLoading {
			t.Errorf("hook saw %+v, want settled admin access", a)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("settle hook never fired")
	}
}

func TestResolution_RecordsAuditEvent(t *testing.T) {
	events := make(chan audit.Event, 1)
	log := audit.New(1, audit.WithHandler(func(e audit.Event) { events <- e }))
	defer log.Close()

	dir := newMockDirectory()
	dir.addUser("u1", "adm", "admin")
	r := New(dir, WithAudit(log))
	src := &mockSource{}
	defer r.Bind(src)()

	src.emit(&shelfmate.Session{UserID: "u1"})

	select {
	case e := <-events:
		if e.Action != audit.ActionRoleResolve || e.Result != audit.ResultSuccess {
			t.Errorf("audit event = %+v, want action %q result %q", e, audit.ActionRoleResolve, audit.ResultSuccess)
		}
		if e.UserID != "u1" || e.Details != "admin" {
			t.Errorf("audit event = %+v, want user u1 classified admin", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("resolution never reached the audit trail")
	}
}

func TestAwaitSettled_TimeoutReturnsLoading(t *testing.T) {
	dir := newMockDirectory()
	dir.addUser("slow", "slow")
	dir.mu.Lock()
	dir.delays["slow"] = time.Second
	dir.mu.Unlock()

	r := New(dir)
	src := &mockSource{}
	defer r.Bind(src)()
	src.emit(&shelfmate.Session{UserID: "slow"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	access := r.AwaitSettled(ctx)

	if !access.IsLoading {
		t.Error("AwaitSettled under a short deadline should report IsLoading")
	}
}
