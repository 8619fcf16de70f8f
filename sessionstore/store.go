// Package sessionstore holds the current authentication session as an
// owned, observable state container.
//
// On construction the store performs one eager fetch of any pre-existing
// session (page-reload / cold-start) and simultaneously registers a
// persistent subscription for future session-change notifications from the
// identity provider. Both paths converge on the same shared state through a
// monotonic version counter: a later write always wins, and an in-flight
// eager fetch that completes after a subscription event has already updated
// state can never overwrite the newer value.
package sessionstore

import (
	"context"
	"sync"

	shelfmate "github.com/adarshmaurya03/shelfmate-suite"
)

// Store implements shelfmate.SessionSource.
type Store struct {
	mu      sync.RWMutex
	session *shelfmate.Session
	version uint64

	watchers map[int]func(*shelfmate.Session)
	nextID   int

	unsubscribe func()
	closeOnce   sync.Once
}

// compile-time check
var _ shelfmate.SessionSource = (*Store)(nil)

// New creates a Store bound to the identity provider. The subscription is
// registered before the eager fetch is issued, so a login racing with
// startup is never missed. The eager fetch runs in the background; a
// provider failure there degrades to logged out rather than surfacing an
// error.
func New(ctx context.Context, provider shelfmate.IdentityProvider) *Store {
	s := &Store{watchers: make(map[int]func(*shelfmate.Session))}
	s.unsubscribe = provider.Subscribe(s.apply)
	go s.eagerFetch(ctx, provider)
	return s
}

// eagerFetch loads any pre-existing session. Its result only applies if no
// subscription event has written state in the meantime.
func (s *Store) eagerFetch(ctx context.Context, provider shelfmate.IdentityProvider) {
	sess, err := provider.CurrentSession(ctx)
	if err != nil {
		// Degrade to logged out; the subscription will deliver any
		// later session the provider establishes.
		sess = nil
	}

	s.mu.Lock()
	if s.version == 0 {
		s.session = sess
		s.version++
		s.notifyLocked(sess)
	}
	s.mu.Unlock()
}

// apply records a session-change notification. Subscription events always
// carry the provider's newest state, so each one takes a fresh version.
func (s *Store) apply(sess *shelfmate.Session) {
	s.mu.Lock()
	s.session = sess
	s.version++
	s.notifyLocked(sess)
	s.mu.Unlock()
}

// notifyLocked fans the new value out to watchers. Callers hold s.mu, so
// watcher callbacks observe writes in version order.
func (s *Store) notifyLocked(sess *shelfmate.Session) {
	for _, fn := range s.watchers {
		fn(sess)
	}
}

// Current returns the cached session, or nil when logged out.
func (s *Store) Current() *shelfmate.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// UserID returns the current session's subject, or "" when logged out.
func (s *Store) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return ""
	}
	return s.session.UserID
}

// Version returns the number of state writes applied so far.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Watch registers a callback invoked on every applied session change. If a
// state write has already been applied, the current value is replayed to
// the new watcher immediately, so a watcher registered after the eager
// fetch completes still observes the pre-existing session. The callback
// runs with the store lock held; watchers must not call back into the
// store and should hand off real work instead of blocking.
func (s *Store) Watch(fn func(*shelfmate.Session)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	if s.version > 0 {
		fn(s.session)
	}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

// Close releases the provider subscription.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
	})
	return nil
}
