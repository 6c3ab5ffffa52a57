// Package session tracks who the current user is.
//
// A Store starts unresolved. Resolve asks the server once whether the session
// cookie identifies someone; after that the store is either authenticated or
// anonymous until Login, Logout or Refresh moves it. Listeners registered
// with Subscribe hear about every change of identity.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/coursestore/internal/client/api"
	"github.com/dmitrijs2005/coursestore/internal/client/models"
	"github.com/dmitrijs2005/coursestore/internal/logging"
)

// Backend is the part of the API client the store needs.
type Backend interface {
	Login(ctx context.Context, creds models.Credentials) error
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
}

// State is the store's belief about the current user.
type State int

const (
	StateUnresolved State = iota
	StateAuthenticated
	StateAnonymous
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unresolved"
	}
}

// Snapshot is a consistent view of the store.
type Snapshot struct {
	User    *models.User
	Loading bool
	State   State
}

// Listener is called after the identity changes. user is nil for anonymous.
type Listener func(ctx context.Context, user *models.User)

// Store holds the current user. It is safe for concurrent use.
type Store struct {
	backend Backend
	log     logging.Logger

	// dispatch is taken before mu by every identity write and held while
	// listeners run, so listeners see changes in write order.
	dispatch sync.Mutex

	mu        sync.Mutex
	user      *models.User
	resolved  bool
	version   uint64
	listeners []Listener

	resolveOnce sync.Once
	ready       chan struct{}
}

// NewStore returns an unresolved store. A nil log discards output.
func NewStore(backend Backend, log logging.Logger) *Store {
	if log == nil {
		log = logging.Discard()
	}
	return &Store{backend: backend, log: log, ready: make(chan struct{})}
}

// Resolve fetches the current identity. Only the first call does any work;
// later calls wait for it. Any failure leaves the store anonymous.
func (s *Store) Resolve(ctx context.Context) {
	s.resolveOnce.Do(func() {
		defer close(s.ready)

		s.mu.Lock()
		startVersion := s.version
		s.mu.Unlock()

		user, err := s.backend.Me(ctx)
		if err != nil {
			s.log.Info(ctx, "session not resolved, continuing anonymously", logging.Err(err))
			user = nil
		}

		if !s.setUserIfVersion(ctx, user, startVersion) {
			s.log.Debug(ctx, "resolve result discarded, identity changed meanwhile")
		}
	})
	<-s.ready
}

// Ready is closed once Resolve has completed.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Login exchanges credentials for a session cookie, then fetches the
// identity. The store changes only when both steps succeed.
func (s *Store) Login(ctx context.Context, creds models.Credentials) error {
	if err := models.Validate(creds); err != nil {
		return err
	}
	if err := s.backend.Login(ctx, creds); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	user, err := s.backend.Me(ctx)
	if err != nil {
		return fmt.Errorf("fetch identity: %w", err)
	}
	s.setUser(ctx, user)
	s.log.Info(ctx, "logged in", "user_id", user.ID, "username", user.Username)
	return nil
}

// Logout ends the server session and forgets the user. The local user is
// cleared even when the server call fails; that failure is still returned.
func (s *Store) Logout(ctx context.Context) error {
	err := s.backend.Logout(ctx)
	s.setUser(ctx, nil)
	if err != nil {
		s.log.Warn(ctx, "server logout failed, local session cleared", logging.Err(err))
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Refresh re-fetches the identity. On failure the previous user is kept,
// except for ErrUnauthorized which means the session is gone.
func (s *Store) Refresh(ctx context.Context) error {
	user, err := s.backend.Me(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			s.setUser(ctx, nil)
		}
		return fmt.Errorf("refresh identity: %w", err)
	}
	s.setUser(ctx, user)
	return nil
}

// Subscribe registers fn for identity changes.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Snapshot returns user, loading flag and state read under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{User: copyUser(s.user), Loading: !s.resolved, State: s.stateLocked()}
}

// State reports whether the store is unresolved, authenticated or anonymous.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// User returns a copy of the current user, or nil.
func (s *Store) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyUser(s.user)
}

// Loading is true until the first resolution completes.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.resolved
}

func (s *Store) stateLocked() State {
	switch {
	case s.user != nil:
		return StateAuthenticated
	case !s.resolved:
		return StateUnresolved
	default:
		return StateAnonymous
	}
}

// setUser stores user and, when the identity changed, notifies listeners.
func (s *Store) setUser(ctx context.Context, user *models.User) {
	s.commit(ctx, user, false, 0)
}

// setUserIfVersion is setUser guarded by the version seen when the caller
// started. It reports false, leaving the user untouched, when another write
// happened in between. The store is marked resolved either way.
func (s *Store) setUserIfVersion(ctx context.Context, user *models.User, version uint64) bool {
	return s.commit(ctx, user, true, version)
}

func (s *Store) commit(ctx context.Context, user *models.User, checkVersion bool, version uint64) bool {
	s.dispatch.Lock()
	defer s.dispatch.Unlock()

	s.mu.Lock()
	s.resolved = true
	if checkVersion && s.version != version {
		s.mu.Unlock()
		return false
	}
	prev := s.user
	s.user = copyUser(user)
	s.version++
	changed := !models.SameIdentity(prev, user)
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn(ctx, copyUser(user))
		}
	}
	return true
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
