// Package session owns the per-sign-in application state.
//
// A State is created when a user signs in (or when a request arrives with a
// valid token and no cached state), holds that user's TransactionStore, and
// is torn down on sign-out. Handlers receive it explicitly.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/auth"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/ports"
	"fintrack/internal/store"
)

// ErrNoSession is returned when a request carries no usable token.
var ErrNoSession = errors.New("not signed in")

// State is the application state of one signed-in session.
type State struct {
	Session      ports.Session
	Transactions *store.Store

	mu      sync.RWMutex
	profile core.Profile
}

func (s *State) UserID() string { return s.Session.UserID }

func (s *State) Profile() core.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

func (s *State) setProfile(p core.Profile) {
	s.mu.Lock()
	s.profile = p
	s.mu.Unlock()
}

// Config tunes the state cache and the list ordering of new stores.
type Config struct {
	Ordering  store.Ordering
	CacheSize int
	CacheTTL  time.Duration
}

type Manager struct {
	auth   *auth.Service
	repo   ports.TransactionRepository
	cfg    Config
	states *cache.LRUCache[*State]
	builds singleflight.Group
	logger *log.Logger
}

func NewManager(authSvc *auth.Service, repo ports.TransactionRepository, cfg Config, logger *log.Logger) *Manager {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 500
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	m := &Manager{
		auth:   authSvc,
		repo:   repo,
		cfg:    cfg,
		logger: logger.WithComponent(log.ComponentSession),
	}
	m.states = cache.NewLRUCache[*State](cfg.CacheSize, cfg.CacheTTL).OnEvict(func(id string, st *State) {
		m.logger.Debug("Session state dropped from cache", log.FieldSessionID, id, log.FieldUserID, st.UserID())
	})
	return m
}

// Cache exposes the state cache for the janitor.
func (m *Manager) Cache() cache.Cleaner { return m.states }

// SignUp creates the account and returns its token and fresh state.
func (m *Manager) SignUp(ctx context.Context, email, password, name string) (string, *State, error) {
	grant, err := m.auth.SignUp(ctx, email, password, name)
	if err != nil {
		return "", nil, err
	}
	return grant.Token, m.start(ctx, grant.Session, grant.Profile), nil
}

// SignIn checks the credentials and returns a token and loaded state.
func (m *Manager) SignIn(ctx context.Context, email, password string) (string, *State, error) {
	grant, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		return "", nil, err
	}
	return grant.Token, m.start(ctx, grant.Session, grant.Profile), nil
}

// Resolve returns the state for token, rebuilding it after a cache miss.
func (m *Manager) Resolve(ctx context.Context, token string) (*State, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	sess, err := m.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if st, ok := m.states.Get(sess.ID); ok {
		return st, nil
	}

	v, err, _ := m.builds.Do(sess.ID, func() (interface{}, error) {
		if st, ok := m.states.Get(sess.ID); ok {
			return st, nil
		}
		profile, err := m.auth.Profile(ctx, sess.UserID)
		if err != nil {
			return nil, fmt.Errorf("load profile: %w", err)
		}
		return m.start(ctx, sess, profile), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*State), nil
}

// SignOut revokes the token, clears the transaction list and forgets the
// state.
func (m *Manager) SignOut(ctx context.Context, token string) error {
	sess, authErr := m.auth.Authenticate(ctx, token)
	if err := m.auth.SignOut(ctx, token); err != nil {
		return err
	}
	if authErr == nil {
		if st, ok := m.states.Get(sess.ID); ok {
			st.Transactions.Clear()
		}
		m.states.Delete(sess.ID)
	}
	return nil
}

// UpdateProfile stores the patch and, on success, updates the state's copy.
func (m *Manager) UpdateProfile(ctx context.Context, st *State, p core.ProfilePatch) (core.Profile, error) {
	profile, err := m.auth.UpdateProfile(ctx, st.UserID(), p)
	if err != nil {
		return core.Profile{}, err
	}
	st.setProfile(profile)
	return profile, nil
}

// start builds a state and loads its transactions. A failed load leaves the
// list empty; the user can refresh later.
func (m *Manager) start(ctx context.Context, sess ports.Session, profile core.Profile) *State {
	st := &State{
		Session:      sess,
		Transactions: store.New(m.repo, sess.UserID, store.WithOrdering(m.cfg.Ordering)),
		profile:      profile,
	}
	if err := st.Transactions.Load(ctx); err != nil {
		m.logger.ErrorContext(ctx, "Initial transaction load failed",
			log.FieldUserID, sess.UserID,
			log.FieldOperation, log.OpLoad,
			log.FieldError, err)
	} else {
		m.logger.DebugContext(ctx, "Session state ready",
			log.FieldUserID, sess.UserID,
			log.FieldCount, st.Transactions.Len())
	}
	m.states.Set(sess.ID, st)
	return st
}
