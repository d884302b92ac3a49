// Package memory is a process-local backend used in development and tests.
// Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

type user struct {
	creds   ports.Credentials
	profile core.Profile
}

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	users    map[string]*user // by id
	byEmail  map[string]string
	sessions map[string]ports.Session
	items    []core.Transaction
}

var _ ports.Backend = (*Store)(nil)

func New() *Store {
	return &Store{
		now:      time.Now,
		users:    make(map[string]*user),
		byEmail:  make(map[string]string),
		sessions: make(map[string]ports.Session),
	}
}

// ListTransactions returns copies ordered by date, then creation, newest first.
func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, tx := range s.items {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		if c := b.Date.Compare(a.Date.Time); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *Store) InsertTransaction(_ context.Context, userID string, d core.Draft) (core.Transaction, error) {
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return core.Transaction{}, fmt.Errorf("user %s: %w", userID, ports.ErrNotFound)
	}
	tx := core.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Kind:        d.Kind,
		Amount:      d.Amount,
		Category:    d.Category,
		Description: d.Description,
		Date:        d.Date,
		CreatedAt:   s.now().UTC(),
	}
	s.items = append(s.items, tx)
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, userID, id string, p core.Patch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(userID, id)
	if i < 0 {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ports.ErrNotFound)
	}
	s.items[i] = p.Apply(s.items[i])
	return s.items[i], nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(userID, id)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", id, ports.ErrNotFound)
	}
	s.items = slices.Delete(s.items, i, i+1)
	return nil
}

func (s *Store) indexOf(userID, id string) int {
	return slices.IndexFunc(s.items, func(tx core.Transaction) bool {
		return tx.ID == id && tx.UserID == userID
	})
}

func (s *Store) CreateUser(_ context.Context, email, passwordHash, name string) (core.Profile, error) {
	key := strings.ToLower(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[key]; ok {
		return core.Profile{}, ports.ErrEmailTaken
	}
	id := uuid.NewString()
	u := &user{
		creds:   ports.Credentials{UserID: id, Email: email, PasswordHash: passwordHash},
		profile: core.Profile{ID: id, Name: name, Email: email, CreatedAt: s.now().UTC()},
	}
	s.users[id] = u
	s.byEmail[key] = id
	return u.profile, nil
}

func (s *Store) GetCredentials(_ context.Context, email string) (ports.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return ports.Credentials{}, ports.ErrNotFound
	}
	return s.users[id].creds, nil
}

func (s *Store) GetProfile(_ context.Context, userID string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return core.Profile{}, fmt.Errorf("user %s: %w", userID, ports.ErrNotFound)
	}
	return u.profile, nil
}

func (s *Store) UpdateProfile(_ context.Context, userID string, p core.ProfilePatch) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return core.Profile{}, fmt.Errorf("user %s: %w", userID, ports.ErrNotFound)
	}
	u.profile = p.Apply(u.profile)
	return u.profile, nil
}

func (s *Store) CreateSession(_ context.Context, sess ports.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; ok {
		return fmt.Errorf("session %s already exists", sess.ID)
	}
	s.sessions[sess.ID] = sess
	return nil
}

func (s *Store) GetSession(_ context.Context, id string) (ports.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ports.Session{}, ports.ErrNotFound
	}
	return sess, nil
}

func (s *Store) RevokeSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ports.ErrNotFound
	}
	if sess.RevokedAt.IsZero() {
		sess.RevokedAt = s.now().UTC()
		s.sessions[id] = sess
	}
	return nil
}
