// Package store holds one user's transactions in memory and keeps them in
// step with the backend.
//
// The backend is the owner of record. The in-memory list only changes after
// the backend has confirmed a mutation, and a failed call leaves it exactly as
// it was. Mutations are not coordinated with each other: the lock is never
// held across a backend call, so when two requests race the last response to
// arrive wins.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/listing"
	"fintrack/internal/ports"
	"fintrack/internal/stats"
)

// Ordering decides where a newly created record lands in the list.
type Ordering int

const (
	// OrderCreatedFirst puts every new record at the head of the list,
	// whatever its date. The list is then "most recently created first"
	// for records created in this session and date-descending for the rest.
	OrderCreatedFirst Ordering = iota
	// OrderDateDescending keeps the whole list sorted by date, newest
	// first, after every mutation.
	OrderDateDescending
)

// ParseOrdering maps the configuration values "created" and "date".
func ParseOrdering(s string) (Ordering, error) {
	switch s {
	case "", "created":
		return OrderCreatedFirst, nil
	case "date":
		return OrderDateDescending, nil
	default:
		return 0, fmt.Errorf("invalid list ordering %q (want created or date)", s)
	}
}

func (o Ordering) String() string {
	if o == OrderDateDescending {
		return "date"
	}
	return "created"
}

// Store is the in-memory transaction list of a single user.
type Store struct {
	repo     ports.TransactionRepository
	userID   string
	ordering Ordering
	now      func() time.Time

	mu     sync.RWMutex
	txs    []core.Transaction
	loaded bool
}

type Option func(*Store)

// WithOrdering sets the insertion policy for Create.
func WithOrdering(o Ordering) Option {
	return func(s *Store) { s.ordering = o }
}

// WithClock overrides the clock used for the daily series.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty store for userID. Call Load to populate it.
func New(repo ports.TransactionRepository, userID string, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		userID: userID,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) UserID() string     { return s.userID }
func (s *Store) Ordering() Ordering { return s.ordering }

// Load fetches all of the user's transactions and replaces the list in one
// step. On error the previous list is kept.
func (s *Store) Load(ctx context.Context) error {
	txs, err := s.repo.ListTransactions(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	if s.ordering == OrderDateDescending {
		sortByDateDesc(txs)
	}
	s.mu.Lock()
	s.txs = txs
	s.loaded = true
	s.mu.Unlock()
	return nil
}

// Create stores d in the backend and adds the confirmed record to the list.
// On error the list is unchanged and the zero Transaction is returned.
func (s *Store) Create(ctx context.Context, d core.Draft) (core.Transaction, error) {
	d.Normalize()
	if err := d.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.repo.InsertTransaction(ctx, s.userID, d)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ordering == OrderDateDescending {
		s.txs = slices.Insert(s.txs, datePosition(s.txs, tx.Date), tx)
	} else {
		s.txs = slices.Insert(s.txs, 0, tx)
	}
	return tx, nil
}

// Update sends only the patched fields and swaps the backend's full record
// into the list at the same position.
func (s *Store) Update(ctx context.Context, id string, p core.Patch) (core.Transaction, error) {
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.repo.UpdateTransaction(ctx, s.userID, id, p)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(tx.ID); i >= 0 {
		s.txs[i] = tx
		if s.ordering == OrderDateDescending && p.Date != nil {
			sortByDateDesc(s.txs)
		}
	}
	return tx, nil
}

// Delete removes the record from the backend and, once the backend has
// confirmed, from the list.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteTransaction(ctx, s.userID, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.txs = slices.Delete(s.txs, i, i+1)
	}
	return nil
}

// Transactions returns a copy of the current list.
func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.txs)
}

// Get returns the record with the given id if it is in the list.
func (s *Store) Get(id string) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.txs[i], true
	}
	return core.Transaction{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.txs)
}

// Loaded reports whether at least one Load has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Stats computes the summary from the current list on every call.
func (s *Store) Stats() stats.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stats.Compute(s.txs)
}

// DailySeries computes the windowDays series ending today.
func (s *Store) DailySeries(windowDays int) []stats.DailyPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return stats.DailySeries(s.txs, s.now(), windowDays)
}

// Query filters and sorts the current list.
func (s *Store) Query(q listing.Query) []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listing.Apply(s.txs, q)
}

// Clear empties the list, as on sign-out.
func (s *Store) Clear() {
	s.mu.Lock()
	s.txs = nil
	s.loaded = false
	s.mu.Unlock()
}

func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.txs, func(tx core.Transaction) bool { return tx.ID == id })
}

// datePosition returns the index before the first record not newer than d,
// so that a new record leads its own day.
func datePosition(txs []core.Transaction, d core.Date) int {
	for i, tx := range txs {
		if !tx.Date.After(d.Time) {
			return i
		}
	}
	return len(txs)
}

func sortByDateDesc(txs []core.Transaction) {
	slices.SortStableFunc(txs, func(a, b core.Transaction) int {
		return b.Date.Compare(a.Date.Time)
	})
}
