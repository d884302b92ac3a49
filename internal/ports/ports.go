// Package ports declares the backend collaborator the application talks to.
// Adapters live in internal/storage (SQLite) and internal/backend/memory.
package ports

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/core"
)

var (
	// ErrNotFound is returned when a record does not exist within the
	// caller's scope. A record owned by someone else is reported the same way.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when signing up with a registered email.
	ErrEmailTaken = errors.New("email already registered")
)

type (
	// TransactionRepository is the durable owner of transaction records.
	// Every call is scoped to userID.
	TransactionRepository interface {
		// ListTransactions returns the user's records ordered by date
		// descending, newest creation first within a day.
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
		// InsertTransaction stores d and returns the record with id and
		// creation timestamp assigned.
		InsertTransaction(ctx context.Context, userID string, d core.Draft) (core.Transaction, error)
		// UpdateTransaction applies p to the user's record and returns the
		// full updated record.
		UpdateTransaction(ctx context.Context, userID, id string, p core.Patch) (core.Transaction, error)
		// DeleteTransaction removes the user's record. It returns ErrNotFound
		// when nothing was deleted.
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	// Credentials is what sign-in needs to check a password.
	Credentials struct {
		UserID       string
		Email        string
		PasswordHash string
	}

	UserStore interface {
		// CreateUser stores a new account and its profile.
		CreateUser(ctx context.Context, email, passwordHash, name string) (core.Profile, error)
		GetCredentials(ctx context.Context, email string) (Credentials, error)
		GetProfile(ctx context.Context, userID string) (core.Profile, error)
		UpdateProfile(ctx context.Context, userID string, p core.ProfilePatch) (core.Profile, error)
	}

	// Session is a server-side sign-in record. Tokens handed to clients
	// reference it by ID so that signing out can invalidate them.
	Session struct {
		ID        string
		UserID    string
		CreatedAt time.Time
		ExpiresAt time.Time
		RevokedAt time.Time
	}

	SessionStore interface {
		CreateSession(ctx context.Context, s Session) error
		GetSession(ctx context.Context, id string) (Session, error)
		RevokeSession(ctx context.Context, id string) error
	}

	// Backend bundles every port a deployment needs.
	Backend interface {
		TransactionRepository
		UserStore
		SessionStore
	}
)

// Active reports whether the session can still be used at now.
func (s Session) Active(now time.Time) bool {
	return s.RevokedAt.IsZero() && now.Before(s.ExpiresAt)
}
