package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"fintrack/internal/core"
	"fintrack/internal/ports"
)

// timeLayout sorts lexicographically in the same order as the instants.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

var _ ports.Backend = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListTransactions implements ports.TransactionRepository
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := row.toCore()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

// InsertTransaction implements ports.TransactionRepository
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, userID string, d core.Draft) (core.Transaction, error) {
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        string(d.Kind),
		AmountCents: d.Amount.Cents,
		Category:    d.Category,
		Description: d.Description,
		Date:        d.Date.String(),
		CreatedAt:   formatTime(r.now()),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"user_id", row.UserID,
		"type", row.Type,
		"amount_cents", row.AmountCents)

	return row.toCore()
}

// UpdateTransaction implements ports.TransactionRepository
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID, id string, p core.Patch) (core.Transaction, error) {
	arg := UpdateTransactionParams{ID: id, UserID: userID}
	if p.Kind != nil {
		arg.Type = sql.NullString{String: string(*p.Kind), Valid: true}
	}
	if p.Amount != nil {
		arg.AmountCents = sql.NullInt64{Int64: p.Amount.Cents, Valid: true}
	}
	if p.Category != nil {
		arg.Category = sql.NullString{String: strings.TrimSpace(*p.Category), Valid: true}
	}
	if p.Description != nil {
		arg.Description = sql.NullString{String: strings.TrimSpace(*p.Description), Valid: true}
	}
	if p.Date != nil {
		arg.Date = sql.NullString{String: p.Date.String(), Valid: true}
	}

	row, err := r.queries.UpdateTransaction(ctx, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	return row.toCore()
}

// DeleteTransaction implements ports.TransactionRepository
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, ports.ErrNotFound)
	}
	return nil
}

// CreateUser implements ports.UserStore
func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash, name string) (core.Profile, error) {
	row, err := r.queries.CreateUser(ctx, CreateUserParams{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
		CreatedAt:    formatTime(r.now()),
	})
	if isUniqueViolation(err) {
		return core.Profile{}, ports.ErrEmailTaken
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("create user: %w", err)
	}
	return row.toProfile()
}

// GetCredentials implements ports.UserStore
func (r *SQLiteRepository) GetCredentials(ctx context.Context, email string) (ports.Credentials, error) {
	row, err := r.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Credentials{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.Credentials{}, fmt.Errorf("get user by email: %w", err)
	}
	return ports.Credentials{UserID: row.ID, Email: row.Email, PasswordHash: row.PasswordHash}, nil
}

// GetProfile implements ports.UserStore
func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	row, err := r.queries.GetUser(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, fmt.Errorf("user %s: %w", userID, ports.ErrNotFound)
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get user: %w", err)
	}
	return row.toProfile()
}

// UpdateProfile implements ports.UserStore
func (r *SQLiteRepository) UpdateProfile(ctx context.Context, userID string, p core.ProfilePatch) (core.Profile, error) {
	arg := UpdateUserProfileParams{ID: userID}
	if p.Name != nil {
		arg.Name = sql.NullString{String: strings.TrimSpace(*p.Name), Valid: true}
	}
	if p.ProfilePicturePath != nil {
		arg.ProfilePicturePath = sql.NullString{String: strings.TrimSpace(*p.ProfilePicturePath), Valid: true}
	}
	row, err := r.queries.UpdateUserProfile(ctx, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, fmt.Errorf("user %s: %w", userID, ports.ErrNotFound)
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return row.toProfile()
}

// CreateSession implements ports.SessionStore
func (r *SQLiteRepository) CreateSession(ctx context.Context, s ports.Session) error {
	err := r.queries.CreateSession(ctx, s.ID, s.UserID, formatTime(s.CreatedAt), formatTime(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession implements ports.SessionStore
func (r *SQLiteRepository) GetSession(ctx context.Context, id string) (ports.Session, error) {
	row, err := r.queries.GetSession(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Session{}, ports.ErrNotFound
	}
	if err != nil {
		return ports.Session{}, fmt.Errorf("get session: %w", err)
	}
	return row.toPort()
}

// RevokeSession implements ports.SessionStore. Revoking twice is not an error.
func (r *SQLiteRepository) RevokeSession(ctx context.Context, id string) error {
	n, err := r.queries.RevokeSession(ctx, formatTime(r.now()), id)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if n == 0 {
		if _, err := r.GetSession(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// PurgeSessions deletes expired and revoked sessions.
func (r *SQLiteRepository) PurgeSessions(ctx context.Context) (int64, error) {
	n, err := r.queries.DeleteExpiredSessions(ctx, formatTime(r.now()))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}

func (row TransactionRow) toCore() (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", row.ID, err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", row.ID, err)
	}
	return core.Transaction{
		ID:          row.ID,
		UserID:      row.UserID,
		Kind:        core.Kind(row.Type),
		Amount:      core.Cents(row.AmountCents),
		Category:    row.Category,
		Description: row.Description,
		Date:        date,
		CreatedAt:   created,
	}, nil
}

func (row UserRow) toProfile() (core.Profile, error) {
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Profile{}, fmt.Errorf("user %s: %w", row.ID, err)
	}
	return core.Profile{
		ID:                 row.ID,
		Name:               row.Name,
		Email:              row.Email,
		ProfilePicturePath: row.ProfilePicturePath,
		CreatedAt:          created,
	}, nil
}

func (row SessionRow) toPort() (ports.Session, error) {
	s := ports.Session{ID: row.ID, UserID: row.UserID}
	var err error
	if s.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return ports.Session{}, err
	}
	if s.ExpiresAt, err = parseTime(row.ExpiresAt); err != nil {
		return ports.Session{}, err
	}
	if row.RevokedAt.Valid {
		if s.RevokedAt, err = parseTime(row.RevokedAt.String); err != nil {
			return ports.Session{}, err
		}
	}
	return s, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
