package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type TransactionRow struct {
	ID          string
	UserID      string
	Type        string
	AmountCents int64
	Category    string
	Description string
	Date        string
	CreatedAt   string
}

type UserRow struct {
	ID                 string
	Email              string
	PasswordHash       string
	Name               string
	ProfilePicturePath string
	CreatedAt          string
}

type SessionRow struct {
	ID        string
	UserID    string
	CreatedAt string
	ExpiresAt string
	RevokedAt sql.NullString
}

const transactionColumns = `id, user_id, type, amount_cents, category, description, date, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (TransactionRow, error) {
	var i TransactionRow
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Type,
		&i.AmountCents,
		&i.Category,
		&i.Description,
		&i.Date,
		&i.CreatedAt,
	)
	return i, err
}

const listTransactionsByUser = `-- name: ListTransactionsByUser :many
SELECT ` + transactionColumns + `
FROM transactions
WHERE user_id = ?
ORDER BY date DESC, created_at DESC
`

func (q *Queries) ListTransactionsByUser(ctx context.Context, userID string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TransactionRow{}
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	ID          string
	UserID      string
	Type        string
	AmountCents int64
	Category    string
	Description string
	Date        string
	CreatedAt   string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.ID,
		arg.UserID,
		arg.Type,
		arg.AmountCents,
		arg.Category,
		arg.Description,
		arg.Date,
		arg.CreatedAt,
	)
	return scanTransaction(row)
}

const updateTransaction = `-- name: UpdateTransaction :one
UPDATE transactions SET
    type         = COALESCE(?, type),
    amount_cents = COALESCE(?, amount_cents),
    category     = COALESCE(?, category),
    description  = COALESCE(?, description),
    date         = COALESCE(?, date)
WHERE id = ? AND user_id = ?
RETURNING ` + transactionColumns

type UpdateTransactionParams struct {
	Type        sql.NullString
	AmountCents sql.NullInt64
	Category    sql.NullString
	Description sql.NullString
	Date        sql.NullString
	ID          string
	UserID      string
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, updateTransaction,
		arg.Type,
		arg.AmountCents,
		arg.Category,
		arg.Description,
		arg.Date,
		arg.ID,
		arg.UserID,
	)
	return scanTransaction(row)
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions WHERE id = ? AND user_id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id, userID string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createUser = `-- name: CreateUser :one
INSERT INTO users (id, email, password_hash, name, profile_picture_path, created_at)
VALUES (?, ?, ?, ?, '', ?)
RETURNING id, email, password_hash, name, profile_picture_path, created_at
`

type CreateUserParams struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (UserRow, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.ID,
		arg.Email,
		arg.PasswordHash,
		arg.Name,
		arg.CreatedAt,
	)
	var i UserRow
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.Name, &i.ProfilePicturePath, &i.CreatedAt)
	return i, err
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, email, password_hash, name, profile_picture_path, created_at
FROM users WHERE email = ?
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (UserRow, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i UserRow
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.Name, &i.ProfilePicturePath, &i.CreatedAt)
	return i, err
}

const getUser = `-- name: GetUser :one
SELECT id, email, password_hash, name, profile_picture_path, created_at
FROM users WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id string) (UserRow, error) {
	row := q.db.QueryRowContext(ctx, getUser, id)
	var i UserRow
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.Name, &i.ProfilePicturePath, &i.CreatedAt)
	return i, err
}

const updateUserProfile = `-- name: UpdateUserProfile :one
UPDATE users SET
    name                 = COALESCE(?, name),
    profile_picture_path = COALESCE(?, profile_picture_path)
WHERE id = ?
RETURNING id, email, password_hash, name, profile_picture_path, created_at
`

type UpdateUserProfileParams struct {
	Name               sql.NullString
	ProfilePicturePath sql.NullString
	ID                 string
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (UserRow, error) {
	row := q.db.QueryRowContext(ctx, updateUserProfile, arg.Name, arg.ProfilePicturePath, arg.ID)
	var i UserRow
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &i.Name, &i.ProfilePicturePath, &i.CreatedAt)
	return i, err
}

const createSession = `-- name: CreateSession :exec
INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)
`

func (q *Queries) CreateSession(ctx context.Context, id, userID, createdAt, expiresAt string) error {
	_, err := q.db.ExecContext(ctx, createSession, id, userID, createdAt, expiresAt)
	return err
}

const getSession = `-- name: GetSession :one
SELECT id, user_id, created_at, expires_at, revoked_at FROM sessions WHERE id = ?
`

func (q *Queries) GetSession(ctx context.Context, id string) (SessionRow, error) {
	row := q.db.QueryRowContext(ctx, getSession, id)
	var i SessionRow
	err := row.Scan(&i.ID, &i.UserID, &i.CreatedAt, &i.ExpiresAt, &i.RevokedAt)
	return i, err
}

const revokeSession = `-- name: RevokeSession :execrows
UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL
`

func (q *Queries) RevokeSession(ctx context.Context, revokedAt, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, revokeSession, revokedAt, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpiredSessions = `-- name: DeleteExpiredSessions :execrows
DELETE FROM sessions WHERE expires_at < ? OR revoked_at IS NOT NULL
`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, before string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredSessions, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
