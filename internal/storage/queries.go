package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type UserRow struct {
	ID           string
	Username     string
	PasswordHash string
	PINHash      string
	Name         string
	Email        string
	Phone        string
	Address      string
	BalanceCents int64
	CreatedAt    string
}

type TransactionRow struct {
	ID          string
	UserID      string
	Type        string
	AmountCents int64
	CreatedAt   string
}

const userColumns = `id, username, password_hash, pin_hash, name, email, phone, address, balance_cents, created_at`

const getUser = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUser(ctx context.Context, id string) (UserRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUser, id))
}

const getUserByKey = `SELECT ` + userColumns + ` FROM users WHERE username_key = ?`

func (q *Queries) GetUserByKey(ctx context.Context, key string) (UserRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByKey, key))
}

const listUsers = `SELECT ` + userColumns + ` FROM users ORDER BY created_at, username_key`

func (q *Queries) ListUsers(ctx context.Context) ([]UserRow, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []UserRow
	for rows.Next() {
		i, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const usernameOwner = `SELECT id FROM users WHERE username_key = ? AND id <> ?`

// UsernameOwner returns the id of another user holding key, or sql.ErrNoRows.
func (q *Queries) UsernameOwner(ctx context.Context, key, exceptID string) (string, error) {
	var id string
	err := q.db.QueryRowContext(ctx, usernameOwner, key, exceptID).Scan(&id)
	return id, err
}

const upsertUser = `
INSERT INTO users (id, username, username_key, password_hash, pin_hash, name, email, phone, address, balance_cents, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    username      = excluded.username,
    username_key  = excluded.username_key,
    password_hash = excluded.password_hash,
    pin_hash      = excluded.pin_hash,
    name          = excluded.name,
    email         = excluded.email,
    phone         = excluded.phone,
    address       = excluded.address,
    balance_cents = excluded.balance_cents,
    updated_at    = excluded.updated_at`

type UpsertUserParams struct {
	UserRow
	UsernameKey string
	UpdatedAt   string
}

func (q *Queries) UpsertUser(ctx context.Context, arg UpsertUserParams) error {
	_, err := q.db.ExecContext(ctx, upsertUser,
		arg.ID,
		arg.Username,
		arg.UsernameKey,
		arg.PasswordHash,
		arg.PINHash,
		arg.Name,
		arg.Email,
		arg.Phone,
		arg.Address,
		arg.BalanceCents,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const insertTransaction = `
INSERT INTO transactions (id, user_id, type, amount_cents, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`

func (q *Queries) InsertTransaction(ctx context.Context, arg TransactionRow) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		arg.ID,
		arg.UserID,
		arg.Type,
		arg.AmountCents,
		arg.CreatedAt,
	)
	return err
}

const listTransactions = `
SELECT id, user_id, type, amount_cents, created_at
FROM transactions
WHERE user_id = ?
ORDER BY seq DESC`

func (q *Queries) ListTransactions(ctx context.Context, userID string) ([]TransactionRow, error) {
	return q.queryTransactions(ctx, listTransactions, userID)
}

const listAllTransactions = `
SELECT id, user_id, type, amount_cents, created_at
FROM transactions
ORDER BY seq DESC`

func (q *Queries) ListAllTransactions(ctx context.Context) ([]TransactionRow, error) {
	return q.queryTransactions(ctx, listAllTransactions)
}

func (q *Queries) queryTransactions(ctx context.Context, query string, args ...any) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(&i.ID, &i.UserID, &i.Type, &i.AmountCents, &i.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (UserRow, error) {
	var i UserRow
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.PasswordHash,
		&i.PINHash,
		&i.Name,
		&i.Email,
		&i.Phone,
		&i.Address,
		&i.BalanceCents,
		&i.CreatedAt,
	)
	return i, err
}
