// Package storage is the SQLite account repository. Schema changes are
// applied through embedded golang-migrate migrations on open.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"zenbank/internal/accounts"
	"zenbank/internal/core"
	"zenbank/internal/log"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
	now     func() time.Time
}

var (
	_ accounts.Repository = (*SQLiteRepository)(nil)
	_ accounts.Pinger     = (*SQLiteRepository)(nil)
)

func dsn(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps SQLITE_BUSY out of the request path.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.User, error) {
	if err := ctx.Err(); err != nil {
		return core.User{}, err
	}
	row, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, userErr(err)
	}
	return r.load(ctx, row)
}

func (r *SQLiteRepository) GetByUsername(ctx context.Context, username string) (core.User, error) {
	if err := ctx.Err(); err != nil {
		return core.User{}, err
	}
	row, err := r.queries.GetUserByKey(ctx, core.UsernameKey(username))
	if err != nil {
		return core.User{}, userErr(err)
	}
	return r.load(ctx, row)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]core.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := r.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	txRows, err := r.queries.ListAllTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	byUser := make(map[string][]core.Transaction, len(rows))
	for _, tx := range txRows {
		byUser[tx.UserID] = append(byUser[tx.UserID], fromTransactionRow(tx))
	}

	users := make([]core.User, 0, len(rows))
	for _, row := range rows {
		u := fromUserRow(row)
		if txs, ok := byUser[row.ID]; ok {
			u.Transactions = txs
		}
		users = append(users, u)
	}
	return users, nil
}

// Put upserts the user row and inserts any transactions not stored yet.
// History is append-only so existing transaction rows are never rewritten.
func (r *SQLiteRepository) Put(ctx context.Context, u core.User) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	q := r.queries.WithTx(tx)

	key := core.UsernameKey(u.Username)
	if _, err = q.UsernameOwner(ctx, key, u.ID); err == nil {
		return core.ErrUsernameTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check username: %w", err)
	}

	err = q.UpsertUser(ctx, UpsertUserParams{
		UserRow:     toUserRow(u),
		UsernameKey: key,
		UpdatedAt:   formatTime(r.now()),
	})
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	// Oldest first so seq follows booking order.
	for i := len(u.Transactions) - 1; i >= 0; i-- {
		t := u.Transactions[i]
		err = q.InsertTransaction(ctx, TransactionRow{
			ID:          t.ID,
			UserID:      u.ID,
			Type:        string(t.Type),
			AmountCents: t.Amount.Cents,
			CreatedAt:   formatTime(t.Date),
		})
		if err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	r.logger.DebugContext(ctx, "account stored",
		log.FieldUserID, u.ID,
		log.FieldBalanceCents, u.Balance.Cents,
		log.FieldCount, len(u.Transactions))
	return nil
}

func (r *SQLiteRepository) load(ctx context.Context, row UserRow) (core.User, error) {
	txRows, err := r.queries.ListTransactions(ctx, row.ID)
	if err != nil {
		return core.User{}, fmt.Errorf("list transactions: %w", err)
	}
	u := fromUserRow(row)
	for _, tx := range txRows {
		u.Transactions = append(u.Transactions, fromTransactionRow(tx))
	}
	return u, nil
}

func userErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrUserNotFound
	}
	return fmt.Errorf("get user: %w", err)
}

func toUserRow(u core.User) UserRow {
	return UserRow{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		PINHash:      u.PINHash,
		Name:         u.Profile.Name,
		Email:        u.Profile.Email,
		Phone:        u.Profile.Phone,
		Address:      u.Profile.Address,
		BalanceCents: u.Balance.Cents,
		CreatedAt:    formatTime(u.CreatedAt),
	}
}

func fromUserRow(row UserRow) core.User {
	return core.User{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		PINHash:      row.PINHash,
		Profile: core.Profile{
			Name:    row.Name,
			Email:   row.Email,
			Phone:   row.Phone,
			Address: row.Address,
		},
		Balance:      core.Money{Cents: row.BalanceCents},
		Transactions: []core.Transaction{},
		CreatedAt:    parseTime(row.CreatedAt),
	}
}

func fromTransactionRow(row TransactionRow) core.Transaction {
	return core.Transaction{
		ID:     row.ID,
		Type:   core.TransactionType(row.Type),
		Amount: core.Money{Cents: row.AmountCents},
		Date:   parseTime(row.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
