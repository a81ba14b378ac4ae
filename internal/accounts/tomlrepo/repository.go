// Package tomlrepo stores accounts in a single TOML file, rewritten
// atomically on every change.
package tomlrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"zenbank/internal/accounts"
	"zenbank/internal/core"
)

const (
	PathKey          = "accounts.path"
	DefaultPath      = "./data/accounts.toml"
	accountsFileMode = 0o600
	accountsDirMode  = 0o700
	tempFilePattern  = ".accounts-*.toml.tmp"
)

type Repository struct {
	path string
	mu   *sync.RWMutex
}

var _ accounts.Repository = (*Repository)(nil)

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

// New resolves the accounts file from cfg. The path comes from the
// "accounts.path" key, falling back to an accounts.toml found through a
// zenbank config file and finally to DefaultPath.
func New(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}
	cfg.SetDefault(PathKey, DefaultPath)
	if cfg.ConfigFileUsed() == "" {
		cfg.SetConfigName("zenbank")
		cfg.SetConfigType("toml")
		cfg.AddConfigPath(".")
		if err := cfg.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	path, err := normalizeAccountsPath(cfg.GetString(PathKey))
	if err != nil {
		return nil, err
	}
	return &Repository{path: path, mu: lockForPath(path)}, nil
}

// Path is the absolute location of the accounts file.
func (r *Repository) Path() string { return r.path }

func (r *Repository) Get(ctx context.Context, id string) (core.User, error) {
	if err := ctx.Err(); err != nil {
		return core.User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return core.User{}, err
	}
	for _, entry := range file.Users {
		if entry.ID == id {
			return fromUserSchema(entry), nil
		}
	}
	return core.User{}, core.ErrUserNotFound
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (core.User, error) {
	if err := ctx.Err(); err != nil {
		return core.User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return core.User{}, err
	}
	key := core.UsernameKey(username)
	for _, entry := range file.Users {
		if core.UsernameKey(entry.Username) == key {
			return fromUserSchema(entry), nil
		}
	}
	return core.User{}, core.ErrUserNotFound
}

func (r *Repository) List(ctx context.Context) ([]core.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}
	users := make([]core.User, 0, len(file.Users))
	for _, entry := range file.Users {
		users = append(users, fromUserSchema(entry))
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r *Repository) Put(ctx context.Context, u core.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	key := core.UsernameKey(u.Username)
	encoded := toUserSchema(u)
	updated := false
	for i := range file.Users {
		if file.Users[i].ID != u.ID && core.UsernameKey(file.Users[i].Username) == key {
			return core.ErrUsernameTaken
		}
	}
	for i := range file.Users {
		if file.Users[i].ID == u.ID {
			file.Users[i] = encoded
			updated = true
			break
		}
	}
	if !updated {
		file.Users = append(file.Users, encoded)
	}
	return r.writeSchema(file)
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read accounts file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode accounts file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()
	return file, nil
}

func (r *Repository) writeSchema(file fileSchema) error {
	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, accountsDirMode); err != nil {
		return fmt.Errorf("create accounts directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode accounts file: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp accounts file: %w", err)
	}
	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp accounts file: %w", err)
	}
	if err := tempFile.Chmod(accountsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp accounts file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp accounts file: %w", err)
	}
	if err := os.Rename(tempName, r.path); err != nil {
		return fmt.Errorf("replace accounts file: %w", err)
	}
	cleanup = false
	return nil
}

func normalizeAccountsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve accounts path: %w", err)
	}
	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}
	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func toUserSchema(u core.User) userSchema {
	txs := make([]transactionSchema, 0, len(u.Transactions))
	for _, tx := range u.Transactions {
		txs = append(txs, transactionSchema{
			ID:          tx.ID,
			Type:        string(tx.Type),
			AmountCents: tx.Amount.Cents,
			Date:        formatTime(tx.Date),
		})
	}
	return userSchema{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		PINHash:      u.PINHash,
		BalanceCents: u.Balance.Cents,
		CreatedAt:    formatTime(u.CreatedAt),
		Profile: profileSchema{
			Name:    u.Profile.Name,
			Email:   u.Profile.Email,
			Phone:   u.Profile.Phone,
			Address: u.Profile.Address,
		},
		Transactions: txs,
	}
}

func fromUserSchema(s userSchema) core.User {
	txs := make([]core.Transaction, 0, len(s.Transactions))
	for _, tx := range s.Transactions {
		txs = append(txs, core.Transaction{
			ID:     tx.ID,
			Type:   core.TransactionType(tx.Type),
			Amount: core.Money{Cents: tx.AmountCents},
			Date:   parseTime(tx.Date),
		})
	}
	return core.User{
		ID:           s.ID,
		Username:     s.Username,
		PasswordHash: s.PasswordHash,
		PINHash:      s.PINHash,
		Profile: core.Profile{
			Name:    s.Profile.Name,
			Email:   s.Profile.Email,
			Phone:   s.Profile.Phone,
			Address: s.Profile.Address,
		},
		Balance:      core.Money{Cents: s.BalanceCents},
		Transactions: txs,
		CreatedAt:    parseTime(s.CreatedAt),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339Nano)
}
