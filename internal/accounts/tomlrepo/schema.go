package tomlrepo

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int          `toml:"version"`
	Users   []userSchema `toml:"users"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}
	return nil
}

type userSchema struct {
	ID           string              `toml:"id"`
	Username     string              `toml:"username"`
	PasswordHash string              `toml:"password_hash"`
	PINHash      string              `toml:"pin_hash"`
	BalanceCents int64               `toml:"balance_cents"`
	CreatedAt    string              `toml:"created_at"`
	Profile      profileSchema       `toml:"profile"`
	Transactions []transactionSchema `toml:"transactions,omitempty"`
}

type profileSchema struct {
	Name    string `toml:"name"`
	Email   string `toml:"email"`
	Phone   string `toml:"phone,omitempty"`
	Address string `toml:"address,omitempty"`
}

type transactionSchema struct {
	ID          string `toml:"id"`
	Type        string `toml:"type"`
	AmountCents int64  `toml:"amount_cents"`
	Date        string `toml:"date"`
}
