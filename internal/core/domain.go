package core

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const (
	Deposit    TransactionType = "deposit"
	Withdrawal TransactionType = "withdrawal"
)

// StartingBalance is credited to every new account.
var StartingBalance = Money{Cents: 100000}

type (
	TransactionType string

	Transaction struct {
		ID     string
		Type   TransactionType
		Amount Money
		Date   time.Time
	}

	Profile struct {
		Name    string
		Email   string
		Phone   string
		Address string
	}

	User struct {
		ID           string
		Username     string
		PasswordHash string
		PINHash      string
		Profile      Profile
		Balance      Money
		Transactions []Transaction // newest first
		CreatedAt    time.Time
	}

	SignupData struct {
		Username string
		Password string
		PIN      string
		Profile  Profile
	}
)

var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrIncorrectPIN           = errors.New("incorrect PIN")
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrUserNotFound           = errors.New("user not found")
	ErrUsernameTaken          = errors.New("username is already taken")
)

// ValidationError reports a single rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// ParseTransactionType accepts "deposit", "withdrawal" and the short "withdraw".
func ParseTransactionType(s string) (TransactionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return Deposit, nil
	case "withdrawal", "withdraw":
		return Withdrawal, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTransactionType, s)
}

func (t TransactionType) Validate() error {
	if t != Deposit && t != Withdrawal {
		return fmt.Errorf("%w: %q", ErrInvalidTransactionType, string(t))
	}
	return nil
}

func (d SignupData) Validate() error {
	username := strings.TrimSpace(d.Username)
	if len(username) < 3 {
		return invalid("username", "must be at least 3 characters")
	}
	if len(username) > 32 {
		return invalid("username", "must be at most 32 characters")
	}
	for _, r := range username {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return invalid("username", "must not contain spaces")
		}
	}
	if len(d.Password) < 6 {
		return invalid("password", "must be at least 6 characters")
	}
	if err := ValidatePIN(d.PIN); err != nil {
		return err
	}
	return d.Profile.Validate()
}

// ValidatePIN requires exactly four ASCII digits.
func ValidatePIN(pin string) error {
	if len(pin) != 4 {
		return invalid("pin", "must be 4 digits")
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return invalid("pin", "must be 4 digits")
		}
	}
	return nil
}

func (p Profile) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return invalid("name", "is required")
	}
	if len(name) > 100 {
		return invalid("name", "too long (max 100 characters)")
	}
	if strings.TrimSpace(p.Email) == "" {
		return invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(p.Email)
	if err != nil || addr.Address != strings.TrimSpace(p.Email) {
		return invalid("email", "is not a valid address")
	}
	for _, r := range p.Phone {
		if !unicode.IsDigit(r) && !strings.ContainsRune("+-() ", r) {
			return invalid("phone", "may contain only digits, spaces and + - ( )")
		}
	}
	if len(p.Phone) > 32 {
		return invalid("phone", "too long (max 32 characters)")
	}
	if len(p.Address) > 200 {
		return invalid("address", "too long (max 200 characters)")
	}
	return nil
}

// Normalized trims surrounding whitespace from every field.
func (p Profile) Normalized() Profile {
	return Profile{
		Name:    strings.TrimSpace(p.Name),
		Email:   strings.TrimSpace(p.Email),
		Phone:   strings.TrimSpace(p.Phone),
		Address: strings.TrimSpace(p.Address),
	}
}

// NewUser validates signup data and builds an account with hashed secrets
// and the starting balance.
func NewUser(d SignupData, now time.Time) (User, error) {
	if err := d.Validate(); err != nil {
		return User{}, err
	}
	pw, err := HashSecret(d.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	pin, err := HashSecret(d.PIN)
	if err != nil {
		return User{}, fmt.Errorf("hash pin: %w", err)
	}
	return User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(d.Username),
		PasswordHash: pw,
		PINHash:      pin,
		Profile:      d.Profile.Normalized(),
		Balance:      StartingBalance,
		Transactions: []Transaction{},
		CreatedAt:    now.UTC(),
	}, nil
}

// NewTransaction stamps a new transaction with a fresh id.
func NewTransaction(t TransactionType, amount Money, now time.Time) (Transaction, error) {
	if err := t.Validate(); err != nil {
		return Transaction{}, err
	}
	if err := amount.Validate(); err != nil {
		return Transaction{}, err
	}
	return Transaction{ID: uuid.NewString(), Type: t, Amount: amount, Date: now.UTC()}, nil
}

// Apply books tx against the balance and prepends it to the history.
// A withdrawal larger than the balance leaves the user unchanged.
func (u *User) Apply(tx Transaction) error {
	switch tx.Type {
	case Deposit:
		u.Balance.Cents += tx.Amount.Cents
	case Withdrawal:
		if tx.Amount.Cents > u.Balance.Cents {
			return ErrInsufficientFunds
		}
		u.Balance.Cents -= tx.Amount.Cents
	default:
		return tx.Type.Validate()
	}
	u.Transactions = append([]Transaction{tx}, u.Transactions...)
	return nil
}

// History returns transactions newest first. An empty filter matches every
// type and limit <= 0 means no limit.
func (u User) History(filter TransactionType, limit int) []Transaction {
	out := make([]Transaction, 0, len(u.Transactions))
	for _, tx := range u.Transactions {
		if filter != "" && tx.Type != filter {
			continue
		}
		out = append(out, tx)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// RecentAmounts returns up to n amounts of type t in currency units, most
// recent first.
func (u User) RecentAmounts(t TransactionType, n int) []float64 {
	txs := u.History(t, n)
	out := make([]float64, len(txs))
	for i, tx := range txs {
		out[i] = tx.Amount.Units()
	}
	return out
}

// VerifyPIN reports whether pin matches the stored hash.
func (u User) VerifyPIN(pin string) bool {
	return CheckSecret(u.PINHash, pin)
}

func (u User) VerifyPassword(password string) bool {
	return CheckSecret(u.PasswordHash, password)
}

// UsernameKey is the case-insensitive lookup key for a username.
func UsernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// Clone returns a copy that shares no history slice with u.
func (u User) Clone() User {
	c := u
	c.Transactions = append([]Transaction(nil), u.Transactions...)
	return c
}
