package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"zenbank/internal/accounts"
	"zenbank/internal/amqp"
	"zenbank/internal/core"
	"zenbank/internal/log"
	"zenbank/internal/suggest"
)

// EventPublisher receives an event for every booked transaction.
type EventPublisher interface {
	PublishTransaction(ctx context.Context, event *amqp.TransactionEvent) error
}

// Receipt is the outcome of a booked transaction.
type Receipt struct {
	Transaction core.Transaction
	Balance     core.Money
}

// AccountService runs the banking operations of a logged-in user. Mutations
// of one account are serialised; different accounts proceed in parallel.
type AccountService struct {
	repo      accounts.Repository
	publisher EventPublisher
	shown     *suggest.ShownStore
	logger    *log.Logger
	now       func() time.Time

	locks sync.Map // user id -> *sync.Mutex
}

// NewAccountService wires the service. publisher and shown may be nil.
func NewAccountService(repo accounts.Repository, publisher EventPublisher, shown *suggest.ShownStore, logger *log.Logger) *AccountService {
	if logger == nil {
		logger = log.Discard()
	}
	return &AccountService{
		repo:      repo,
		publisher: publisher,
		shown:     shown,
		logger:    logger.WithComponent(log.ComponentAccount),
		now:       time.Now,
	}
}

func (s *AccountService) lock(userID string) func() {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Account returns the stored user. Callers must not expose its secrets.
func (s *AccountService) Account(ctx context.Context, userID string) (core.User, error) {
	return s.repo.Get(ctx, userID)
}

// VerifyPIN returns core.ErrIncorrectPIN unless pin matches.
func (s *AccountService) VerifyPIN(ctx context.Context, userID, pin string) error {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !u.VerifyPIN(pin) {
		return core.ErrIncorrectPIN
	}
	return nil
}

// RevealBalance returns the balance only for the correct PIN.
func (s *AccountService) RevealBalance(ctx context.Context, userID, pin string) (core.Money, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return core.Money{}, err
	}
	if !u.VerifyPIN(pin) {
		s.logger.WarnContext(ctx, "Balance reveal with wrong PIN",
			log.FieldUserID, userID,
			log.FieldOperation, log.OpBalance)
		return core.Money{}, core.ErrIncorrectPIN
	}
	return u.Balance, nil
}

func (s *AccountService) Deposit(ctx context.Context, userID string, amount core.Money, pin string) (Receipt, error) {
	return s.book(ctx, userID, core.Deposit, amount, pin)
}

func (s *AccountService) Withdraw(ctx context.Context, userID string, amount core.Money, pin string) (Receipt, error) {
	return s.book(ctx, userID, core.Withdrawal, amount, pin)
}

func (s *AccountService) book(ctx context.Context, userID string, t core.TransactionType, amount core.Money, pin string) (Receipt, error) {
	op := log.OpDeposit
	if t == core.Withdrawal {
		op = log.OpWithdraw
	}
	if err := amount.Validate(); err != nil {
		return Receipt{}, err
	}

	unlock := s.lock(userID)
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		unlock()
		return Receipt{}, err
	}
	if !u.VerifyPIN(pin) {
		unlock()
		return Receipt{}, core.ErrIncorrectPIN
	}
	tx, err := core.NewTransaction(t, amount, s.now())
	if err != nil {
		unlock()
		return Receipt{}, err
	}
	if err := u.Apply(tx); err != nil {
		unlock()
		return Receipt{}, err
	}
	if err := s.repo.Put(ctx, u); err != nil {
		unlock()
		return Receipt{}, fmt.Errorf("store account: %w", err)
	}
	unlock()

	log.NewStructuredLogger(s.logger).LogTransaction(ctx, op, u.ID, tx.ID, string(tx.Type), tx.Amount.Cents, u.Balance.Cents)

	s.afterBooking(ctx, u, tx)
	return Receipt{Transaction: tx, Balance: u.Balance}, nil
}

// afterBooking publishes the event and clears shown suggestions. Neither can
// fail the transaction.
func (s *AccountService) afterBooking(ctx context.Context, u core.User, tx core.Transaction) {
	if s.publisher != nil {
		if err := s.publisher.PublishTransaction(ctx, amqp.NewTransactionEvent(u, tx)); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish transaction event",
				log.FieldError, err,
				log.FieldOperation, log.OpPublish,
				log.FieldTxID, tx.ID)
		}
	}
	if s.shown != nil {
		if err := s.shown.Forget(ctx, u.ID, tx.Type); err != nil {
			s.logger.WarnContext(ctx, "Failed to clear shown suggestions",
				log.FieldError, err,
				log.FieldUserID, u.ID)
		}
	}
}

// History returns transactions newest first; filter "" matches every type
// and limit <= 0 means all.
func (s *AccountService) History(ctx context.Context, userID string, filter core.TransactionType, limit int) ([]core.Transaction, error) {
	if filter != "" {
		if err := filter.Validate(); err != nil {
			return nil, err
		}
	}
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.History(filter, limit), nil
}

// RecentAmounts returns up to n amounts of type t, most recent first.
func (s *AccountService) RecentAmounts(ctx context.Context, userID string, t core.TransactionType, n int) ([]float64, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.RecentAmounts(t, n), nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID string, p core.Profile) (core.User, error) {
	if err := p.Validate(); err != nil {
		return core.User{}, err
	}
	unlock := s.lock(userID)
	defer unlock()

	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return core.User{}, err
	}
	u.Profile = p.Normalized()
	if err := s.repo.Put(ctx, u); err != nil {
		return core.User{}, fmt.Errorf("store account: %w", err)
	}
	s.logger.InfoContext(ctx, "Profile updated",
		log.FieldOperation, log.OpProfile,
		log.FieldUserID, userID)
	return u, nil
}

// ChangePIN replaces the PIN after checking the current one.
func (s *AccountService) ChangePIN(ctx context.Context, userID, oldPIN, newPIN string) error {
	if err := core.ValidatePIN(newPIN); err != nil {
		return err
	}
	unlock := s.lock(userID)
	defer unlock()

	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !u.VerifyPIN(oldPIN) {
		return core.ErrIncorrectPIN
	}
	hash, err := core.HashSecret(newPIN)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	u.PINHash = hash
	if err := s.repo.Put(ctx, u); err != nil {
		return fmt.Errorf("store account: %w", err)
	}
	s.logger.InfoContext(ctx, "PIN changed", log.FieldUserID, userID)
	return nil
}

func (s *AccountService) Summary(ctx context.Context, userID string) (core.Summary, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return core.Summary{}, err
	}
	return u.Summary(), nil
}
