package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"zenbank/internal/core"
)

// RoutingKeyTransactionRecorded tags every booked deposit or withdrawal.
const RoutingKeyTransactionRecorded = "transaction.recorded"

// TransactionEvent is published once per booked transaction and consumed by
// the ledger worker.
type TransactionEvent struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Type         string    `json:"type"`
	AmountCents  int64     `json:"amountCents"`
	BalanceCents int64     `json:"balanceCents"`
	Date         time.Time `json:"date"`
}

// NewTransactionEvent describes tx as booked against u. u.Balance must already
// include tx.
func NewTransactionEvent(u core.User, tx core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		ID:           tx.ID,
		UserID:       u.ID,
		Username:     u.Username,
		Type:         string(tx.Type),
		AmountCents:  tx.Amount.Cents,
		BalanceCents: u.Balance.Cents,
		Date:         tx.Date.UTC(),
	}
}

func (e *TransactionEvent) Validate() error {
	var errs []error
	if e.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if e.UserID == "" {
		errs = append(errs, errors.New("userId is required"))
	}
	if err := core.TransactionType(e.Type).Validate(); err != nil {
		errs = append(errs, err)
	}
	if e.AmountCents <= 0 {
		errs = append(errs, fmt.Errorf("amountCents must be positive, got %d", e.AmountCents))
	}
	if e.Date.IsZero() {
		errs = append(errs, errors.New("date is required"))
	}
	return errors.Join(errs...)
}

// Transaction converts the event back into the domain value it describes.
func (e *TransactionEvent) Transaction() core.Transaction {
	return core.Transaction{
		ID:     e.ID,
		Type:   core.TransactionType(e.Type),
		Amount: core.Money{Cents: e.AmountCents},
		Date:   e.Date,
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and validates an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transaction event: %w", err)
	}
	return &e, nil
}
