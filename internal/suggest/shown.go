package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"zenbank/internal/cache"
	"zenbank/internal/core"
)

// ShownStore remembers the last amounts shown to a user per transaction
// type, so the next request can ask for something different.
type ShownStore struct {
	store cache.Store
	ttl   time.Duration
}

func NewShownStore(store cache.Store, ttl time.Duration) *ShownStore {
	return &ShownStore{store: store, ttl: ttl}
}

func shownKey(userID string, t core.TransactionType) string {
	return "shown:" + userID + ":" + string(t)
}

// Previous returns the remembered amounts, or nil when nothing was shown.
func (s *ShownStore) Previous(ctx context.Context, userID string, t core.TransactionType) ([]float64, error) {
	raw, ok, err := s.store.Get(ctx, shownKey(userID, t))
	if err != nil || !ok {
		return nil, err
	}
	var amounts []float64
	if err := json.Unmarshal(raw, &amounts); err != nil {
		return nil, fmt.Errorf("decode shown suggestions: %w", err)
	}
	return amounts, nil
}

func (s *ShownStore) Remember(ctx context.Context, userID string, t core.TransactionType, amounts []float64) error {
	raw, err := json.Marshal(amounts)
	if err != nil {
		return fmt.Errorf("encode shown suggestions: %w", err)
	}
	return s.store.Set(ctx, shownKey(userID, t), raw, s.ttl)
}

// Forget clears the memory, e.g. once a transaction of that type is booked.
func (s *ShownStore) Forget(ctx context.Context, userID string, t core.TransactionType) error {
	return s.store.Delete(ctx, shownKey(userID, t))
}
