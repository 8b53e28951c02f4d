package store

import (
	"context"
	"sync"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

// TradeLogStore is a thread-safe in-memory append-only store of sell and
// buy logs, keyed by the account each entry is attributed to. Entries are
// chronological and never mutated or deleted.
type TradeLogStore struct {
	mu    sync.RWMutex
	sells map[string][]domain.SellLog // seller → entries
	buys  map[string][]domain.BuyLog  // buyer → entries
}

// NewTradeLogStore creates an empty TradeLogStore.
func NewTradeLogStore() *TradeLogStore {
	return &TradeLogStore{
		sells: make(map[string][]domain.SellLog),
		buys:  make(map[string][]domain.BuyLog),
	}
}

// AppendSellLog records a sell-side entry for entry.Seller.
func (s *TradeLogStore) AppendSellLog(_ context.Context, entry domain.SellLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sells[entry.Seller] = append(s.sells[entry.Seller], entry)
	return nil
}

// AppendBuyLog records a buy-side entry for entry.Buyer.
func (s *TradeLogStore) AppendBuyLog(_ context.Context, entry domain.BuyLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buys[entry.Buyer] = append(s.buys[entry.Buyer], entry)
	return nil
}

// SellLogs returns the seller's entries in chronological order. Returns an
// empty slice if there are none.
func (s *TradeLogStore) SellLogs(seller string) []domain.SellLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Return a copy to avoid callers mutating the internal slice.
	result := make([]domain.SellLog, len(s.sells[seller]))
	copy(result, s.sells[seller])
	return result
}

// BuyLogs returns the buyer's entries in chronological order. Returns an
// empty slice if there are none.
func (s *TradeLogStore) BuyLogs(buyer string) []domain.BuyLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.BuyLog, len(s.buys[buyer]))
	copy(result, s.buys[buyer])
	return result
}
