// Package inventory is an in-memory stand-in for the game that owns
// players, knights, items and materials.
package inventory

import (
	"context"
	"sort"
	"sync"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

type account struct {
	mu        sync.Mutex
	player    domain.Player
	items     map[uint64]domain.Holding
	materials map[uint64]domain.Holding
}

func (a *account) holdings(t domain.ListingType) map[uint64]domain.Holding {
	if t == domain.ListingTypeItem {
		return a.items
	}
	return a.materials
}

// Store is a thread-safe in-memory inventory keyed by account name. Holding
// ids are unique across accounts and asset classes.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*account
	lastID   uint64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts: make(map[string]*account),
	}
}

// Register adds a player with empty inventories. It returns
// domain.ErrPlayerExists if the account is already registered.
func (s *Store) Register(p domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[p.Account]; exists {
		return domain.ErrPlayerExists
	}
	s.accounts[p.Account] = &account{
		player:    p,
		items:     make(map[uint64]domain.Holding),
		materials: make(map[uint64]domain.Holding),
	}
	return nil
}

func (s *Store) get(name string) (*account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[name]
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return a, nil
}

func (s *Store) nextID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID
}

// Player returns the account record.
func (s *Store) Player(_ context.Context, name string) (domain.Player, error) {
	a, err := s.get(name)
	if err != nil {
		return domain.Player{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.player, nil
}

// Players returns every registered player sorted by account.
func (s *Store) Players() []domain.Player {
	s.mu.RLock()
	accounts := make([]*account, 0, len(s.accounts))
	for _, a := range s.accounts {
		accounts = append(accounts, a)
	}
	s.mu.RUnlock()

	out := make([]domain.Player, 0, len(accounts))
	for _, a := range accounts {
		a.mu.Lock()
		out = append(out, a.player)
		a.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out
}

// Holdings returns the owner's items or materials ordered by holding id.
func (s *Store) Holdings(_ context.Context, owner string, t domain.ListingType) ([]domain.Holding, error) {
	a, err := s.get(owner)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.holdings(t)
	out := make([]domain.Holding, 0, len(m))
	for _, h := range m {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MarkListed links the holding to listingID.
func (s *Store) MarkListed(_ context.Context, owner string, t domain.ListingType, holdingID, listingID uint64) error {
	a, err := s.get(owner)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.holdings(t)
	h, ok := m[holdingID]
	if !ok {
		return domain.ErrAssetNotFound
	}
	if h.Listed() {
		return domain.ErrAlreadyOnSale
	}
	h.SaleID = listingID
	m[holdingID] = h
	return nil
}

// ClearListed unlinks the owner's holding from listingID.
func (s *Store) ClearListed(_ context.Context, owner string, t domain.ListingType, listingID uint64) error {
	a, err := s.get(owner)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.holdings(t)
	h, ok := findSale(m, listingID)
	if !ok {
		return domain.ErrAssetNotFound
	}
	h.SaleID = 0
	m[h.ID] = h
	return nil
}

// RemoveSold deletes the seller's holding linked to listingID and returns
// it as it was.
func (s *Store) RemoveSold(_ context.Context, seller string, t domain.ListingType, listingID uint64) (domain.Holding, error) {
	a, err := s.get(seller)
	if err != nil {
		return domain.Holding{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.holdings(t)
	h, ok := findSale(m, listingID)
	if !ok {
		return domain.Holding{}, domain.ErrAssetNotFound
	}
	delete(m, h.ID)
	return h, nil
}

// Grant creates an unequipped, unlisted holding for the buyer.
func (s *Store) Grant(_ context.Context, buyer string, t domain.ListingType, asset domain.Asset) (domain.Holding, error) {
	a, err := s.get(buyer)
	if err != nil {
		return domain.Holding{}, err
	}
	h := domain.Holding{ID: s.nextID(), Asset: asset}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.holdings(t)[h.ID] = h
	return h, nil
}

// Restore puts back a holding removed by RemoveSold.
func (s *Store) Restore(_ context.Context, owner string, t domain.ListingType, h domain.Holding) error {
	a, err := s.get(owner)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.holdings(t)
	if _, exists := m[h.ID]; exists {
		return domain.ErrConflict
	}
	m[h.ID] = h
	return nil
}

// Revoke deletes a holding.
func (s *Store) Revoke(_ context.Context, owner string, t domain.ListingType, holdingID uint64) error {
	a, err := s.get(owner)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	m := a.holdings(t)
	if _, ok := m[holdingID]; !ok {
		return domain.ErrAssetNotFound
	}
	delete(m, holdingID)
	return nil
}

// Equip assigns an item to one of the owner's knights. knightID 0 unequips
// it.
func (s *Store) Equip(owner string, itemID, knightID uint64) error {
	a, err := s.get(owner)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	h, ok := a.items[itemID]
	if !ok {
		return domain.ErrAssetNotFound
	}
	h.KnightID = knightID
	a.items[itemID] = h
	return nil
}

func findSale(m map[uint64]domain.Holding, listingID uint64) (domain.Holding, bool) {
	if listingID == 0 {
		return domain.Holding{}, false
	}
	for _, h := range m {
		if h.SaleID == listingID {
			return h, true
		}
	}
	return domain.Holding{}, false
}
