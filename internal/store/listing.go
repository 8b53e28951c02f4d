package store

import (
	"sync"

	"github.com/google/btree"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

// listingLess orders listings by id ascending.
func listingLess(a, b domain.Listing) bool {
	return a.ID < b.ID
}

// ListingStore is a thread-safe in-memory collection of active listings of
// one type. Listings are kept in a B-tree ordered by id, with a secondary
// index by owner.
type ListingStore struct {
	typ     domain.ListingType
	mu      sync.RWMutex
	tree    *btree.BTreeG[domain.Listing]
	byOwner map[string]map[uint64]struct{} // owner → listing ids
}

// NewListingStore creates an empty store for listings of type t.
func NewListingStore(t domain.ListingType) *ListingStore {
	const degree = 32
	return &ListingStore{
		typ:     t,
		tree:    btree.NewG[domain.Listing](degree, listingLess),
		byOwner: make(map[string]map[uint64]struct{}),
	}
}

// Type returns the listing type held by the store.
func (s *ListingStore) Type() domain.ListingType {
	return s.typ
}

// Insert adds a listing. It returns domain.ErrListingExists if the id is
// already present.
func (s *ListingStore) Insert(l domain.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tree.Get(domain.Listing{ID: l.ID}); ok {
		return domain.ErrListingExists
	}
	s.insertLocked(l)
	return nil
}

func (s *ListingStore) insertLocked(l domain.Listing) {
	s.tree.ReplaceOrInsert(l)
	ids := s.byOwner[l.Owner]
	if ids == nil {
		ids = make(map[uint64]struct{})
		s.byOwner[l.Owner] = ids
	}
	ids[l.ID] = struct{}{}
}

// Get retrieves a listing by id. It returns domain.ErrListingNotFound if
// the listing does not exist.
func (s *ListingStore) Get(id uint64) (domain.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.tree.Get(domain.Listing{ID: id})
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return l, nil
}

// Remove deletes a listing by id and returns it. Removing a missing id is
// an error (domain.ErrListingNotFound), not a no-op.
func (s *ListingStore) Remove(id uint64) (domain.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.tree.Delete(domain.Listing{ID: id})
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	if ids, ok := s.byOwner[l.Owner]; ok {
		delete(ids, id)
		if len(ids) == 0 {
			delete(s.byOwner, l.Owner)
		}
	}
	return l, nil
}

// ListByOwner returns the owner's listings ordered by id.
func (s *ListingStore) ListByOwner(owner string) []domain.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byOwner[owner]
	result := make([]domain.Listing, 0, len(ids))
	s.tree.Ascend(func(l domain.Listing) bool {
		if _, ok := ids[l.ID]; ok {
			result = append(result, l)
		}
		return len(result) < len(ids)
	})
	return result
}

// Page returns up to limit listings with id greater than afterID, in
// ascending id order.
func (s *ListingStore) Page(afterID uint64, limit int) []domain.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return []domain.Listing{}
	}
	result := make([]domain.Listing, 0, limit)
	s.tree.AscendGreaterOrEqual(domain.Listing{ID: afterID + 1}, func(l domain.Listing) bool {
		result = append(result, l)
		return len(result) < limit
	})
	return result
}

// Len returns the number of active listings.
func (s *ListingStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// Load replaces the store contents with listings restored from durable
// storage.
func (s *ListingStore) Load(listings []domain.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tree.Clear(false)
	s.byOwner = make(map[string]map[uint64]struct{})
	for _, l := range listings {
		s.insertLocked(l)
	}
}
