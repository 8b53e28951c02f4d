package market

import (
	"context"
	"fmt"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

// BulkListMaterials creates one house-owned material listing per
// (code, price) pair and returns the new ids in input order. Only the
// controller may call it. Every pair is validated before the first listing
// is created, and either all listings are created or none.
func (m *Market) BulkListMaterials(ctx context.Context, caller string, codes []uint16, prices []domain.Price) ([]uint64, error) {
	if caller == "" {
		return nil, domain.ErrMissingCaller
	}
	if caller != m.cfg.ControllerAccount {
		return nil, domain.ErrNotController
	}
	if len(codes) != len(prices) {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("got %d material codes and %d prices", len(codes), len(prices)),
		}
	}
	for i := range codes {
		if err := m.prices.Validate(prices[i]); err != nil {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("prices[%d]: %s", i, err.Error())}
		}
		if !m.catalog.Exists(codes[i]) {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("codes[%d]: unknown material code %d", i, codes[i])}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tx := m.begin(ctx)
	ids := make([]uint64, 0, len(codes))
	now := m.now()
	for i := range codes {
		id, err := tx.allocate(domain.ListingTypeMaterial)
		if err != nil {
			tx.rollback()
			return nil, err
		}
		l := domain.Listing{
			ID:        id,
			Type:      domain.ListingTypeMaterial,
			Owner:     m.cfg.HouseAccount,
			Price:     prices[i],
			Asset:     domain.Asset{Code: codes[i]},
			CreatedAt: now,
		}
		if err := tx.insert(l); err != nil {
			tx.rollback()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := tx.commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// BulkCancel removes material listings owned by the house or the
// controller. Only the controller may call it. Either every id is removed
// or none is.
func (m *Market) BulkCancel(ctx context.Context, caller string, ids []uint64) error {
	if caller == "" {
		return domain.ErrMissingCaller
	}
	if caller != m.cfg.ControllerAccount {
		return domain.ErrNotController
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var controllerHoldings []domain.Holding
	linked := make(map[uint64]uint64) // listing id -> controller holding id
	seen := make(map[uint64]struct{}, len(ids))
	for i, id := range ids {
		if _, dup := seen[id]; dup {
			return &domain.ValidationError{Message: fmt.Sprintf("ids[%d]: duplicate listing id %d", i, id)}
		}
		seen[id] = struct{}{}

		l, err := m.materials.Get(id)
		if err != nil {
			return err
		}
		switch l.Owner {
		case m.cfg.HouseAccount:
		case m.cfg.ControllerAccount:
			if controllerHoldings == nil {
				controllerHoldings, err = m.assets.Holdings(ctx, l.Owner, domain.ListingTypeMaterial)
				if err != nil {
					return err
				}
			}
			h, ok := findListed(controllerHoldings, id)
			if !ok {
				return domain.ErrAssetNotFound
			}
			linked[id] = h.ID
		default:
			return domain.ErrNotListingOwner
		}
	}

	tx := m.begin(ctx)
	for _, id := range ids {
		if holdingID, ok := linked[id]; ok {
			if err := m.assets.ClearListed(ctx, m.cfg.ControllerAccount, domain.ListingTypeMaterial, id); err != nil {
				tx.rollback()
				return err
			}
			tx.compensate("mark listed", func(ctx context.Context) error {
				return m.assets.MarkListed(ctx, m.cfg.ControllerAccount, domain.ListingTypeMaterial, holdingID, id)
			})
		}
		if _, err := tx.remove(domain.ListingTypeMaterial, id); err != nil {
			tx.rollback()
			return err
		}
	}
	return tx.commit()
}
