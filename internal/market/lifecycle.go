package market

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

// ListItem puts one of the owner's items up for sale and returns the new
// listing id.
func (m *Market) ListItem(ctx context.Context, owner string, itemID uint64, price domain.Price) (uint64, error) {
	return m.list(ctx, domain.ListingTypeItem, owner, itemID, price)
}

// ListMaterial puts one of the owner's materials up for sale and returns
// the new listing id.
func (m *Market) ListMaterial(ctx context.Context, owner string, materialID uint64, price domain.Price) (uint64, error) {
	return m.list(ctx, domain.ListingTypeMaterial, owner, materialID, price)
}

// CancelItem withdraws the owner's item listing.
func (m *Market) CancelItem(ctx context.Context, owner string, listingID uint64) error {
	return m.cancel(ctx, domain.ListingTypeItem, owner, listingID)
}

// CancelMaterial withdraws the owner's material listing.
func (m *Market) CancelMaterial(ctx context.Context, owner string, listingID uint64) error {
	return m.cancel(ctx, domain.ListingTypeMaterial, owner, listingID)
}

// BuyItem settles an item listing for the buyer. quantity must equal the
// listing price exactly.
func (m *Market) BuyItem(ctx context.Context, buyer string, listingID uint64, quantity domain.Price) (*domain.Settlement, error) {
	return m.buy(ctx, domain.ListingTypeItem, buyer, listingID, quantity)
}

// BuyMaterial settles a material listing for the buyer. quantity must equal
// the listing price exactly.
func (m *Market) BuyMaterial(ctx context.Context, buyer string, listingID uint64, quantity domain.Price) (*domain.Settlement, error) {
	return m.buy(ctx, domain.ListingTypeMaterial, buyer, listingID, quantity)
}

func (m *Market) list(ctx context.Context, t domain.ListingType, owner string, holdingID uint64, price domain.Price) (uint64, error) {
	if owner == "" {
		return 0, domain.ErrMissingCaller
	}
	if err := m.prices.Validate(price); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	holdings, err := m.assets.Holdings(ctx, owner, t)
	if err != nil {
		return 0, err
	}
	h, ok := findHolding(holdings, holdingID)
	if !ok {
		return 0, domain.ErrAssetNotFound
	}
	if h.Listed() {
		return 0, domain.ErrAlreadyOnSale
	}
	if t == domain.ListingTypeItem && h.Equipped() {
		return 0, domain.ErrEquippedItem
	}

	player, err := m.players.Player(ctx, owner)
	if err != nil {
		return 0, err
	}
	if err := m.slots.Check(countListed(holdings), player.Knights); err != nil {
		return 0, err
	}

	tx := m.begin(ctx)
	id, err := tx.allocate(t)
	if err != nil {
		return 0, err
	}
	listing := domain.Listing{
		ID:        id,
		Type:      t,
		Owner:     owner,
		Price:     price,
		Asset:     snapshot(t, h.Asset),
		CreatedAt: m.now(),
	}
	if err := tx.insert(listing); err != nil {
		tx.rollback()
		return 0, err
	}
	if err := m.assets.MarkListed(ctx, owner, t, holdingID, id); err != nil {
		tx.rollback()
		return 0, err
	}
	tx.compensate("clear listed", func(ctx context.Context) error {
		return m.assets.ClearListed(ctx, owner, t, id)
	})

	if err := tx.commit(); err != nil {
		return 0, err
	}
	return id, nil
}

func (m *Market) cancel(ctx context.Context, t domain.ListingType, owner string, listingID uint64) error {
	if owner == "" {
		return domain.ErrMissingCaller
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	listing, err := m.store(t).Get(listingID)
	if err != nil {
		return err
	}
	if listing.Owner != owner {
		return domain.ErrNotListingOwner
	}

	// The owner's own holdings must still reference the listing.
	holdings, err := m.assets.Holdings(ctx, owner, t)
	if err != nil {
		return err
	}
	h, ok := findListed(holdings, listingID)
	if !ok {
		return domain.ErrAssetNotFound
	}
	if t == domain.ListingTypeItem && h.Equipped() {
		return domain.ErrEquippedItem
	}

	tx := m.begin(ctx)
	if err := m.assets.ClearListed(ctx, owner, t, listingID); err != nil {
		return err
	}
	tx.compensate("mark listed", func(ctx context.Context) error {
		return m.assets.MarkListed(ctx, owner, t, h.ID, listingID)
	})
	if _, err := tx.remove(t, listingID); err != nil {
		tx.rollback()
		return err
	}
	return tx.commit()
}

func (m *Market) buy(ctx context.Context, t domain.ListingType, buyer string, listingID uint64, quantity domain.Price) (*domain.Settlement, error) {
	if buyer == "" {
		return nil, domain.ErrMissingCaller
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Preconditions. Nothing is mutated until all of them hold.
	listing, err := m.store(t).Get(listingID)
	if err != nil {
		return nil, err
	}
	if listing.Owner == buyer {
		return nil, domain.ErrOwnListing
	}
	player, err := m.players.Player(ctx, buyer)
	if err != nil {
		return nil, err
	}
	held, err := m.assets.Holdings(ctx, buyer, t)
	if err != nil {
		return nil, err
	}
	if len(held) >= player.Capacity(t) {
		return nil, domain.ErrInventoryFull
	}
	if quantity != listing.Price {
		return nil, domain.ErrPriceMismatch
	}

	tx := m.begin(ctx)
	house := listing.Owner == m.cfg.HouseAccount

	// 1. The seller's asset leaves their inventory.
	if !house {
		removed, err := m.assets.RemoveSold(ctx, listing.Owner, t, listingID)
		if err != nil {
			return nil, err
		}
		tx.compensate("restore sold", func(ctx context.Context) error {
			return m.assets.Restore(ctx, listing.Owner, t, removed)
		})
	}

	// 2. The buyer receives the listed snapshot.
	granted, err := m.assets.Grant(ctx, buyer, t, listing.Asset)
	if err != nil {
		tx.rollback()
		return nil, err
	}
	tx.compensate("revoke granted", func(ctx context.Context) error {
		return m.assets.Revoke(ctx, buyer, t, granted.ID)
	})

	// 3. The listing is consumed.
	if _, err := tx.remove(t, listingID); err != nil {
		tx.rollback()
		return nil, err
	}

	// 4-5. Tax and net proceeds.
	rate := m.taxRate(listing.Owner)
	tax := Fee(listing.Price, rate)
	net := domain.Price{Amount: listing.Price.Amount - tax.Amount, Symbol: listing.Price.Symbol}

	// 6. Trade logs for both sides, staged with the changeset.
	at := m.now()
	sell := domain.SellLog{
		ID:        uuid.New().String(),
		Seller:    listing.Owner,
		Buyer:     buyer,
		At:        at,
		Type:      t,
		ListingID: listing.ID,
		Asset:     listing.Asset,
		Price:     listing.Price,
		TaxRate:   rate,
	}
	bought := domain.BuyLog{
		ID:        uuid.New().String(),
		Buyer:     buyer,
		Seller:    listing.Owner,
		At:        at,
		Type:      t,
		ListingID: listing.ID,
		Asset:     listing.Asset,
		Price:     listing.Price,
	}
	tx.cs.Sells = append(tx.cs.Sells, sell)
	tx.cs.Buys = append(tx.cs.Buys, bought)

	// 7. Net proceeds go from the house account to the seller. The payment
	// is the last effect and follows the durable commit.
	payment := domain.Payment{
		ID:     uuid.New().String(),
		From:   m.cfg.HouseAccount,
		To:     listing.Owner,
		Amount: net,
		Memo:   m.cfg.PaymentMemo,
	}
	err = tx.commitThen("issue payment", func() error {
		// House listings settle without a payment instruction.
		if house {
			return nil
		}
		return m.payments.Issue(ctx, payment)
	})
	if err != nil {
		return nil, err
	}

	// The sale is final; only now do the entries reach the trade logger.
	m.appendLogs(ctx, sell, bought)

	return &domain.Settlement{
		Listing: listing,
		TaxRate: rate,
		Tax:     tax,
		Net:     net,
		Sell:    sell,
		Buy:     bought,
		Payment: payment,
	}, nil
}

// appendLogs hands a settled trade's entries to the trade logger. The
// committed changeset already holds them, so a failing sink is logged and
// the purchase stands.
func (m *Market) appendLogs(ctx context.Context, sell domain.SellLog, bought domain.BuyLog) {
	if err := m.logs.AppendSellLog(ctx, sell); err != nil {
		m.logger.Error("sell log append failed",
			slog.String("id", sell.ID),
			slog.String("error", err.Error()),
		)
	}
	if err := m.logs.AppendBuyLog(ctx, bought); err != nil {
		m.logger.Error("buy log append failed",
			slog.String("id", bought.ID),
			slog.String("error", err.Error()),
		)
	}
}

// snapshot copies the attributes a listing of type t carries. Materials
// are fungible and keep only their code.
func snapshot(t domain.ListingType, a domain.Asset) domain.Asset {
	if t == domain.ListingTypeMaterial {
		return domain.Asset{Code: a.Code}
	}
	return a
}

func findHolding(holdings []domain.Holding, id uint64) (domain.Holding, bool) {
	for _, h := range holdings {
		if h.ID == id {
			return h, true
		}
	}
	return domain.Holding{}, false
}

func findListed(holdings []domain.Holding, listingID uint64) (domain.Holding, bool) {
	for _, h := range holdings {
		if h.SaleID == listingID {
			return h, true
		}
	}
	return domain.Holding{}, false
}
