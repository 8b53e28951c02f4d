package market

import (
	"context"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

// AssetOwner is the external owner of items and materials. The market never
// mutates holdings itself; it instructs the owner through this interface.
//
// Every method is keyed by the listing type, which doubles as the asset
// class. Implementations return domain.ErrPlayerNotFound for an unknown
// account and domain.ErrAssetNotFound when the referenced holding does not
// belong to that account.
type AssetOwner interface {
	// Holdings returns the owner's items or materials.
	Holdings(ctx context.Context, owner string, t domain.ListingType) ([]domain.Holding, error)
	// MarkListed links the holding to listingID.
	MarkListed(ctx context.Context, owner string, t domain.ListingType, holdingID, listingID uint64) error
	// ClearListed unlinks the owner's holding from listingID; the holding stays.
	ClearListed(ctx context.Context, owner string, t domain.ListingType, listingID uint64) error
	// RemoveSold deletes the seller's holding linked to listingID and returns it.
	RemoveSold(ctx context.Context, seller string, t domain.ListingType, listingID uint64) (domain.Holding, error)
	// Grant creates a holding for the buyer from a listing snapshot.
	Grant(ctx context.Context, buyer string, t domain.ListingType, asset domain.Asset) (domain.Holding, error)
	// Restore puts back a holding previously returned by RemoveSold.
	Restore(ctx context.Context, owner string, t domain.ListingType, h domain.Holding) error
	// Revoke deletes a holding previously returned by Grant.
	Revoke(ctx context.Context, owner string, t domain.ListingType, holdingID uint64) error
}

// PlayerDirectory resolves account records.
type PlayerDirectory interface {
	Player(ctx context.Context, account string) (domain.Player, error)
}

// TradeLogger records the append-only sell and buy logs of settled trades.
type TradeLogger interface {
	AppendSellLog(ctx context.Context, entry domain.SellLog) error
	AppendBuyLog(ctx context.Context, entry domain.BuyLog) error
}

// PaymentIssuer sends transfer instructions to the settlement ledger.
type PaymentIssuer interface {
	Issue(ctx context.Context, p domain.Payment) error
}

// Committer durably writes the changes of one operation as a single unit.
type Committer interface {
	Commit(ctx context.Context, cs Changeset) error
}

// ListingRef identifies a listing across both tables.
type ListingRef struct {
	Type domain.ListingType
	ID   uint64
}

// Changeset is everything one operation changed in market-owned state.
type Changeset struct {
	Counters map[domain.ListingType]uint64 // last issued id after the operation
	Inserted []domain.Listing
	Removed  []ListingRef
	Sells    []domain.SellLog
	Buys     []domain.BuyLog

	// Log entries written by an earlier changeset that a reversal deletes.
	VoidedSells []string
	VoidedBuys  []string
}

// Empty reports whether the changeset carries no changes.
func (cs Changeset) Empty() bool {
	return len(cs.Counters) == 0 && len(cs.Inserted) == 0 && len(cs.Removed) == 0 &&
		len(cs.Sells) == 0 && len(cs.Buys) == 0 &&
		len(cs.VoidedSells) == 0 && len(cs.VoidedBuys) == 0
}

// Snapshot is market-owned state restored from durable storage.
type Snapshot struct {
	Counters map[domain.ListingType]uint64
	Listings []domain.Listing
}
