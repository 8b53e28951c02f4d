package market

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/efreitasn/knightsmarket/internal/domain"
	"github.com/efreitasn/knightsmarket/internal/store"
)

// Config holds the market rules.
type Config struct {
	Currency          domain.Symbol
	MinPrice          int64 // inclusive, minor units
	MaxPrice          int64 // inclusive, minor units
	TaxRate           int   // percent, charged on non-house listings
	SlotsPerUnit      int   // simultaneous listings per knight and asset class
	HouseAccount      string
	ControllerAccount string
	PaymentMemo       string
}

// Option configures optional Market collaborators.
type Option func(*Market)

// WithCommitter makes every operation durable through c.
func WithCommitter(c Committer) Option {
	return func(m *Market) { m.committer = c }
}

// WithMaterialCatalog restricts bulk-issued materials to known codes.
func WithMaterialCatalog(c *domain.MaterialCatalog) Option {
	return func(m *Market) { m.catalog = c }
}

// WithClock overrides the time source used for listing and log timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Market) { m.now = now }
}

// WithLogger sets the logger used for compensation failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Market) { m.logger = l }
}

// Market owns the item and material listing stores and the sequence
// counters, and runs the list, cancel, purchase and admin operations
// against them. Operations are serialized: each one runs to completion
// before the next reads any shared state.
type Market struct {
	mu sync.Mutex

	cfg    Config
	prices PriceValidator
	slots  SaleSlotPolicy

	items     *store.ListingStore
	materials *store.ListingStore
	seq       *store.SequenceStore

	assets    AssetOwner
	players   PlayerDirectory
	logs      TradeLogger
	payments  PaymentIssuer
	committer Committer
	catalog   *domain.MaterialCatalog

	now    func() time.Time
	logger *slog.Logger
}

// NewMarket creates a Market with empty stores.
func NewMarket(
	cfg Config,
	assets AssetOwner,
	players PlayerDirectory,
	logs TradeLogger,
	payments PaymentIssuer,
	opts ...Option,
) *Market {
	m := &Market{
		cfg: cfg,
		prices: PriceValidator{
			Currency: cfg.Currency,
			Min:      cfg.MinPrice,
			Max:      cfg.MaxPrice,
		},
		slots:     SaleSlotPolicy{SlotsPerUnit: cfg.SlotsPerUnit},
		items:     store.NewListingStore(domain.ListingTypeItem),
		materials: store.NewListingStore(domain.ListingTypeMaterial),
		seq:       store.NewSequenceStore(),
		assets:    assets,
		players:   players,
		logs:      logs,
		payments:  payments,
		catalog:   domain.NewMaterialCatalog(),
		now:       time.Now,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the market rules.
func (m *Market) Config() Config {
	return m.cfg
}

func (m *Market) store(t domain.ListingType) *store.ListingStore {
	if t == domain.ListingTypeItem {
		return m.items
	}
	return m.materials
}

// Restore loads listings and counters from durable storage. It must run
// before the market serves operations.
func (m *Market) Restore(snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var items, materials []domain.Listing
	for _, l := range snap.Listings {
		if l.Type == domain.ListingTypeItem {
			items = append(items, l)
		} else {
			materials = append(materials, l)
		}
	}
	m.items.Load(items)
	m.materials.Load(materials)
	m.seq.Load(snap.Counters)
}

// Listing returns an active listing by type and id.
func (m *Market) Listing(t domain.ListingType, id uint64) (domain.Listing, error) {
	return m.store(t).Get(id)
}

// Browse returns up to limit active listings of type t with id greater
// than afterID.
func (m *Market) Browse(t domain.ListingType, afterID uint64, limit int) []domain.Listing {
	return m.store(t).Page(afterID, limit)
}

// ListingsByOwner returns the owner's active listings of type t.
func (m *Market) ListingsByOwner(t domain.ListingType, owner string) []domain.Listing {
	return m.store(t).ListByOwner(owner)
}

// LastID returns the last listing id issued for t.
func (m *Market) LastID(t domain.ListingType) uint64 {
	return m.seq.Last(t)
}
