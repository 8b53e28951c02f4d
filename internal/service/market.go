package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/efreitasn/knightsmarket/internal/domain"
	"github.com/efreitasn/knightsmarket/internal/feed"
	"github.com/efreitasn/knightsmarket/internal/market"
)

// DefaultBrowseLimit is the page size used when Browse gets a zero limit.
const DefaultBrowseLimit = 50

const (
	maxBrowseLimit = 200
	maxBulkSize    = 500
)

// Publisher receives public market events.
type Publisher interface {
	Publish(ev feed.Event)
}

// ListRequest represents the input for listing an item or material.
type ListRequest struct {
	Type      domain.ListingType
	Owner     string
	HoldingID uint64
	Price     string
}

// CancelRequest represents the input for cancelling a listing.
type CancelRequest struct {
	Type      domain.ListingType
	Owner     string
	ListingID uint64
}

// BuyRequest represents the input for buying a listing.
type BuyRequest struct {
	Type      domain.ListingType
	Buyer     string
	ListingID uint64
	Quantity  string
}

// BulkListRequest represents the input for house material issuance.
type BulkListRequest struct {
	Caller string
	Codes  []int64
	Prices []string
}

// BulkCancelRequest represents the input for bulk material cancellation.
type BulkCancelRequest struct {
	Caller string
	IDs    []uint64
}

// OwnerListings groups an account's active listings by type.
type OwnerListings struct {
	Items     []domain.Listing
	Materials []domain.Listing
}

// ListingEvent is the feed payload for listing.created and
// listing.cancelled.
type ListingEvent struct {
	Type      string `json:"type"`
	ListingID uint64 `json:"listing_id"`
	Owner     string `json:"owner"`
	Code      uint16 `json:"code"`
	Price     string `json:"price,omitempty"`
}

// TradeEvent is the feed payload for trade.settled.
type TradeEvent struct {
	Type      string `json:"type"`
	ListingID uint64 `json:"listing_id"`
	Seller    string `json:"seller"`
	Buyer     string `json:"buyer"`
	Code      uint16 `json:"code"`
	Price     string `json:"price"`
	Tax       string `json:"tax"`
}

// MarketService validates marketplace requests, runs them against the
// market and fans out notifications for the ones that succeed.
type MarketService struct {
	market     *market.Market
	webhookSvc *WebhookService
	publisher  Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewMarketService creates a new MarketService. publisher may be nil.
func NewMarketService(
	m *market.Market,
	webhookSvc *WebhookService,
	publisher Publisher,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		market:     m,
		webhookSvc: webhookSvc,
		publisher:  publisher,
		logger:     orDiscard(logger),
		now:        time.Now,
	}
}

func checkType(t domain.ListingType) error {
	if !t.Valid() {
		return &domain.ValidationError{Message: "type must be 'item' or 'material'"}
	}
	return nil
}

func parsePrice(field, s string) (domain.Price, error) {
	if s == "" {
		return domain.Price{}, &domain.ValidationError{Message: field + " is required"}
	}
	p, err := domain.ParsePrice(s)
	if err != nil {
		return domain.Price{}, &domain.ValidationError{Message: field + ": " + err.Error()}
	}
	return p, nil
}

// List posts a holding for sale and returns the new listing.
func (s *MarketService) List(ctx context.Context, req ListRequest) (domain.Listing, error) {
	if err := checkType(req.Type); err != nil {
		return domain.Listing{}, err
	}
	if req.Owner == "" {
		return domain.Listing{}, domain.ErrMissingCaller
	}
	if req.HoldingID == 0 {
		return domain.Listing{}, &domain.ValidationError{Message: "holding_id must be a positive integer"}
	}
	price, err := parsePrice("price", req.Price)
	if err != nil {
		return domain.Listing{}, err
	}

	var id uint64
	if req.Type == domain.ListingTypeItem {
		id, err = s.market.ListItem(ctx, req.Owner, req.HoldingID, price)
	} else {
		id, err = s.market.ListMaterial(ctx, req.Owner, req.HoldingID, price)
	}
	attrs := []slog.Attr{
		slog.String("account", req.Owner),
		slog.String("type", req.Type.String()),
		slog.Uint64("holding_id", req.HoldingID),
		slog.String("price", price.String()),
	}
	if err != nil {
		s.logRejected(ctx, "list", err, attrs...)
		return domain.Listing{}, err
	}

	l, err := s.market.Listing(req.Type, id)
	if err != nil {
		return domain.Listing{}, err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "listing created", append(attrs, slog.Uint64("listing_id", id))...)
	s.publish(feed.EventListingCreated, ListingEvent{
		Type:      l.Type.String(),
		ListingID: l.ID,
		Owner:     l.Owner,
		Code:      l.Asset.Code,
		Price:     l.Price.String(),
	})
	return l, nil
}

// Cancel withdraws the caller's listing.
func (s *MarketService) Cancel(ctx context.Context, req CancelRequest) error {
	if err := checkType(req.Type); err != nil {
		return err
	}
	if req.Owner == "" {
		return domain.ErrMissingCaller
	}

	// Read before cancelling so the notification can carry the listing.
	l, lookupErr := s.market.Listing(req.Type, req.ListingID)

	var err error
	if req.Type == domain.ListingTypeItem {
		err = s.market.CancelItem(ctx, req.Owner, req.ListingID)
	} else {
		err = s.market.CancelMaterial(ctx, req.Owner, req.ListingID)
	}
	attrs := []slog.Attr{
		slog.String("account", req.Owner),
		slog.String("type", req.Type.String()),
		slog.Uint64("listing_id", req.ListingID),
	}
	if err != nil {
		s.logRejected(ctx, "cancel", err, attrs...)
		return err
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "listing cancelled", attrs...)
	if lookupErr == nil {
		s.cancelled(l)
	}
	return nil
}

// Buy purchases a listing for exactly its price.
func (s *MarketService) Buy(ctx context.Context, req BuyRequest) (*domain.Settlement, error) {
	if err := checkType(req.Type); err != nil {
		return nil, err
	}
	if req.Buyer == "" {
		return nil, domain.ErrMissingCaller
	}
	quantity, err := parsePrice("quantity", req.Quantity)
	if err != nil {
		return nil, err
	}

	var st *domain.Settlement
	if req.Type == domain.ListingTypeItem {
		st, err = s.market.BuyItem(ctx, req.Buyer, req.ListingID, quantity)
	} else {
		st, err = s.market.BuyMaterial(ctx, req.Buyer, req.ListingID, quantity)
	}
	attrs := []slog.Attr{
		slog.String("account", req.Buyer),
		slog.String("type", req.Type.String()),
		slog.Uint64("listing_id", req.ListingID),
		slog.String("quantity", quantity.String()),
	}
	if err != nil {
		s.logRejected(ctx, "buy", err, attrs...)
		return nil, err
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "trade settled", append(attrs,
		slog.String("seller", st.Listing.Owner),
		slog.String("tax", st.Tax.String()),
		slog.String("net", st.Net.String()),
	)...)
	s.webhookSvc.DispatchSettlement(st)
	s.publish(feed.EventTradeSettled, TradeEvent{
		Type:      st.Listing.Type.String(),
		ListingID: st.Listing.ID,
		Seller:    st.Listing.Owner,
		Buyer:     st.Buy.Buyer,
		Code:      st.Listing.Asset.Code,
		Price:     st.Listing.Price.String(),
		Tax:       st.Tax.String(),
	})
	return st, nil
}

// Get returns one active listing.
func (s *MarketService) Get(t domain.ListingType, id uint64) (domain.Listing, error) {
	if err := checkType(t); err != nil {
		return domain.Listing{}, err
	}
	return s.market.Listing(t, id)
}

// Browse pages through active listings in id order. A zero limit selects
// the default page size.
func (s *MarketService) Browse(t domain.ListingType, afterID uint64, limit int) ([]domain.Listing, error) {
	if err := checkType(t); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultBrowseLimit
	}
	if limit < 0 || limit > maxBrowseLimit {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("limit must be between 1 and %d", maxBrowseLimit),
		}
	}
	return s.market.Browse(t, afterID, limit), nil
}

// ListingsByOwner returns every active listing the account owns.
func (s *MarketService) ListingsByOwner(account string) (OwnerListings, error) {
	if account == "" {
		return OwnerListings{}, domain.ErrMissingCaller
	}
	return OwnerListings{
		Items:     s.market.ListingsByOwner(domain.ListingTypeItem, account),
		Materials: s.market.ListingsByOwner(domain.ListingTypeMaterial, account),
	}, nil
}

// BulkList issues house-owned material listings and returns them in input
// order.
func (s *MarketService) BulkList(ctx context.Context, req BulkListRequest) ([]domain.Listing, error) {
	if req.Caller == "" {
		return nil, domain.ErrMissingCaller
	}
	if len(req.Codes) > maxBulkSize || len(req.Prices) > maxBulkSize {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("at most %d listings per request", maxBulkSize),
		}
	}

	codes := make([]uint16, len(req.Codes))
	for i, c := range req.Codes {
		if c < 1 || c > 65535 {
			return nil, &domain.ValidationError{
				Message: fmt.Sprintf("codes[%d] must be between 1 and 65535", i),
			}
		}
		codes[i] = uint16(c)
	}
	prices := make([]domain.Price, len(req.Prices))
	for i, raw := range req.Prices {
		p, err := parsePrice(fmt.Sprintf("prices[%d]", i), raw)
		if err != nil {
			return nil, err
		}
		prices[i] = p
	}

	ids, err := s.market.BulkListMaterials(ctx, req.Caller, codes, prices)
	attrs := []slog.Attr{
		slog.String("account", req.Caller),
		slog.Int("count", len(codes)),
	}
	if err != nil {
		s.logRejected(ctx, "bulk list", err, attrs...)
		return nil, err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "materials issued", attrs...)

	listings := make([]domain.Listing, 0, len(ids))
	for _, id := range ids {
		l, err := s.market.Listing(domain.ListingTypeMaterial, id)
		if err != nil {
			// Another request already bought or cancelled it.
			continue
		}
		listings = append(listings, l)
		s.publish(feed.EventListingCreated, ListingEvent{
			Type:      l.Type.String(),
			ListingID: l.ID,
			Owner:     l.Owner,
			Code:      l.Asset.Code,
			Price:     l.Price.String(),
		})
	}
	return listings, nil
}

// BulkCancel removes house or controller material listings.
func (s *MarketService) BulkCancel(ctx context.Context, req BulkCancelRequest) error {
	if req.Caller == "" {
		return domain.ErrMissingCaller
	}
	if len(req.IDs) == 0 {
		return &domain.ValidationError{Message: "ids must be a non-empty array"}
	}
	if len(req.IDs) > maxBulkSize {
		return &domain.ValidationError{
			Message: fmt.Sprintf("at most %d listings per request", maxBulkSize),
		}
	}

	before := make([]domain.Listing, 0, len(req.IDs))
	for _, id := range req.IDs {
		if l, err := s.market.Listing(domain.ListingTypeMaterial, id); err == nil {
			before = append(before, l)
		}
	}

	err := s.market.BulkCancel(ctx, req.Caller, req.IDs)
	attrs := []slog.Attr{
		slog.String("account", req.Caller),
		slog.Int("count", len(req.IDs)),
	}
	if err != nil {
		s.logRejected(ctx, "bulk cancel", err, attrs...)
		return err
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "materials withdrawn", attrs...)
	for _, l := range before {
		s.cancelled(l)
	}
	return nil
}

func (s *MarketService) cancelled(l domain.Listing) {
	s.webhookSvc.DispatchCancelled(l)
	s.publish(feed.EventListingCancelled, ListingEvent{
		Type:      l.Type.String(),
		ListingID: l.ID,
		Owner:     l.Owner,
		Code:      l.Asset.Code,
	})
}

func (s *MarketService) publish(eventType string, data any) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(feed.Event{
		Type:      eventType,
		Timestamp: s.now().UTC(),
		Data:      data,
	})
}

// logRejected logs business rejections at info and everything else at
// error.
func (s *MarketService) logRejected(ctx context.Context, op string, err error, attrs ...slog.Attr) {
	level := slog.LevelError
	var de *domain.Error
	var ve *domain.ValidationError
	if errors.As(err, &de) || errors.As(err, &ve) {
		level = slog.LevelInfo
	}
	attrs = append(attrs, slog.String("error", err.Error()))
	s.logger.LogAttrs(ctx, level, op+" rejected", attrs...)
}
