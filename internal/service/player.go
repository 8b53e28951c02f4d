package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/efreitasn/knightsmarket/internal/domain"
	"github.com/efreitasn/knightsmarket/internal/inventory"
	"github.com/efreitasn/knightsmarket/internal/store"
)

var accountRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

// TradeHistory answers sell and buy log queries.
type TradeHistory interface {
	SellLogs(ctx context.Context, seller string) ([]domain.SellLog, error)
	BuyLogs(ctx context.Context, buyer string) ([]domain.BuyLog, error)
}

type memoryHistory struct {
	logs *store.TradeLogStore
}

// NewMemoryHistory serves trade history from the in-memory log store.
func NewMemoryHistory(logs *store.TradeLogStore) TradeHistory {
	return memoryHistory{logs: logs}
}

func (h memoryHistory) SellLogs(_ context.Context, seller string) ([]domain.SellLog, error) {
	return h.logs.SellLogs(seller), nil
}

func (h memoryHistory) BuyLogs(_ context.Context, buyer string) ([]domain.BuyLog, error) {
	return h.logs.BuyLogs(buyer), nil
}

// ItemInput is one item seeded into a new player's inventory.
type ItemInput struct {
	Code  uint16
	DNA   uint64
	Level uint32
	Exp   uint32
}

// RegisterPlayerRequest represents the input for player registration.
type RegisterPlayerRequest struct {
	Caller           string
	Account          string
	Knights          int
	ItemCapacity     int
	MaterialCapacity int
	Items            []ItemInput
	Materials        []uint16
}

// Inventory is a player's record together with everything they hold.
type Inventory struct {
	Player    domain.Player
	Items     []domain.Holding
	Materials []domain.Holding
}

// PlayerService handles the player stand-in: registration, inventory
// reports, equipment and trade history.
type PlayerService struct {
	inventory  *inventory.Store
	history    TradeHistory
	controller string
	logger     *slog.Logger
}

// NewPlayerService creates a new PlayerService. Only controller may
// register players.
func NewPlayerService(inv *inventory.Store, history TradeHistory, controller string, logger *slog.Logger) *PlayerService {
	return &PlayerService{
		inventory:  inv,
		history:    history,
		controller: controller,
		logger:     orDiscard(logger),
	}
}

// Register validates the request, creates the player and seeds its
// inventory.
func (s *PlayerService) Register(ctx context.Context, req RegisterPlayerRequest) (Inventory, error) {
	if req.Caller == "" {
		return Inventory{}, domain.ErrMissingCaller
	}
	if req.Caller != s.controller {
		return Inventory{}, domain.ErrNotController
	}
	if !accountRegex.MatchString(req.Account) {
		return Inventory{}, &domain.ValidationError{
			Message: "account must match ^[a-zA-Z0-9_.-]{1,64}$",
		}
	}
	if req.Knights < 0 || req.ItemCapacity < 0 || req.MaterialCapacity < 0 {
		return Inventory{}, &domain.ValidationError{
			Message: "knights and capacities must be non-negative integers",
		}
	}
	if len(req.Items) > req.ItemCapacity {
		return Inventory{}, &domain.ValidationError{
			Message: fmt.Sprintf("%d items exceed item capacity %d", len(req.Items), req.ItemCapacity),
		}
	}
	if len(req.Materials) > req.MaterialCapacity {
		return Inventory{}, &domain.ValidationError{
			Message: fmt.Sprintf("%d materials exceed material capacity %d", len(req.Materials), req.MaterialCapacity),
		}
	}
	for i, it := range req.Items {
		if it.Code == 0 {
			return Inventory{}, &domain.ValidationError{Message: fmt.Sprintf("items[%d].code must be positive", i)}
		}
	}
	for i, code := range req.Materials {
		if code == 0 {
			return Inventory{}, &domain.ValidationError{Message: fmt.Sprintf("materials[%d] must be positive", i)}
		}
	}

	p := domain.Player{
		Account:          req.Account,
		Knights:          req.Knights,
		ItemCapacity:     req.ItemCapacity,
		MaterialCapacity: req.MaterialCapacity,
	}
	if err := s.inventory.Register(p); err != nil {
		return Inventory{}, err
	}
	for _, it := range req.Items {
		asset := domain.Asset{Code: it.Code, DNA: it.DNA, Level: it.Level, Exp: it.Exp}
		if _, err := s.inventory.Grant(ctx, p.Account, domain.ListingTypeItem, asset); err != nil {
			return Inventory{}, err
		}
	}
	for _, code := range req.Materials {
		if _, err := s.inventory.Grant(ctx, p.Account, domain.ListingTypeMaterial, domain.Asset{Code: code}); err != nil {
			return Inventory{}, err
		}
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "player registered",
		slog.String("account", p.Account),
		slog.Int("knights", p.Knights),
		slog.Int("items", len(req.Items)),
		slog.Int("materials", len(req.Materials)),
	)
	return s.Inventory(ctx, p.Account)
}

// Inventory returns the player's record and holdings.
func (s *PlayerService) Inventory(ctx context.Context, account string) (Inventory, error) {
	if account == "" {
		return Inventory{}, domain.ErrMissingCaller
	}
	p, err := s.inventory.Player(ctx, account)
	if err != nil {
		return Inventory{}, err
	}
	items, err := s.inventory.Holdings(ctx, account, domain.ListingTypeItem)
	if err != nil {
		return Inventory{}, err
	}
	materials, err := s.inventory.Holdings(ctx, account, domain.ListingTypeMaterial)
	if err != nil {
		return Inventory{}, err
	}
	return Inventory{Player: p, Items: items, Materials: materials}, nil
}

// Equip assigns an item to one of the player's knights, numbered from 1.
// Knight 0 unequips the item. Listed items cannot be equipped.
func (s *PlayerService) Equip(ctx context.Context, account string, itemID, knight uint64) error {
	if account == "" {
		return domain.ErrMissingCaller
	}
	p, err := s.inventory.Player(ctx, account)
	if err != nil {
		return err
	}
	if knight > uint64(p.Knights) {
		return &domain.ValidationError{
			Message: fmt.Sprintf("knight must be between 0 and %d", p.Knights),
		}
	}
	items, err := s.inventory.Holdings(ctx, account, domain.ListingTypeItem)
	if err != nil {
		return err
	}
	for _, h := range items {
		if h.ID != itemID {
			continue
		}
		if h.Listed() && knight != 0 {
			return domain.ErrAlreadyOnSale
		}
		if err := s.inventory.Equip(account, itemID, knight); err != nil {
			return err
		}
		s.logger.LogAttrs(ctx, slog.LevelInfo, "item equipped",
			slog.String("account", account),
			slog.Uint64("item_id", itemID),
			slog.Uint64("knight", knight),
		)
		return nil
	}
	return domain.ErrAssetNotFound
}

// Sells returns the account's sell logs.
func (s *PlayerService) Sells(ctx context.Context, account string) ([]domain.SellLog, error) {
	if account == "" {
		return nil, domain.ErrMissingCaller
	}
	if _, err := s.inventory.Player(ctx, account); err != nil {
		return nil, err
	}
	return s.history.SellLogs(ctx, account)
}

// Buys returns the account's buy logs.
func (s *PlayerService) Buys(ctx context.Context, account string) ([]domain.BuyLog, error) {
	if account == "" {
		return nil, domain.ErrMissingCaller
	}
	if _, err := s.inventory.Player(ctx, account); err != nil {
		return nil, err
	}
	return s.history.BuyLogs(ctx, account)
}
