package handler

import (
	"time"

	"github.com/efreitasn/knightsmarket/internal/domain"
	"github.com/efreitasn/knightsmarket/internal/service"
)

const timeFormat = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// listingResponse is a single listing. Material listings omit the item
// attributes.
type listingResponse struct {
	ID        uint64 `json:"id"`
	Type      string `json:"type"`
	Owner     string `json:"owner"`
	Price     string `json:"price"`
	Code      uint16 `json:"code"`
	DNA       uint64 `json:"dna,omitempty"`
	Level     uint32 `json:"level,omitempty"`
	Exp       uint32 `json:"exp,omitempty"`
	CreatedAt string `json:"created_at"`
}

func buildListingResponse(l domain.Listing) listingResponse {
	return listingResponse{
		ID:        l.ID,
		Type:      l.Type.String(),
		Owner:     l.Owner,
		Price:     l.Price.String(),
		Code:      l.Asset.Code,
		DNA:       l.Asset.DNA,
		Level:     l.Asset.Level,
		Exp:       l.Asset.Exp,
		CreatedAt: formatTime(l.CreatedAt),
	}
}

func buildListingResponses(listings []domain.Listing) []listingResponse {
	result := make([]listingResponse, len(listings))
	for i, l := range listings {
		result[i] = buildListingResponse(l)
	}
	return result
}

// holdingResponse is one owned item or material.
type holdingResponse struct {
	ID       uint64 `json:"id"`
	Code     uint16 `json:"code"`
	DNA      uint64 `json:"dna,omitempty"`
	Level    uint32 `json:"level,omitempty"`
	Exp      uint32 `json:"exp,omitempty"`
	KnightID uint64 `json:"knight_id"`
	SaleID   uint64 `json:"sale_id"`
}

func buildHoldingResponses(holdings []domain.Holding) []holdingResponse {
	result := make([]holdingResponse, len(holdings))
	for i, h := range holdings {
		result[i] = holdingResponse{
			ID:       h.ID,
			Code:     h.Asset.Code,
			DNA:      h.Asset.DNA,
			Level:    h.Asset.Level,
			Exp:      h.Asset.Exp,
			KnightID: h.KnightID,
			SaleID:   h.SaleID,
		}
	}
	return result
}

// inventoryResponse is the JSON response for GET /me/inventory and
// POST /admin/players.
type inventoryResponse struct {
	Account          string            `json:"account"`
	Knights          int               `json:"knights"`
	ItemCapacity     int               `json:"item_capacity"`
	MaterialCapacity int               `json:"material_capacity"`
	Items            []holdingResponse `json:"items"`
	Materials        []holdingResponse `json:"materials"`
}

func buildInventoryResponse(inv service.Inventory) inventoryResponse {
	return inventoryResponse{
		Account:          inv.Player.Account,
		Knights:          inv.Player.Knights,
		ItemCapacity:     inv.Player.ItemCapacity,
		MaterialCapacity: inv.Player.MaterialCapacity,
		Items:            buildHoldingResponses(inv.Items),
		Materials:        buildHoldingResponses(inv.Materials),
	}
}

// settlementResponse is the JSON response for a purchase.
type settlementResponse struct {
	Listing   listingResponse `json:"listing"`
	TaxRate   int             `json:"tax_rate"`
	Tax       string          `json:"tax"`
	Net       string          `json:"net"`
	SellLogID string          `json:"sell_log_id"`
	BuyLogID  string          `json:"buy_log_id"`
	SettledAt string          `json:"settled_at"`
}

func buildSettlementResponse(st *domain.Settlement) settlementResponse {
	return settlementResponse{
		Listing:   buildListingResponse(st.Listing),
		TaxRate:   st.TaxRate,
		Tax:       st.Tax.String(),
		Net:       st.Net.String(),
		SellLogID: st.Sell.ID,
		BuyLogID:  st.Buy.ID,
		SettledAt: formatTime(st.Sell.At),
	}
}

// tradeLogResponse is one sell or buy log entry. Counterparty is the buyer
// for sells and the seller for buys.
type tradeLogResponse struct {
	ID           string `json:"id"`
	Counterparty string `json:"counterparty"`
	Type         string `json:"type"`
	ListingID    uint64 `json:"listing_id"`
	Code         uint16 `json:"code"`
	DNA          uint64 `json:"dna,omitempty"`
	Level        uint32 `json:"level,omitempty"`
	Exp          uint32 `json:"exp,omitempty"`
	Price        string `json:"price"`
	TaxRate      *int   `json:"tax_rate,omitempty"`
	At           string `json:"at"`
}

func buildSellResponses(logs []domain.SellLog) []tradeLogResponse {
	result := make([]tradeLogResponse, len(logs))
	for i, e := range logs {
		rate := e.TaxRate
		result[i] = tradeLogResponse{
			ID:           e.ID,
			Counterparty: e.Buyer,
			Type:         e.Type.String(),
			ListingID:    e.ListingID,
			Code:         e.Asset.Code,
			DNA:          e.Asset.DNA,
			Level:        e.Asset.Level,
			Exp:          e.Asset.Exp,
			Price:        e.Price.String(),
			TaxRate:      &rate,
			At:           formatTime(e.At),
		}
	}
	return result
}

func buildBuyResponses(logs []domain.BuyLog) []tradeLogResponse {
	result := make([]tradeLogResponse, len(logs))
	for i, e := range logs {
		result[i] = tradeLogResponse{
			ID:           e.ID,
			Counterparty: e.Seller,
			Type:         e.Type.String(),
			ListingID:    e.ListingID,
			Code:         e.Asset.Code,
			DNA:          e.Asset.DNA,
			Level:        e.Asset.Level,
			Exp:          e.Asset.Exp,
			Price:        e.Price.String(),
			At:           formatTime(e.At),
		}
	}
	return result
}
