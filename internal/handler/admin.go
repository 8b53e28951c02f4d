package handler

import (
	"net/http"

	"github.com/efreitasn/knightsmarket/internal/service"
)

// AdminHandler handles the controller-only endpoints.
type AdminHandler struct {
	marketSvc *service.MarketService
	playerSvc *service.PlayerService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(marketSvc *service.MarketService, playerSvc *service.PlayerService) *AdminHandler {
	return &AdminHandler{marketSvc: marketSvc, playerSvc: playerSvc}
}

// bulkListRequest is the JSON request body for POST /admin/materials.
type bulkListRequest struct {
	Codes  []int64  `json:"codes"`
	Prices []string `json:"prices"`
}

// bulkCancelRequest is the JSON request body for POST /admin/materials/cancel.
type bulkCancelRequest struct {
	IDs []uint64 `json:"ids"`
}

// registerPlayerRequest is the JSON request body for POST /admin/players.
type registerPlayerRequest struct {
	Account          string        `json:"account"`
	Knights          int           `json:"knights"`
	ItemCapacity     int           `json:"item_capacity"`
	MaterialCapacity int           `json:"material_capacity"`
	Items            []itemRequest `json:"items"`
	Materials        []uint16      `json:"materials"`
}

type itemRequest struct {
	Code  uint16 `json:"code"`
	DNA   uint64 `json:"dna"`
	Level uint32 `json:"level"`
	Exp   uint32 `json:"exp"`
}

type listingsResponse struct {
	Listings []listingResponse `json:"listings"`
}

// BulkList handles POST /admin/materials.
func (h *AdminHandler) BulkList(w http.ResponseWriter, r *http.Request) {
	var req bulkListRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	listings, err := h.marketSvc.BulkList(r.Context(), service.BulkListRequest{
		Caller: caller(r),
		Codes:  req.Codes,
		Prices: req.Prices,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, listingsResponse{Listings: buildListingResponses(listings)})
}

// BulkCancel handles POST /admin/materials/cancel.
func (h *AdminHandler) BulkCancel(w http.ResponseWriter, r *http.Request) {
	var req bulkCancelRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	err := h.marketSvc.BulkCancel(r.Context(), service.BulkCancelRequest{
		Caller: caller(r),
		IDs:    req.IDs,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterPlayer handles POST /admin/players.
func (h *AdminHandler) RegisterPlayer(w http.ResponseWriter, r *http.Request) {
	var req registerPlayerRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	items := make([]service.ItemInput, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.ItemInput{Code: it.Code, DNA: it.DNA, Level: it.Level, Exp: it.Exp}
	}
	inv, err := h.playerSvc.Register(r.Context(), service.RegisterPlayerRequest{
		Caller:           caller(r),
		Account:          req.Account,
		Knights:          req.Knights,
		ItemCapacity:     req.ItemCapacity,
		MaterialCapacity: req.MaterialCapacity,
		Items:            items,
		Materials:        req.Materials,
	})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildInventoryResponse(inv))
}
