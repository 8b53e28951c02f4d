package handler

import (
	"net/http"

	"github.com/efreitasn/knightsmarket/internal/service"
	"github.com/go-chi/chi/v5"
)

// PlayerHandler handles the caller-scoped /me endpoints.
type PlayerHandler struct {
	playerSvc *service.PlayerService
	marketSvc *service.MarketService
}

// NewPlayerHandler creates a new PlayerHandler.
func NewPlayerHandler(playerSvc *service.PlayerService, marketSvc *service.MarketService) *PlayerHandler {
	return &PlayerHandler{playerSvc: playerSvc, marketSvc: marketSvc}
}

type equipRequest struct {
	Knight uint64 `json:"knight"`
}

type ownerListingsResponse struct {
	Items     []listingResponse `json:"items"`
	Materials []listingResponse `json:"materials"`
}

type sellsResponse struct {
	Sells []tradeLogResponse `json:"sells"`
}

type buysResponse struct {
	Buys []tradeLogResponse `json:"buys"`
}

// Inventory handles GET /me/inventory.
func (h *PlayerHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	inv, err := h.playerSvc.Inventory(r.Context(), caller(r))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildInventoryResponse(inv))
}

// Listings handles GET /me/listings.
func (h *PlayerHandler) Listings(w http.ResponseWriter, r *http.Request) {
	owned, err := h.marketSvc.ListingsByOwner(caller(r))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ownerListingsResponse{
		Items:     buildListingResponses(owned.Items),
		Materials: buildListingResponses(owned.Materials),
	})
}

// Sells handles GET /me/sells.
func (h *PlayerHandler) Sells(w http.ResponseWriter, r *http.Request) {
	logs, err := h.playerSvc.Sells(r.Context(), caller(r))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sellsResponse{Sells: buildSellResponses(logs)})
}

// Buys handles GET /me/buys.
func (h *PlayerHandler) Buys(w http.ResponseWriter, r *http.Request) {
	logs, err := h.playerSvc.Buys(r.Context(), caller(r))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buysResponse{Buys: buildBuyResponses(logs)})
}

// Equip handles POST /me/items/{id}/equip.
func (h *PlayerHandler) Equip(w http.ResponseWriter, r *http.Request) {
	id, err := uintParam(chi.URLParam(r, "id"), "id")
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	var req equipRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.playerSvc.Equip(r.Context(), caller(r), id, req.Knight); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
