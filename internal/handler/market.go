package handler

import (
	"net/http"
	"strconv"

	"github.com/efreitasn/knightsmarket/internal/domain"
	"github.com/efreitasn/knightsmarket/internal/service"
	"github.com/go-chi/chi/v5"
)

// MarketHandler handles HTTP requests for the item and material listing
// endpoints. Each method is bound to one listing type.
type MarketHandler struct {
	marketSvc *service.MarketService
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(marketSvc *service.MarketService) *MarketHandler {
	return &MarketHandler{marketSvc: marketSvc}
}

// listRequest is the JSON request body for POST /market/{items,materials}.
type listRequest struct {
	HoldingID uint64 `json:"holding_id"`
	Price     string `json:"price"`
}

// buyRequest is the JSON request body for POST .../{id}/buy.
type buyRequest struct {
	Quantity string `json:"quantity"`
}

// browseResponse is the JSON response for the browse endpoints. NextAfter
// is the cursor for the following page, or null on the last one.
type browseResponse struct {
	Listings  []listingResponse `json:"listings"`
	NextAfter *uint64           `json:"next_after"`
}

// Browse handles GET /market/{items,materials}.
func (h *MarketHandler) Browse(t domain.ListingType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var after uint64
		if raw := q.Get("after"); raw != "" {
			v, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "validation_error", "after must be a non-negative integer")
				return
			}
			after = v
		}
		limit := 0
		if raw := q.Get("limit"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v <= 0 {
				WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a positive integer")
				return
			}
			limit = v
		}

		listings, err := h.marketSvc.Browse(t, after, limit)
		if err != nil {
			WriteDomainError(w, err)
			return
		}

		resp := browseResponse{Listings: buildListingResponses(listings)}
		effective := limit
		if effective == 0 {
			effective = service.DefaultBrowseLimit
		}
		if len(listings) == effective {
			next := listings[len(listings)-1].ID
			resp.NextAfter = &next
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// Get handles GET /market/{items,materials}/{id}.
func (h *MarketHandler) Get(t domain.ListingType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uintParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		l, err := h.marketSvc.Get(t, id)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, buildListingResponse(l))
	}
}

// List handles POST /market/{items,materials}.
func (h *MarketHandler) List(t domain.ListingType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req listRequest
		if err := ParseJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		l, err := h.marketSvc.List(r.Context(), service.ListRequest{
			Type:      t,
			Owner:     caller(r),
			HoldingID: req.HoldingID,
			Price:     req.Price,
		})
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, buildListingResponse(l))
	}
}

// Cancel handles DELETE /market/{items,materials}/{id}.
func (h *MarketHandler) Cancel(t domain.ListingType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uintParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		err = h.marketSvc.Cancel(r.Context(), service.CancelRequest{
			Type:      t,
			Owner:     caller(r),
			ListingID: id,
		})
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Buy handles POST /market/{items,materials}/{id}/buy.
func (h *MarketHandler) Buy(t domain.ListingType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uintParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		var req buyRequest
		if err := ParseJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}

		st, err := h.marketSvc.Buy(r.Context(), service.BuyRequest{
			Type:      t,
			Buyer:     caller(r),
			ListingID: id,
			Quantity:  req.Quantity,
		})
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, buildSettlementResponse(st))
	}
}
