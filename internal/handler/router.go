package handler

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/knightsmarket/internal/auth"
	"github.com/efreitasn/knightsmarket/internal/domain"
	"github.com/efreitasn/knightsmarket/internal/service"
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all routes registered, request logging,
// and Content-Type validation middleware. feed may be nil.
func NewRouter(
	marketSvc *service.MarketService,
	playerSvc *service.PlayerService,
	webhookSvc *service.WebhookService,
	verifier *auth.Verifier,
	feed http.Handler,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	r.Use(contentTypeJSON)

	// Create handlers.
	marketH := NewMarketHandler(marketSvc)
	adminH := NewAdminHandler(marketSvc, playerSvc)
	playerH := NewPlayerHandler(playerSvc, marketSvc)
	webhookH := NewWebhookHandler(webhookSvc)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if feed != nil {
		r.Method(http.MethodGet, "/feed", feed)
	}

	// Public market reads.
	r.Get("/market/items", marketH.Browse(domain.ListingTypeItem))
	r.Get("/market/items/{id}", marketH.Get(domain.ListingTypeItem))
	r.Get("/market/materials", marketH.Browse(domain.ListingTypeMaterial))
	r.Get("/market/materials/{id}", marketH.Get(domain.ListingTypeMaterial))

	r.Group(func(r chi.Router) {
		r.Use(requireCaller(verifier))

		// Market writes.
		r.Post("/market/items", marketH.List(domain.ListingTypeItem))
		r.Delete("/market/items/{id}", marketH.Cancel(domain.ListingTypeItem))
		r.Post("/market/items/{id}/buy", marketH.Buy(domain.ListingTypeItem))
		r.Post("/market/materials", marketH.List(domain.ListingTypeMaterial))
		r.Delete("/market/materials/{id}", marketH.Cancel(domain.ListingTypeMaterial))
		r.Post("/market/materials/{id}/buy", marketH.Buy(domain.ListingTypeMaterial))

		// Controller routes.
		r.Post("/admin/materials", adminH.BulkList)
		r.Post("/admin/materials/cancel", adminH.BulkCancel)
		r.Post("/admin/players", adminH.RegisterPlayer)

		// Caller routes.
		r.Get("/me/inventory", playerH.Inventory)
		r.Get("/me/listings", playerH.Listings)
		r.Get("/me/sells", playerH.Sells)
		r.Get("/me/buys", playerH.Buys)
		r.Post("/me/items/{id}/equip", playerH.Equip)

		// Webhook routes.
		r.Post("/webhooks", webhookH.Upsert)
		r.Get("/webhooks", webhookH.List)
		r.Delete("/webhooks/{webhook_id}", webhookH.Delete)
	})

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the feed upgrade connections through the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	w.wroteHeader = true
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// contentTypeJSON is middleware that validates Content-Type for POST, PUT, and
// PATCH requests. If the Content-Type header doesn't start with
// "application/json", it returns 400 Bad Request before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
