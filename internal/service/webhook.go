package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/knightsmarket/internal/domain"
	"github.com/efreitasn/knightsmarket/internal/market"
	"github.com/efreitasn/knightsmarket/internal/store"
)

var validWebhookEvents = map[string]bool{
	domain.EventListingSold:      true,
	domain.EventListingPurchased: true,
	domain.EventListingCancelled: true,
}

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	Account string
	URL     string
	Events  []string
}

// WebhookService handles webhook subscriptions and event dispatch.
type WebhookService struct {
	store   *store.WebhookStore
	players market.PlayerDirectory
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// NewWebhookService creates a new WebhookService with the given dependencies.
func NewWebhookService(
	webhookStore *store.WebhookStore,
	players market.PlayerDirectory,
	webhookTimeout time.Duration,
	logger *slog.Logger,
) *WebhookService {
	return &WebhookService{
		store:   webhookStore,
		players: players,
		client:  &http.Client{Timeout: webhookTimeout},
		logger:  orDiscard(logger),
		now:     time.Now,
	}
}

// Upsert validates the request and creates or updates subscriptions, one
// per event. It reports whether any subscription was newly created.
func (s *WebhookService) Upsert(ctx context.Context, req UpsertWebhookRequest) ([]domain.Webhook, bool, error) {
	if req.Account == "" {
		return nil, false, domain.ErrMissingCaller
	}
	if _, err := s.players.Player(ctx, req.Account); err != nil {
		return nil, false, err
	}

	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}

	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}
	seen := make(map[string]bool, len(req.Events))
	events := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !validWebhookEvents[event] {
			return nil, false, &domain.ValidationError{
				Message: "unknown event type: " + event + ", must be one of: " +
					strings.Join([]string{domain.EventListingSold, domain.EventListingPurchased, domain.EventListingCancelled}, ", "),
			}
		}
		if !seen[event] {
			seen[event] = true
			events = append(events, event)
		}
	}

	now := s.now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]domain.Webhook, 0, len(events))
	for _, event := range events {
		w, created := s.store.Upsert(domain.Webhook{
			WebhookID: uuid.New().String(),
			Account:   req.Account,
			Event:     event,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		})
		anyCreated = anyCreated || created
		webhooks = append(webhooks, w)
	}
	return webhooks, anyCreated, nil
}

// List returns the account's subscriptions.
func (s *WebhookService) List(ctx context.Context, account string) ([]domain.Webhook, error) {
	if account == "" {
		return nil, domain.ErrMissingCaller
	}
	if _, err := s.players.Player(ctx, account); err != nil {
		return nil, err
	}
	return s.store.ListByAccount(account), nil
}

// Delete removes one of the account's subscriptions.
func (s *WebhookService) Delete(account, webhookID string) error {
	if account == "" {
		return domain.ErrMissingCaller
	}
	return s.store.Delete(account, webhookID)
}

// listingEventPayload is the JSON body of every webhook delivery.
type listingEventPayload struct {
	Event     string           `json:"event"`
	Timestamp string           `json:"timestamp"`
	Data      listingEventData `json:"data"`
}

type listingEventData struct {
	Account   string `json:"account"`
	Type      string `json:"type"`
	ListingID uint64 `json:"listing_id"`
	Code      uint16 `json:"code"`
	Price     string `json:"price"`
	Seller    string `json:"seller,omitempty"`
	Buyer     string `json:"buyer,omitempty"`
	Tax       string `json:"tax,omitempty"`
	Net       string `json:"net,omitempty"`
}

// DispatchSettlement notifies the seller (listing.sold) and the buyer
// (listing.purchased). Fire-and-forget.
func (s *WebhookService) DispatchSettlement(st *domain.Settlement) {
	l := st.Listing
	base := listingEventData{
		Type:      l.Type.String(),
		ListingID: l.ID,
		Code:      l.Asset.Code,
		Price:     l.Price.String(),
		Seller:    l.Owner,
		Buyer:     st.Buy.Buyer,
	}

	sold := base
	sold.Account = l.Owner
	sold.Tax = st.Tax.String()
	sold.Net = st.Net.String()
	s.dispatch(l.Owner, domain.EventListingSold, st.Sell.At, sold)

	bought := base
	bought.Account = st.Buy.Buyer
	s.dispatch(st.Buy.Buyer, domain.EventListingPurchased, st.Buy.At, bought)
}

// DispatchCancelled notifies the listing owner. Fire-and-forget.
func (s *WebhookService) DispatchCancelled(l domain.Listing) {
	s.dispatch(l.Owner, domain.EventListingCancelled, s.now(), listingEventData{
		Account:   l.Owner,
		Type:      l.Type.String(),
		ListingID: l.ID,
		Code:      l.Asset.Code,
		Price:     l.Price.String(),
	})
}

func (s *WebhookService) dispatch(account, event string, at time.Time, data listingEventData) {
	wh, ok := s.store.Lookup(account, event)
	if !ok {
		return
	}
	payload := listingEventPayload{
		Event:     event,
		Timestamp: at.UTC().Truncate(time.Second).Format(time.RFC3339),
		Data:      data,
	}
	go s.deliver(wh, payload)
}

// deliver sends the webhook payload via HTTP POST with the delivery
// headers. Failures are logged and dropped.
func (s *WebhookService) deliver(wh domain.Webhook, payload listingEventPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", payload.Event)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery failed",
			slog.String("webhook_id", wh.WebhookID),
			slog.String("event", payload.Event),
			slog.String("error", err.Error()),
		)
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
