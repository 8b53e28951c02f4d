package store

import (
	"sort"
	"sync"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

type accountEvent struct {
	account string
	event   string
}

// WebhookStore is a thread-safe in-memory store of webhook subscriptions.
// There is at most one subscription per (account, event); webhooks are
// stored and returned by value.
type WebhookStore struct {
	mu      sync.RWMutex
	byID    map[string]accountEvent
	byEvent map[accountEvent]domain.Webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		byID:    make(map[string]accountEvent),
		byEvent: make(map[accountEvent]domain.Webhook),
	}
}

// Upsert stores w unless the account already subscribes to w.Event, in
// which case the existing subscription keeps its id and takes w's URL.
// It returns the stored subscription and whether it was newly created.
func (s *WebhookStore) Upsert(w domain.Webhook) (domain.Webhook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := accountEvent{account: w.Account, event: w.Event}
	if existing, ok := s.byEvent[key]; ok {
		if existing.URL != w.URL {
			existing.URL = w.URL
			existing.UpdatedAt = w.UpdatedAt
			s.byEvent[key] = existing
		}
		return existing, false
	}
	s.byID[w.WebhookID] = key
	s.byEvent[key] = w
	return w, true
}

// Get retrieves a webhook by id. It returns domain.ErrWebhookNotFound if
// the webhook does not exist.
func (s *WebhookStore) Get(id string) (domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.byID[id]
	if !ok {
		return domain.Webhook{}, domain.ErrWebhookNotFound
	}
	return s.byEvent[key], nil
}

// ListByAccount returns the account's subscriptions ordered by event name.
func (s *WebhookStore) ListByAccount(account string) []domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Webhook, 0)
	for key, w := range s.byEvent {
		if key.account == account {
			result = append(result, w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Event < result[j].Event })
	return result
}

// Lookup returns the subscription for an account+event pair.
func (s *WebhookStore) Lookup(account, event string) (domain.Webhook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.byEvent[accountEvent{account: account, event: event}]
	return w, ok
}

// Delete removes the account's webhook by id. A webhook owned by another
// account is reported as domain.ErrWebhookNotFound.
func (s *WebhookStore) Delete(account, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.byID[id]
	if !ok || key.account != account {
		return domain.ErrWebhookNotFound
	}
	delete(s.byID, id)
	delete(s.byEvent, key)
	return nil
}
