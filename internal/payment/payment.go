// Package payment issues seller payouts to the settlement ledger.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

// Ledger records issued payments in memory and keeps a running credited
// total per recipient.
type Ledger struct {
	mu       sync.Mutex
	payments []domain.Payment
	credited map[string]int64
}

// NewLedger creates an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{credited: make(map[string]int64)}
}

// Issue records p.
func (l *Ledger) Issue(_ context.Context, p domain.Payment) error {
	if p.To == "" || p.Amount.Amount < 0 {
		return fmt.Errorf("payment: invalid transfer %q to %q", p.Amount, p.To)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.payments = append(l.payments, p)
	l.credited[p.To] += p.Amount.Amount
	return nil
}

// Payments returns a copy of every recorded payment in issue order.
func (l *Ledger) Payments() []domain.Payment {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Payment, len(l.payments))
	copy(out, l.payments)
	return out
}

// Credited returns the total minor units paid to account.
func (l *Ledger) Credited(account string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credited[account]
}

// transfer is the JSON body posted to the settlement ledger.
type transfer struct {
	PaymentID string `json:"payment_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Quantity  string `json:"quantity"`
	Memo      string `json:"memo"`
}

// HTTPIssuer posts each payment to a settlement ledger endpoint and waits
// for a 2xx answer. There is no retry: a failed delivery fails the
// purchase.
type HTTPIssuer struct {
	url    string
	client *http.Client
}

// NewHTTPIssuer creates an issuer posting to url with the given timeout.
func NewHTTPIssuer(url string, timeout time.Duration) *HTTPIssuer {
	return &HTTPIssuer{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Issue sends p to the ledger.
func (h *HTTPIssuer) Issue(ctx context.Context, p domain.Payment) error {
	body, err := json.Marshal(transfer{
		PaymentID: p.ID,
		From:      p.From,
		To:        p.To,
		Quantity:  p.Amount.String(),
		Memo:      p.Memo,
	})
	if err != nil {
		return fmt.Errorf("payment: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("payment: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Idempotency-Key", p.ID)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment: deliver: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("payment: ledger answered %s", resp.Status)
	}
	return nil
}
