package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/efreitasn/knightsmarket/internal/domain"
	"github.com/efreitasn/knightsmarket/internal/feed"
	"github.com/efreitasn/knightsmarket/internal/inventory"
	"github.com/efreitasn/knightsmarket/internal/market"
	"github.com/efreitasn/knightsmarket/internal/payment"
	"github.com/efreitasn/knightsmarket/internal/store"
)

// recordingPublisher collects feed events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []feed.Event
}

func (p *recordingPublisher) Publish(ev feed.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type testMarketEnv struct {
	inv    *inventory.Store
	logs   *store.TradeLogStore
	ledger *payment.Ledger
	pub    *recordingPublisher
	svc    *MarketService
	player *PlayerService
}

func newTestMarketEnv(t *testing.T) *testMarketEnv {
	t.Helper()
	env := &testMarketEnv{
		inv:    inventory.NewStore(),
		logs:   store.NewTradeLogStore(),
		ledger: payment.NewLedger(),
		pub:    &recordingPublisher{},
	}
	cfg := market.Config{
		Currency:          domain.Symbol{Code: "EOS", Precision: 4},
		MinPrice:          100,
		MaxPrice:          10_000_000_000,
		TaxRate:           5,
		SlotsPerUnit:      5,
		HouseAccount:      "house",
		ControllerAccount: "controller",
		PaymentMemo:       "knights market sale",
	}
	m := market.NewMarket(cfg, env.inv, env.inv, env.logs, env.ledger)
	webhooks := NewWebhookService(store.NewWebhookStore(), env.inv, time.Second, nil)
	env.svc = NewMarketService(m, webhooks, env.pub, nil)
	env.player = NewPlayerService(env.inv, NewMemoryHistory(env.logs), "controller", nil)

	registerPlayer(t, env.inv, "controller")
	registerPlayer(t, env.inv, "alice")
	registerPlayer(t, env.inv, "bob")
	return env
}

func (env *testMarketEnv) grantItem(t *testing.T, owner string) uint64 {
	t.Helper()
	h, err := env.inv.Grant(context.Background(), owner, domain.ListingTypeItem, domain.Asset{Code: 101, DNA: 9, Level: 2})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	return h.ID
}

func TestMarketService_ListBuyFlow(t *testing.T) {
	env := newTestMarketEnv(t)
	ctx := context.Background()
	itemID := env.grantItem(t, "alice")

	l, err := env.svc.List(ctx, ListRequest{
		Type:      domain.ListingTypeItem,
		Owner:     "alice",
		HoldingID: itemID,
		Price:     "2.5000 EOS",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.ID != 1 || l.Owner != "alice" || l.Price.Amount != 25000 {
		t.Fatalf("unexpected listing: %+v", l)
	}

	page, err := env.svc.Browse(domain.ListingTypeItem, 0, 0)
	if err != nil || len(page) != 1 {
		t.Fatalf("browse: %v, %d listings", err, len(page))
	}

	st, err := env.svc.Buy(ctx, BuyRequest{
		Type:      domain.ListingTypeItem,
		Buyer:     "bob",
		ListingID: l.ID,
		Quantity:  "2.5000 EOS",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Tax.Amount != 1250 || st.Net.Amount != 23750 {
		t.Errorf("got tax %s net %s", st.Tax, st.Net)
	}
	if got := env.ledger.Credited("alice"); got != 23750 {
		t.Errorf("alice credited %d, want 23750", got)
	}

	if _, err := env.svc.Get(domain.ListingTypeItem, l.ID); !errors.Is(err, domain.ErrListingNotFound) {
		t.Errorf("sold listing still visible: %v", err)
	}

	got := env.pub.types()
	want := []string{feed.EventListingCreated, feed.EventTradeSettled}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("feed events = %v, want %v", got, want)
	}

	sells, err := env.player.Sells(ctx, "alice")
	if err != nil || len(sells) != 1 {
		t.Fatalf("sells: %v, %d entries", err, len(sells))
	}
	buys, err := env.player.Buys(ctx, "bob")
	if err != nil || len(buys) != 1 {
		t.Fatalf("buys: %v, %d entries", err, len(buys))
	}
}

func TestMarketService_Cancel(t *testing.T) {
	env := newTestMarketEnv(t)
	ctx := context.Background()
	itemID := env.grantItem(t, "alice")

	l, err := env.svc.List(ctx, ListRequest{Type: domain.ListingTypeItem, Owner: "alice", HoldingID: itemID, Price: "1.0000 EOS"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = env.svc.Cancel(ctx, CancelRequest{Type: domain.ListingTypeItem, Owner: "bob", ListingID: l.ID})
	if !errors.Is(err, domain.ErrNotListingOwner) {
		t.Fatalf("got %v, want ErrNotListingOwner", err)
	}
	if err := env.svc.Cancel(ctx, CancelRequest{Type: domain.ListingTypeItem, Owner: "alice", ListingID: l.ID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	owned, _ := env.svc.ListingsByOwner("alice")
	if len(owned.Items) != 0 {
		t.Errorf("got %d listings after cancel, want 0", len(owned.Items))
	}
	types := env.pub.types()
	if types[len(types)-1] != feed.EventListingCancelled {
		t.Errorf("last feed event = %s, want listing.cancelled", types[len(types)-1])
	}
}

func TestMarketService_RequestValidation(t *testing.T) {
	env := newTestMarketEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func() error
		want string
	}{
		{"list bad type", func() error {
			_, err := env.svc.List(ctx, ListRequest{Type: 9, Owner: "alice", HoldingID: 1, Price: "1.0000 EOS"})
			return err
		}, "type must be"},
		{"list zero holding", func() error {
			_, err := env.svc.List(ctx, ListRequest{Type: domain.ListingTypeItem, Owner: "alice", Price: "1.0000 EOS"})
			return err
		}, "holding_id"},
		{"list missing price", func() error {
			_, err := env.svc.List(ctx, ListRequest{Type: domain.ListingTypeItem, Owner: "alice", HoldingID: 1})
			return err
		}, "price is required"},
		{"list malformed price", func() error {
			_, err := env.svc.List(ctx, ListRequest{Type: domain.ListingTypeItem, Owner: "alice", HoldingID: 1, Price: "ten EOS"})
			return err
		}, "price:"},
		{"buy malformed quantity", func() error {
			_, err := env.svc.Buy(ctx, BuyRequest{Type: domain.ListingTypeItem, Buyer: "bob", ListingID: 1, Quantity: "1 eos"})
			return err
		}, "quantity:"},
		{"browse limit too large", func() error {
			_, err := env.svc.Browse(domain.ListingTypeItem, 0, 201)
			return err
		}, "limit"},
		{"browse negative limit", func() error {
			_, err := env.svc.Browse(domain.ListingTypeMaterial, 0, -1)
			return err
		}, "limit"},
		{"bulk list code out of range", func() error {
			_, err := env.svc.BulkList(ctx, BulkListRequest{Caller: "controller", Codes: []int64{0}, Prices: []string{"1.0000 EOS"}})
			return err
		}, "codes[0]"},
		{"bulk list bad price", func() error {
			_, err := env.svc.BulkList(ctx, BulkListRequest{Caller: "controller", Codes: []int64{5, 6}, Prices: []string{"1.0000 EOS", "x"}})
			return err
		}, "prices[1]"},
		{"bulk cancel empty", func() error {
			return env.svc.BulkCancel(ctx, BulkCancelRequest{Caller: "controller"})
		}, "non-empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !strings.Contains(ve.Message, tt.want) {
				t.Errorf("message %q does not mention %q", ve.Message, tt.want)
			}
		})
	}
}

func TestMarketService_MissingCaller(t *testing.T) {
	env := newTestMarketEnv(t)
	ctx := context.Background()

	if _, err := env.svc.List(ctx, ListRequest{Type: domain.ListingTypeItem, HoldingID: 1, Price: "1.0000 EOS"}); !errors.Is(err, domain.ErrMissingCaller) {
		t.Errorf("list: got %v", err)
	}
	if err := env.svc.Cancel(ctx, CancelRequest{Type: domain.ListingTypeItem, ListingID: 1}); !errors.Is(err, domain.ErrMissingCaller) {
		t.Errorf("cancel: got %v", err)
	}
	if _, err := env.svc.Buy(ctx, BuyRequest{Type: domain.ListingTypeItem, ListingID: 1, Quantity: "1.0000 EOS"}); !errors.Is(err, domain.ErrMissingCaller) {
		t.Errorf("buy: got %v", err)
	}
	if _, err := env.svc.ListingsByOwner(""); !errors.Is(err, domain.ErrMissingCaller) {
		t.Errorf("listings by owner: got %v", err)
	}
}

func TestMarketService_BulkListAndCancel(t *testing.T) {
	env := newTestMarketEnv(t)
	ctx := context.Background()

	listings, err := env.svc.BulkList(ctx, BulkListRequest{
		Caller: "controller",
		Codes:  []int64{7, 8},
		Prices: []string{"1.0000 EOS", "2.0000 EOS"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2", len(listings))
	}
	if listings[0].Owner != "house" || listings[1].Asset.Code != 8 {
		t.Errorf("unexpected listings: %+v", listings)
	}

	if _, err := env.svc.BulkList(ctx, BulkListRequest{Caller: "alice", Codes: []int64{7}, Prices: []string{"1.0000 EOS"}}); !errors.Is(err, domain.ErrNotController) {
		t.Errorf("non-controller bulk list: got %v", err)
	}

	ids := []uint64{listings[0].ID, listings[1].ID}
	if err := env.svc.BulkCancel(ctx, BulkCancelRequest{Caller: "controller", IDs: ids}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	page, _ := env.svc.Browse(domain.ListingTypeMaterial, 0, 10)
	if len(page) != 0 {
		t.Errorf("got %d materials after bulk cancel, want 0", len(page))
	}

	cancelled := 0
	for _, typ := range env.pub.types() {
		if typ == feed.EventListingCancelled {
			cancelled++
		}
	}
	if cancelled != 2 {
		t.Errorf("got %d cancellation events, want 2", cancelled)
	}
}

func TestMarketService_BuyHouseMaterial(t *testing.T) {
	env := newTestMarketEnv(t)
	ctx := context.Background()

	listings, err := env.svc.BulkList(ctx, BulkListRequest{Caller: "controller", Codes: []int64{3}, Prices: []string{"0.5000 EOS"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	st, err := env.svc.Buy(ctx, BuyRequest{
		Type:      domain.ListingTypeMaterial,
		Buyer:     "bob",
		ListingID: listings[0].ID,
		Quantity:  "0.5000 EOS",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Tax.Amount != 0 {
		t.Errorf("house sale taxed %s", st.Tax)
	}
	if len(env.ledger.Payments()) != 0 {
		t.Errorf("house sale issued %d payments", len(env.ledger.Payments()))
	}

	inv, err := env.player.Inventory(ctx, "bob")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inv.Materials) != 1 || inv.Materials[0].Asset.Code != 3 {
		t.Errorf("bob's materials = %+v", inv.Materials)
	}
}
