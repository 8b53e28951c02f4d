package tradelog

import (
	"context"
	"errors"
	"testing"

	"github.com/efreitasn/knightsmarket/internal/domain"
	"github.com/efreitasn/knightsmarket/internal/store"
)

type brokenSink struct{}

func (brokenSink) AppendSellLog(context.Context, domain.SellLog) error { return errors.New("broken") }
func (brokenSink) AppendBuyLog(context.Context, domain.BuyLog) error   { return errors.New("broken") }

func TestTee_FansOut(t *testing.T) {
	a, b := store.NewTradeLogStore(), store.NewTradeLogStore()
	tee := Tee{a, b}
	ctx := context.Background()

	if err := tee.AppendSellLog(ctx, domain.SellLog{ID: "s", Seller: "alice"}); err != nil {
		t.Fatal(err)
	}
	if err := tee.AppendBuyLog(ctx, domain.BuyLog{ID: "b", Buyer: "bob"}); err != nil {
		t.Fatal(err)
	}
	for i, s := range []*store.TradeLogStore{a, b} {
		if len(s.SellLogs("alice")) != 1 || len(s.BuyLogs("bob")) != 1 {
			t.Errorf("sink %d missed an entry", i)
		}
	}
}

func TestTee_StopsAtFirstError(t *testing.T) {
	after := store.NewTradeLogStore()
	tee := Tee{brokenSink{}, after}

	if err := tee.AppendSellLog(context.Background(), domain.SellLog{ID: "s", Seller: "alice"}); err == nil {
		t.Fatal("expected error")
	}
	if len(after.SellLogs("alice")) != 0 {
		t.Fatal("sink after the failing one must not receive the entry")
	}
}
