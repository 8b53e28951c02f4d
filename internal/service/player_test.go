package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/efreitasn/knightsmarket/internal/domain"
	"github.com/efreitasn/knightsmarket/internal/inventory"
	"github.com/efreitasn/knightsmarket/internal/store"
)

func newTestPlayerService() (*PlayerService, *inventory.Store) {
	inv := inventory.NewStore()
	return NewPlayerService(inv, NewMemoryHistory(store.NewTradeLogStore()), "controller", nil), inv
}

func TestPlayerRegister_SeedsInventory(t *testing.T) {
	svc, _ := newTestPlayerService()

	got, err := svc.Register(context.Background(), RegisterPlayerRequest{
		Caller:           "controller",
		Account:          "alice",
		Knights:          2,
		ItemCapacity:     5,
		MaterialCapacity: 5,
		Items:            []ItemInput{{Code: 101, DNA: 7, Level: 1}},
		Materials:        []uint16{3, 3},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Player.Account != "alice" || got.Player.Knights != 2 {
		t.Errorf("unexpected player: %+v", got.Player)
	}
	if len(got.Items) != 1 || got.Items[0].Asset.DNA != 7 {
		t.Errorf("unexpected items: %+v", got.Items)
	}
	if len(got.Materials) != 2 {
		t.Errorf("got %d materials, want 2", len(got.Materials))
	}
}

func TestPlayerRegister_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterPlayerRequest
		wantErr error
		wantMsg string
	}{
		{"no caller", RegisterPlayerRequest{Account: "alice"}, domain.ErrMissingCaller, ""},
		{"not controller", RegisterPlayerRequest{Caller: "alice", Account: "bob"}, domain.ErrNotController, ""},
		{"bad account", RegisterPlayerRequest{Caller: "controller", Account: "has space"}, nil, "account must match"},
		{"negative knights", RegisterPlayerRequest{Caller: "controller", Account: "alice", Knights: -1}, nil, "non-negative"},
		{"items over capacity", RegisterPlayerRequest{Caller: "controller", Account: "alice", ItemCapacity: 1, Items: []ItemInput{{Code: 1}, {Code: 2}}}, nil, "item capacity"},
		{"zero material code", RegisterPlayerRequest{Caller: "controller", Account: "alice", MaterialCapacity: 1, Materials: []uint16{0}}, nil, "materials[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestPlayerService()
			_, err := svc.Register(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got %v, want %v", err, tt.wantErr)
				}
				return
			}
			var ve *domain.ValidationError
			if !errors.As(err, &ve) || !strings.Contains(ve.Message, tt.wantMsg) {
				t.Fatalf("got %v, want validation error mentioning %q", err, tt.wantMsg)
			}
		})
	}
}

func TestPlayerRegister_Duplicate(t *testing.T) {
	svc, _ := newTestPlayerService()
	ctx := context.Background()
	req := RegisterPlayerRequest{Caller: "controller", Account: "alice"}

	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Register(ctx, req); !errors.Is(err, domain.ErrPlayerExists) {
		t.Fatalf("got %v, want ErrPlayerExists", err)
	}
}

func TestPlayerEquip(t *testing.T) {
	svc, inv := newTestPlayerService()
	ctx := context.Background()
	got, err := svc.Register(ctx, RegisterPlayerRequest{
		Caller:       "controller",
		Account:      "alice",
		Knights:      1,
		ItemCapacity: 2,
		Items:        []ItemInput{{Code: 101}, {Code: 102}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sword, shield := got.Items[0].ID, got.Items[1].ID

	if err := svc.Equip(ctx, "alice", sword, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, _ := svc.Inventory(ctx, "alice")
	if !after.Items[0].Equipped() {
		t.Error("sword should be equipped")
	}

	var ve *domain.ValidationError
	if err := svc.Equip(ctx, "alice", sword, 2); !errors.As(err, &ve) {
		t.Errorf("knight out of range: got %v", err)
	}
	if err := svc.Equip(ctx, "alice", 999, 1); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Errorf("unknown item: got %v", err)
	}

	if err := inv.MarkListed(ctx, "alice", domain.ListingTypeItem, shield, 1); err != nil {
		t.Fatalf("mark listed: %v", err)
	}
	if err := svc.Equip(ctx, "alice", shield, 1); !errors.Is(err, domain.ErrAlreadyOnSale) {
		t.Errorf("listed item: got %v, want ErrAlreadyOnSale", err)
	}

	if err := svc.Equip(ctx, "alice", sword, 0); err != nil {
		t.Fatalf("unequip: %v", err)
	}
	after, _ = svc.Inventory(ctx, "alice")
	if after.Items[0].Equipped() {
		t.Error("sword should be unequipped")
	}
}

func TestPlayerHistory_UnknownAccount(t *testing.T) {
	svc, _ := newTestPlayerService()
	ctx := context.Background()

	if _, err := svc.Sells(ctx, "ghost"); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Errorf("sells: got %v", err)
	}
	if _, err := svc.Buys(ctx, "ghost"); !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Errorf("buys: got %v", err)
	}
	if _, err := svc.Inventory(ctx, ""); !errors.Is(err, domain.ErrMissingCaller) {
		t.Errorf("inventory: got %v", err)
	}
}
