package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

func newTestStore(t *testing.T, accounts ...string) *Store {
	t.Helper()
	s := NewStore()
	for _, name := range accounts {
		if err := s.Register(domain.Player{Account: name, Knights: 1, ItemCapacity: 10, MaterialCapacity: 10}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	return s
}

func TestRegister_Duplicate(t *testing.T) {
	s := newTestStore(t, "alice")
	err := s.Register(domain.Player{Account: "alice"})
	if !errors.Is(err, domain.ErrPlayerExists) {
		t.Fatalf("expected ErrPlayerExists, got %v", err)
	}
}

func TestPlayer_NotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Player(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrPlayerNotFound) {
		t.Fatalf("expected ErrPlayerNotFound, got %v", err)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected NotFound kind, got %v", err)
	}
}

func TestGrant_AssignsUniqueIDs(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "alice", "bob")

	h1, err := s.Grant(ctx, "alice", domain.ListingTypeItem, domain.Asset{Code: 1})
	if err != nil {
		t.Fatal(err)
	}
	h2, err := s.Grant(ctx, "bob", domain.ListingTypeMaterial, domain.Asset{Code: 2})
	if err != nil {
		t.Fatal(err)
	}
	if h1.ID == h2.ID {
		t.Fatalf("expected distinct ids, both are %d", h1.ID)
	}

	items, _ := s.Holdings(ctx, "alice", domain.ListingTypeItem)
	if len(items) != 1 || items[0] != h1 {
		t.Fatalf("unexpected alice items: %+v", items)
	}
	mats, _ := s.Holdings(ctx, "alice", domain.ListingTypeMaterial)
	if len(mats) != 0 {
		t.Fatalf("expected no alice materials, got %+v", mats)
	}
}

func TestMarkAndClearListed(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "alice")
	h, _ := s.Grant(ctx, "alice", domain.ListingTypeItem, domain.Asset{Code: 7})

	if err := s.MarkListed(ctx, "alice", domain.ListingTypeItem, h.ID, 42); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkListed(ctx, "alice", domain.ListingTypeItem, h.ID, 43); !errors.Is(err, domain.ErrAlreadyOnSale) {
		t.Fatalf("expected ErrAlreadyOnSale, got %v", err)
	}

	items, _ := s.Holdings(ctx, "alice", domain.ListingTypeItem)
	if items[0].SaleID != 42 {
		t.Fatalf("expected sale id 42, got %d", items[0].SaleID)
	}

	if err := s.ClearListed(ctx, "alice", domain.ListingTypeItem, 42); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearListed(ctx, "alice", domain.ListingTypeItem, 42); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound on second clear, got %v", err)
	}
	items, _ = s.Holdings(ctx, "alice", domain.ListingTypeItem)
	if items[0].SaleID != 0 {
		t.Fatalf("expected cleared sale id, got %d", items[0].SaleID)
	}
}

func TestRemoveSoldAndRestore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "alice")
	h, _ := s.Grant(ctx, "alice", domain.ListingTypeMaterial, domain.Asset{Code: 3})
	_ = s.MarkListed(ctx, "alice", domain.ListingTypeMaterial, h.ID, 9)

	removed, err := s.RemoveSold(ctx, "alice", domain.ListingTypeMaterial, 9)
	if err != nil {
		t.Fatal(err)
	}
	if removed.ID != h.ID || removed.SaleID != 9 {
		t.Fatalf("unexpected removed holding: %+v", removed)
	}
	mats, _ := s.Holdings(ctx, "alice", domain.ListingTypeMaterial)
	if len(mats) != 0 {
		t.Fatalf("expected holding removed, got %+v", mats)
	}

	if err := s.Restore(ctx, "alice", domain.ListingTypeMaterial, removed); err != nil {
		t.Fatal(err)
	}
	mats, _ = s.Holdings(ctx, "alice", domain.ListingTypeMaterial)
	if len(mats) != 1 || mats[0] != removed {
		t.Fatalf("expected restored holding, got %+v", mats)
	}
	if err := s.Restore(ctx, "alice", domain.ListingTypeMaterial, removed); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict restoring twice, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "bob")
	h, _ := s.Grant(ctx, "bob", domain.ListingTypeItem, domain.Asset{Code: 1})

	if err := s.Revoke(ctx, "bob", domain.ListingTypeItem, h.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.Revoke(ctx, "bob", domain.ListingTypeItem, h.ID); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestEquip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "alice")
	h, _ := s.Grant(ctx, "alice", domain.ListingTypeItem, domain.Asset{Code: 1})

	if err := s.Equip("alice", h.ID, 5); err != nil {
		t.Fatal(err)
	}
	items, _ := s.Holdings(ctx, "alice", domain.ListingTypeItem)
	if !items[0].Equipped() {
		t.Fatal("expected item equipped")
	}
	if err := s.Equip("alice", 999, 5); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Fatalf("expected ErrAssetNotFound, got %v", err)
	}
}

func TestPlayers_Sorted(t *testing.T) {
	s := newTestStore(t, "carol", "alice", "bob")
	players := s.Players()
	if len(players) != 3 {
		t.Fatalf("expected 3 players, got %d", len(players))
	}
	for i, want := range []string{"alice", "bob", "carol"} {
		if players[i].Account != want {
			t.Fatalf("players[%d] = %s, want %s", i, players[i].Account, want)
		}
	}
}
