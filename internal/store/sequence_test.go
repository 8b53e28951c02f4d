package store

import (
	"math"
	"testing"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

func TestSequenceStore_StartsAtOne(t *testing.T) {
	s := NewSequenceStore()
	for want := uint64(1); want <= 3; want++ {
		got, err := s.Next(domain.ListingTypeItem)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Fatalf("Next() = %d, want %d", got, want)
		}
	}
	if s.Last(domain.ListingTypeItem) != 3 {
		t.Fatalf("Last() = %d, want 3", s.Last(domain.ListingTypeItem))
	}
}

func TestSequenceStore_IndependentTypes(t *testing.T) {
	s := NewSequenceStore()
	_, _ = s.Next(domain.ListingTypeItem)
	_, _ = s.Next(domain.ListingTypeItem)

	got, _ := s.Next(domain.ListingTypeMaterial)
	if got != 1 {
		t.Fatalf("material counter should start at 1, got %d", got)
	}
}

func TestSequenceStore_Exhausted(t *testing.T) {
	s := NewSequenceStore()
	s.Load(map[domain.ListingType]uint64{domain.ListingTypeMaterial: math.MaxUint64})

	_, err := s.Next(domain.ListingTypeMaterial)
	if err != domain.ErrSequenceExhausted {
		t.Fatalf("expected ErrSequenceExhausted, got %v", err)
	}
	if s.Last(domain.ListingTypeMaterial) != math.MaxUint64 {
		t.Fatal("exhausted counter must not wrap")
	}
}

func TestSequenceStore_Restore(t *testing.T) {
	s := NewSequenceStore()
	id, _ := s.Next(domain.ListingTypeItem)
	s.Restore(domain.ListingTypeItem, id-1)

	again, _ := s.Next(domain.ListingTypeItem)
	if again != id {
		t.Fatalf("expected restored counter to reissue %d, got %d", id, again)
	}
}
