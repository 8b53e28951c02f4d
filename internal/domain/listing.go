package domain

import (
	"fmt"
	"time"
)

// ListingType is both the listing table a listing lives in and the asset
// class it sells. Each type has its own sequence counter.
type ListingType uint8

const (
	ListingTypeItem     ListingType = 1
	ListingTypeMaterial ListingType = 2
)

// ListingTypes lists every listing type in counter order.
var ListingTypes = []ListingType{ListingTypeItem, ListingTypeMaterial}

func (t ListingType) String() string {
	switch t {
	case ListingTypeItem:
		return "item"
	case ListingTypeMaterial:
		return "material"
	}
	return fmt.Sprintf("listing_type(%d)", uint8(t))
}

// Valid reports whether t is a known listing type.
func (t ListingType) Valid() bool {
	return t == ListingTypeItem || t == ListingTypeMaterial
}

// Asset is the attribute snapshot of one item or material. Materials are
// fungible and only carry Code.
type Asset struct {
	Code  uint16
	DNA   uint64
	Level uint32
	Exp   uint32
}

// Listing is an active fixed-price sale offer. Listings are immutable and
// handled by value; Asset is a copy taken when the listing was posted.
type Listing struct {
	ID        uint64
	Type      ListingType
	Owner     string
	Price     Price
	Asset     Asset
	CreatedAt time.Time
}
