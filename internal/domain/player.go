package domain

// Player is the account record the market reads from the player directory.
type Player struct {
	Account          string
	Knights          int
	ItemCapacity     int
	MaterialCapacity int
}

// Capacity returns the inventory size limit for the given asset class.
func (p Player) Capacity(t ListingType) int {
	if t == ListingTypeItem {
		return p.ItemCapacity
	}
	return p.MaterialCapacity
}

// Holding is one owned item or material as reported by the asset owner.
type Holding struct {
	ID       uint64
	Asset    Asset
	KnightID uint64 // non-zero while equipped
	SaleID   uint64 // non-zero while listed
}

// Equipped reports whether the holding is in use by a knight.
func (h Holding) Equipped() bool {
	return h.KnightID != 0
}

// Listed reports whether the holding is linked to an active listing.
func (h Holding) Listed() bool {
	return h.SaleID != 0
}
