package market

import "github.com/efreitasn/knightsmarket/internal/domain"

// SaleSlotPolicy caps simultaneous listings per owner and asset class at
// SlotsPerUnit per owned knight.
type SaleSlotPolicy struct {
	SlotsPerUnit int
}

// Check returns domain.ErrSaleLimit unless one more listing fits next to the
// listed ones.
func (p SaleSlotPolicy) Check(listed, units int) error {
	if listed >= units*p.SlotsPerUnit {
		return domain.ErrSaleLimit
	}
	return nil
}

func countListed(holdings []domain.Holding) int {
	n := 0
	for _, h := range holdings {
		if h.Listed() {
			n++
		}
	}
	return n
}
