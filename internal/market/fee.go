package market

import "github.com/efreitasn/knightsmarket/internal/domain"

// Fee returns floor(price × rate / 100) in the price's minor unit.
func Fee(price domain.Price, rate int) domain.Price {
	return domain.Price{
		Amount: price.Amount * int64(rate) / 100,
		Symbol: price.Symbol,
	}
}

// taxRate is zero for house listings and the configured rate otherwise.
func (m *Market) taxRate(owner string) int {
	if owner == m.cfg.HouseAccount {
		return 0
	}
	return m.cfg.TaxRate
}
