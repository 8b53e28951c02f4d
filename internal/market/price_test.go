package market

import (
	"errors"
	"testing"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

func TestPriceValidator_Validate(t *testing.T) {
	v := PriceValidator{Currency: eos, Min: 100, Max: 1_000_000}

	tests := []struct {
		name  string
		price domain.Price
		ok    bool
	}{
		{"at minimum", eosPrice(100), true},
		{"at maximum", eosPrice(1_000_000), true},
		{"in range", eosPrice(5000), true},
		{"below minimum", eosPrice(99), false},
		{"above maximum", eosPrice(1_000_001), false},
		{"zero", eosPrice(0), false},
		{"negative", eosPrice(-100), false},
		{"other currency", domain.Price{Amount: 5000, Symbol: domain.Symbol{Code: "TKN", Precision: 4}}, false},
		{"other precision", domain.Price{Amount: 5000, Symbol: domain.Symbol{Code: "EOS", Precision: 2}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.price)
			if tt.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tt.ok {
				var ve *domain.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
			}
		})
	}
}

func TestPriceValidator_MalformedEncoding(t *testing.T) {
	bad := domain.Symbol{Code: "eos", Precision: 4}
	v := PriceValidator{Currency: bad, Min: 1, Max: 100}
	err := v.Validate(domain.Price{Amount: 10, Symbol: bad})
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for malformed symbol, got %v", err)
	}
}
