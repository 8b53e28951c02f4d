package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

func writeRules(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRules_Defaults(t *testing.T) {
	r, err := LoadRules("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mc := r.Market()
	if mc.Currency != (domain.Symbol{Code: "EOS", Precision: 4}) {
		t.Errorf("Currency = %v", mc.Currency)
	}
	if mc.MinPrice != 100 || mc.MaxPrice != 1_000_000_000 {
		t.Errorf("bounds = [%d, %d], want [100, 1000000000]", mc.MinPrice, mc.MaxPrice)
	}
	if mc.TaxRate != 5 || mc.SlotsPerUnit != 5 {
		t.Errorf("TaxRate = %d, SlotsPerUnit = %d", mc.TaxRate, mc.SlotsPerUnit)
	}
	if mc.PaymentMemo == "" || mc.HouseAccount == "" || mc.ControllerAccount == "" {
		t.Errorf("missing defaults: %+v", mc)
	}
	if !r.Catalog().Exists(12345) {
		t.Error("empty catalog should accept every code")
	}
}

func TestLoadRules_MergesOverDefaults(t *testing.T) {
	path := writeRules(t, `
tax_rate: 7
house_account: eosknightsio
materials: [1, 2, 3]
`)
	r, err := LoadRules(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TaxRate != 7 || r.HouseAccount != "eosknightsio" {
		t.Errorf("overrides not applied: %+v", r)
	}
	if r.SalesPerKnight != 5 || r.MinPrice != "0.0100 EOS" {
		t.Errorf("defaults lost: %+v", r)
	}
	c := r.Catalog()
	if !c.Exists(2) || c.Exists(4) {
		t.Error("catalog should contain exactly the configured materials")
	}
}

func TestLoadRules_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "fee: 3\n", "invalid rules"},
		{"tax above 100", "tax_rate: 101\n", "invalid rules"},
		{"zero sales per knight", "sales_per_knight: 0\n", "invalid rules"},
		{"bad price text", "min_price: cheap\n", "invalid rules"},
		{"material out of range", "materials: [70000]\n", "invalid rules"},
		{"min above max", "min_price: \"5.0000 EOS\"\nmax_price: \"1.0000 EOS\"\n", "price bounds"},
		{"mixed symbols", "min_price: \"1.0000 EOS\"\nmax_price: \"10.0000 WAX\"\n", "different symbols"},
		{"mixed precision", "min_price: \"1.00 EOS\"\n", "different symbols"},
		{"max too large", "min_price: \"1 EOS\"\nmax_price: \"100000000000000000 EOS\"\n", "too large"},
		{"malformed yaml", "tax_rate: [\n", "parse rules"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadRules(writeRules(t, tt.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	if _, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
