package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/efreitasn/knightsmarket/internal/domain"
	"github.com/efreitasn/knightsmarket/internal/market"
)

const rulesSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "min_price":          {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)? [A-Z]{1,7}$"},
    "max_price":          {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)? [A-Z]{1,7}$"},
    "tax_rate":           {"type": "integer", "minimum": 0, "maximum": 100},
    "sales_per_knight":   {"type": "integer", "minimum": 1},
    "house_account":      {"type": "string", "minLength": 1, "maxLength": 64},
    "controller_account": {"type": "string", "minLength": 1, "maxLength": 64},
    "payment_memo":       {"type": "string", "maxLength": 256},
    "materials": {
      "type": "array",
      "items": {"type": "integer", "minimum": 1, "maximum": 65535},
      "uniqueItems": true
    }
  }
}`

var compiledRulesSchema = jsonschema.MustCompileString("rules.schema.json", rulesSchema)

// Rules are the market rules. The accepted currency is the symbol of
// MinPrice and MaxPrice.
type Rules struct {
	MinPrice          string   `yaml:"min_price"`
	MaxPrice          string   `yaml:"max_price"`
	TaxRate           int      `yaml:"tax_rate"`
	SalesPerKnight    int      `yaml:"sales_per_knight"`
	HouseAccount      string   `yaml:"house_account"`
	ControllerAccount string   `yaml:"controller_account"`
	PaymentMemo       string   `yaml:"payment_memo"`
	Materials         []uint16 `yaml:"materials"`
}

// DefaultRules returns the rules used when no rules file is configured.
func DefaultRules() Rules {
	return Rules{
		MinPrice:          "0.0100 EOS",
		MaxPrice:          "100000.0000 EOS",
		TaxRate:           5,
		SalesPerKnight:    5,
		HouseAccount:      "knightsmarket",
		ControllerAccount: "knightsadmin",
		PaymentMemo:       "knights market sale",
	}
}

// LoadRules reads a YAML rules file and merges it over DefaultRules. An
// empty path returns the defaults.
func LoadRules(path string) (Rules, error) {
	r := DefaultRules()
	if path == "" {
		return r, r.Validate()
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}

	// The schema validates JSON values, so the document goes through a
	// JSON round trip first.
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return Rules{}, fmt.Errorf("parse rules: %w", err)
	}
	if doc != nil {
		j, err := json.Marshal(doc)
		if err != nil {
			return Rules{}, fmt.Errorf("parse rules: %w", err)
		}
		var v any
		dec := json.NewDecoder(bytes.NewReader(j))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return Rules{}, fmt.Errorf("parse rules: %w", err)
		}
		if err := compiledRulesSchema.Validate(v); err != nil {
			return Rules{}, fmt.Errorf("invalid rules: %w", err)
		}
	}

	if err := yaml.Unmarshal(b, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules: %w", err)
	}
	return r, r.Validate()
}

// Validate checks the cross-field constraints the schema cannot express.
func (r Rules) Validate() error {
	lo, err := domain.ParsePrice(r.MinPrice)
	if err != nil {
		return fmt.Errorf("invalid min_price: %w", err)
	}
	hi, err := domain.ParsePrice(r.MaxPrice)
	if err != nil {
		return fmt.Errorf("invalid max_price: %w", err)
	}
	if lo.Symbol != hi.Symbol {
		return fmt.Errorf("min_price %s and max_price %s use different symbols", lo.Symbol, hi.Symbol)
	}
	if lo.Amount <= 0 || lo.Amount > hi.Amount {
		return fmt.Errorf("price bounds must satisfy 0 < min_price <= max_price")
	}
	// Fee computes price*rate in 64 bits.
	if hi.Amount > math.MaxInt64/100 {
		return fmt.Errorf("max_price %s is too large", r.MaxPrice)
	}
	if r.TaxRate < 0 || r.TaxRate > 100 {
		return fmt.Errorf("tax_rate must be between 0 and 100")
	}
	if r.SalesPerKnight < 1 {
		return fmt.Errorf("sales_per_knight must be at least 1")
	}
	if r.HouseAccount == "" || r.ControllerAccount == "" {
		return fmt.Errorf("house_account and controller_account are required")
	}
	return nil
}

// Market converts the rules into the market configuration. Rules must be
// valid.
func (r Rules) Market() market.Config {
	lo, _ := domain.ParsePrice(r.MinPrice)
	hi, _ := domain.ParsePrice(r.MaxPrice)
	return market.Config{
		Currency:          lo.Symbol,
		MinPrice:          lo.Amount,
		MaxPrice:          hi.Amount,
		TaxRate:           r.TaxRate,
		SlotsPerUnit:      r.SalesPerKnight,
		HouseAccount:      r.HouseAccount,
		ControllerAccount: r.ControllerAccount,
		PaymentMemo:       r.PaymentMemo,
	}
}

// Catalog returns the material catalog. No materials means every code is
// accepted.
func (r Rules) Catalog() *domain.MaterialCatalog {
	return domain.NewMaterialCatalog(r.Materials...)
}
