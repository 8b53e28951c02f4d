package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxAmount is the largest magnitude a well-formed Price may carry.
const MaxAmount int64 = 1<<62 - 1

// maxPrecision bounds the number of decimal places a symbol may declare.
const maxPrecision = 18

// Symbol identifies a currency by code and decimal precision, e.g. EOS with
// precision 4.
type Symbol struct {
	Code      string
	Precision uint8
}

// IsValid reports whether the code is 1-7 upper-case letters and the
// precision is within range.
func (s Symbol) IsValid() bool {
	if len(s.Code) == 0 || len(s.Code) > 7 {
		return false
	}
	for _, c := range s.Code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return s.Precision <= maxPrecision
}

func (s Symbol) String() string {
	return fmt.Sprintf("%d,%s", s.Precision, s.Code)
}

// Price is a fixed-point amount expressed in the symbol's minor unit:
// 10.0000 EOS is Amount 100000 with precision 4.
type Price struct {
	Amount int64
	Symbol Symbol
}

// IsValid reports whether the price is well-formed. It says nothing about
// whether the amount is positive or acceptable for the market.
func (p Price) IsValid() bool {
	return p.Amount >= -MaxAmount && p.Amount <= MaxAmount && p.Symbol.IsValid()
}

// String formats the price as "<amount> <CODE>" with exactly Precision
// decimal places.
func (p Price) String() string {
	amount := p.Amount
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	prec := int(p.Symbol.Precision)
	if prec == 0 {
		return sign + digits + " " + p.Symbol.Code
	}
	if len(digits) <= prec {
		digits = strings.Repeat("0", prec-len(digits)+1) + digits
	}
	whole := digits[:len(digits)-prec]
	frac := digits[len(digits)-prec:]
	return sign + whole + "." + frac + " " + p.Symbol.Code
}

// ParsePrice parses the textual asset form "10.0000 EOS". The number of
// decimal places in the text determines the symbol precision.
func ParsePrice(s string) (Price, error) {
	parts := strings.Fields(s)
	if len(parts) != 2 {
		return Price{}, fmt.Errorf("price must look like \"10.0000 EOS\", got %q", s)
	}
	num, code := parts[0], parts[1]

	neg := false
	if strings.HasPrefix(num, "-") {
		neg = true
		num = num[1:]
	}
	whole, frac, hasDot := strings.Cut(num, ".")
	if whole == "" || (hasDot && frac == "") {
		return Price{}, fmt.Errorf("malformed amount %q", parts[0])
	}
	if len(frac) > maxPrecision {
		return Price{}, fmt.Errorf("amount %q has more than %d decimal places", parts[0], maxPrecision)
	}
	for _, c := range whole + frac {
		if c < '0' || c > '9' {
			return Price{}, fmt.Errorf("malformed amount %q", parts[0])
		}
	}

	amount, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil || amount > MaxAmount {
		return Price{}, fmt.Errorf("amount %q is out of range", parts[0])
	}
	if neg {
		amount = -amount
	}

	p := Price{
		Amount: amount,
		Symbol: Symbol{Code: code, Precision: uint8(len(frac))},
	}
	if !p.Symbol.IsValid() {
		return Price{}, fmt.Errorf("invalid currency code %q", code)
	}
	return p, nil
}
