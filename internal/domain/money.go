package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Money struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
}

// zero-decimal currencies are charged in whole units
var minorUnitExponent = map[string]int32{
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"CLP": 0,
	"ISK": 0,
	"BHD": 3,
	"KWD": 3,
	"JOD": 3,
	"OMR": 3,
	"TND": 3,
}

// maxAmount bounds amounts to what the orders.amount column holds; its
// minor units always fit in an int64.
var maxAmount = decimal.New(1, 12)

// ParseMoney parses a decimal amount string. It rejects anything that
// is not strictly positive, finer than the currency's smallest unit, or
// too large to store.
func ParseMoney(amount, currency string) (Money, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, Validation("amount", "amount must be a decimal number")
	}
	if !v.IsPositive() {
		return Money{}, Validation("amount", "amount must be greater than zero")
	}
	cur := strings.ToUpper(strings.TrimSpace(currency))
	if len(cur) != 3 || strings.Trim(cur, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
		return Money{}, Validation("currency", "currency must be a three-letter ISO 4217 code")
	}
	exp := exponent(cur)
	if !v.Truncate(exp).Equal(v) {
		return Money{}, Validation("amount", fmt.Sprintf("amount has more than %d decimal places for %s", exp, cur))
	}
	if v.GreaterThanOrEqual(maxAmount) {
		return Money{}, Validation("amount", "amount is too large")
	}
	return Money{Value: v, Currency: cur}, nil
}

func exponent(currency string) int32 {
	if exp, ok := minorUnitExponent[currency]; ok {
		return exp
	}
	return 2
}

// MinorUnits returns the amount in the currency's smallest unit.
// ParseMoney guarantees the value is a whole number of those units.
func (m Money) MinorUnits() int64 {
	return m.Value.Shift(exponent(m.Currency)).Round(0).IntPart()
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Value.StringFixed(2), m.Currency)
}
