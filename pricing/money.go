// Package pricing holds the derived-field rules for units, cost sheets and
// payment schedules. Every function here works on values it is handed; none of
// them read settings, records or the clock on their own.
package pricing

import "github.com/shopspring/decimal"

// MoneyPlaces is the currency precision every derived amount is rounded to.
const MoneyPlaces = 2

var (
	decimalZero       = decimal.Zero
	decimalOneHundred = decimal.NewFromInt(100)
)

func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// percentOf returns amount * rate / 100, unrounded.
func percentOf(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(decimalOneHundred)
}

func firstNonZero(values ...decimal.Decimal) decimal.Decimal {
	for _, v := range values {
		if !v.IsZero() {
			return v
		}
	}
	return decimalZero
}

// nullOr returns the value of n, or def when n is unset.
func nullOr(n decimal.NullDecimal, def decimal.Decimal) decimal.Decimal {
	if n.Valid {
		return n.Decimal
	}
	return def
}
