package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Stripe treats these currencies as having no minor unit.
var zeroDecimalCurrencies = map[string]struct{}{
	"bif": {}, "clp": {}, "djf": {}, "gnf": {}, "jpy": {}, "kmf": {}, "krw": {}, "mga": {},
	"pyg": {}, "rwf": {}, "ugx": {}, "vnd": {}, "vuv": {}, "xaf": {}, "xof": {}, "xpf": {},
}

// NormalizeCurrency lowercases and trims an ISO currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToLower(strings.TrimSpace(currency))
}

// CurrencyExponent returns the number of minor-unit digits for currency.
func CurrencyExponent(currency string) int32 {
	if _, ok := zeroDecimalCurrencies[NormalizeCurrency(currency)]; ok {
		return 0
	}
	return 2
}

// FromMinorUnits converts a provider amount (e.g. cents) into a decimal.
func FromMinorUnits(amount int64, currency string) decimal.Decimal {
	exp := CurrencyExponent(currency)
	return decimal.New(amount, -exp).Round(exp)
}

// ToMinorUnits converts a decimal amount into provider minor units, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(CurrencyExponent(currency)).Round(0).IntPart()
}
