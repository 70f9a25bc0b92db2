// Package types provides common types used across the wallet ledger.
package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Money is a credit amount in integer currency subunits (cents).
// All arithmetic is integer-only — no floating point.
//
// Examples:
//   - USD(12500) = $125.00 (12500 cents)
//   - EUR(9900)  = €99.00  (9900 cents)
type Money struct {
	Amount   int64  `json:"amount"`   // Smallest unit (cents, pence, etc)
	Currency string `json:"currency"` // ISO 4217 lowercase: "usd", "eur", "gbp"
}

// USD creates a Money value in US Dollars (cents).
func USD(cents int64) Money { return Money{Amount: cents, Currency: "usd"} }

// EUR creates a Money value in Euros (cents).
func EUR(cents int64) Money { return Money{Amount: cents, Currency: "eur"} }

// GBP creates a Money value in British Pounds (pence).
func GBP(pence int64) Money { return Money{Amount: pence, Currency: "gbp"} }

// Zero returns a zero Money value in the specified currency.
func Zero(currency string) Money { return Money{Amount: 0, Currency: strings.ToLower(currency)} }

// Add adds two Money values. Panics if currencies don't match.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}
}

// Subtract subtracts another Money value. Panics if currencies don't match.
func (m Money) Subtract(other Money) Money {
	m.assertSameCurrency(other)
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}
}

// Negate returns the negative of the Money value.
func (m Money) Negate() Money {
	return Money{Amount: -m.Amount, Currency: m.Currency}
}

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if both Money values are equal (same amount and currency).
func (m Money) Equal(other Money) bool {
	return m.Amount == other.Amount && m.Currency == other.Currency
}

// LessThan returns true if this Money is less than other. Panics if currencies don't match.
func (m Money) LessThan(other Money) bool {
	m.assertSameCurrency(other)
	return m.Amount < other.Amount
}

// FormatMajor returns the major unit string without currency symbol,
// always with two decimal places: "125.00" for USD(12500).
func (m Money) FormatMajor() string {
	isNegative := m.Amount < 0
	absAmount := m.Amount
	if isNegative {
		absAmount = -absAmount
	}

	result := fmt.Sprintf("%d.%02d", absAmount/100, absAmount%100)
	if isNegative {
		return "-" + result
	}
	return result
}

// String returns a human-readable string with currency symbol.
// Examples: "$125.00", "€99.00", "£49.50"
func (m Money) String() string {
	return currencySymbol(m.Currency) + m.FormatMajor()
}

// ParseMoney parses a display string back into Money, recovering the exact
// subunit amount: ParseMoney("$125.00") == USD(12500). The currency is
// inferred from a leading symbol; a bare number parses as USD.
func ParseMoney(s string) (Money, error) {
	orig := s
	s = strings.TrimSpace(s)

	currency := "usd"
	switch {
	case strings.HasPrefix(s, "$"):
		s = strings.TrimPrefix(s, "$")
	case strings.HasPrefix(s, "€"):
		currency = "eur"
		s = strings.TrimPrefix(s, "€")
	case strings.HasPrefix(s, "£"):
		currency = "gbp"
		s = strings.TrimPrefix(s, "£")
	}

	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	major, minor, found := strings.Cut(s, ".")
	if !found {
		minor = "00"
	}
	if len(minor) != 2 {
		return Money{}, fmt.Errorf("money: parse %q: expected two decimal places", orig)
	}

	// ParseUint keeps signs out of the parts: "1.-5" is not 95 cents.
	maj, err := strconv.ParseUint(major, 10, 63)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", orig, err)
	}
	cents, err := strconv.ParseUint(minor, 10, 63)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", orig, err)
	}

	amount := int64(maj)*100 + int64(cents)
	if negative {
		amount = -amount
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// MarshalJSON implements json.Marshaler.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Display  string `json:"display"`
	}{
		Amount:   m.Amount,
		Currency: m.Currency,
		Display:  m.String(),
	})
}

// assertSameCurrency panics if currencies don't match.
func (m Money) assertSameCurrency(other Money) {
	if m.Currency != other.Currency {
		panic(fmt.Sprintf("money: currency mismatch: %s != %s", m.Currency, other.Currency))
	}
}

// currencySymbol returns the symbol for a currency code.
func currencySymbol(currency string) string {
	switch strings.ToLower(currency) {
	case "usd":
		return "$"
	case "eur":
		return "€"
	case "gbp":
		return "£"
	default:
		return strings.ToUpper(currency) + " "
	}
}
