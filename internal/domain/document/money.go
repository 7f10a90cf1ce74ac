package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// currencyMarkers are stripped before parsing a monetary value. Codes are
// matched case-insensitively, symbols literally.
var currencySymbols = []string{"$", "€", "£", "¥", "₹"}

var currencyCodes = []string{"USD", "EUR", "GBP", "JPY", "CNY", "CAD", "AUD", "CHF"}

// ParseAmount parses a monetary value with exact decimal precision.
// Currency symbols and codes, thousands separators, and surrounding
// whitespace are stripped first. A value in parentheses is negative.
func ParseAmount(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		negative = true
		v = v[1 : len(v)-1]
	}

	for _, sym := range currencySymbols {
		v = strings.ReplaceAll(v, sym, "")
	}
	upper := strings.ToUpper(v)
	for _, code := range currencyCodes {
		if strings.HasPrefix(upper, code) {
			v = v[len(code):]
			break
		}
		if strings.HasSuffix(upper, code) {
			v = v[:len(v)-len(code)]
			break
		}
	}

	v = strings.ReplaceAll(v, ",", "")
	v = strings.ReplaceAll(v, " ", "")
	if v == "" {
		return decimal.Zero, fmt.Errorf("no numeric content in %q", s)
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseQuantity parses a line-item quantity as an exact decimal.
func ParseQuantity(s string) (decimal.Decimal, error) {
	v := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if v == "" {
		return decimal.Zero, fmt.Errorf("empty quantity")
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return d, nil
}

// dateLayouts are the accepted invoice date formats, ISO first.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02.01.2006",
	"01/02/2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate parses an invoice date against the accepted layouts.
func ParseDate(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
}
