package importer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount reads a money cell in the given style.
// "1.234,56" with decimalComma and "1,234.56" with decimalPoint are both 1234.56.
func parseAmount(s string, style decimalStyle) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimSuffix(clean, "EUR")
	clean = strings.TrimSuffix(clean, "€")
	clean = strings.TrimSpace(clean)

	switch style {
	case decimalComma:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	case decimalPoint:
		clean = strings.ReplaceAll(clean, ",", "")
	}

	return decimal.NewFromString(clean)
}
