package adviceEngine

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// inrLocale carries the lakh/crore grouping pattern #,##,##0.
var inrLocale = language.MustParse("en-IN")

// FormatINR renders an amount with Indian digit grouping (12,34,567.5), at most two fraction digits.
// Rounding and the fraction stay in decimal, only the integer digits go through the locale printer.
func FormatINR(amount decimal.Decimal) string {
	rounded := amount.Round(2)

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
		rounded = rounded.Abs()
	}

	_, fracPart, _ := strings.Cut(rounded.String(), ".")
	intPart := message.NewPrinter(inrLocale).Sprintf("%v", number.Decimal(rounded.IntPart()))

	if fracPart != "" {
		return sign + intPart + "." + fracPart
	}
	return sign + intPart
}
