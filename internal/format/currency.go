// Package format renders monetary amounts and report months for display.
package format

import (
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencyFormatter renders whole-unit currency amounts using locale digit grouping.
type CurrencyFormatter struct {
	printer *message.Printer
	unit    currency.Unit
	symbol  string
}

var symbols = map[currency.Unit]string{
	currency.USD: "$",
	currency.EUR: "€",
	currency.GBP: "£",
	currency.IDR: "Rp",
	currency.JPY: "¥",
}

// maxWhole is the largest float64 below 2^63; larger amounts are clamped to it.
const maxWhole = float64(1<<63 - 1<<10)

// NewCurrencyFormatter builds a formatter for the given locale and currency.
func NewCurrencyFormatter(tag language.Tag, unit currency.Unit) *CurrencyFormatter {
	symbol, ok := symbols[unit]
	if !ok {
		symbol = unit.String() + " "
	}
	return &CurrencyFormatter{
		printer: message.NewPrinter(tag),
		unit:    unit,
		symbol:  symbol,
	}
}

// Format renders amount with zero fraction digits, rounding half away from zero.
func (f *CurrencyFormatter) Format(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return f.symbol + "0"
	}
	whole := math.Round(math.Abs(amount))
	if whole > maxWhole {
		whole = maxWhole
	}
	rounded := int64(whole)
	var b strings.Builder
	if amount < 0 && rounded != 0 {
		b.WriteString("-")
	}
	b.WriteString(f.symbol)
	b.WriteString(f.printer.Sprintf("%d", rounded))
	return b.String()
}

// Unit reports the currency rendered by the formatter.
func (f *CurrencyFormatter) Unit() currency.Unit {
	return f.unit
}

var usd = NewCurrencyFormatter(language.AmericanEnglish, currency.USD)

// Currency renders amount as US dollars without cents, e.g. "$1,235".
func Currency(amount float64) string {
	return usd.Format(amount)
}
