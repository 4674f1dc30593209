package geo

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NotApplicable is displayed for lengths of types that have none.
const NotApplicable = "N/A"

var printer = message.NewPrinter(language.English)

// FormatLength renders a stats row length with thousands separators,
// or NotApplicable for types that do not carry a length.
func FormatLength(s TypeStats) string {
	if !s.LengthApplicable() {
		return NotApplicable
	}
	return FormatInt(s.TotalLength)
}

// FormatInt renders an integer with English digit grouping.
func FormatInt(n int64) string {
	return printer.Sprintf("%d", n)
}
