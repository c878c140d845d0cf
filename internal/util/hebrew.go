package util

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// hebrewMonths maps Gregorian months to their Hebrew names, used in alert
// messages.
var hebrewMonths = map[time.Month]string{
	time.January:   "ינואר",
	time.February:  "פברואר",
	time.March:     "מרץ",
	time.April:     "אפריל",
	time.May:       "מאי",
	time.June:      "יוני",
	time.July:      "יולי",
	time.August:    "אוגוסט",
	time.September: "ספטמבר",
	time.October:   "אוקטובר",
	time.November:  "נובמבר",
	time.December:  "דצמבר",
}

// HebrewMonth returns the Hebrew name of t's month.
func HebrewMonth(t time.Time) string {
	return hebrewMonths[t.Month()]
}

// FormatAmount renders a monetary amount as a whole number with thousands
// separators, the way alert messages display money: no decimals, commas
// every three digits, minus sign preserved.
func FormatAmount(amount decimal.Decimal) string {
	s := amount.Round(0).String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
