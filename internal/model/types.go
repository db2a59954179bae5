package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical text form of a volume date.
const DateLayout = "2006-01-02"

// Token is a coin known to the upstream catalog.
type Token struct {
	ID   string // Primary key (CoinGecko id)
	Name string // Display name
}

// TokenVolume is one token's traded volume for a single day.
type TokenVolume struct {
	TokenID     string              // Foreign key to Token
	TotalVolume decimal.NullDecimal // NULL when the API had no volume data
	Date        time.Time           // UTC midnight of the day
}

// Day truncates t to midnight UTC of its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysAgo returns the day n days before day.
func DaysAgo(day time.Time, n int) time.Time {
	return Day(day).AddDate(0, 0, -n)
}

// FormatDate renders a day in DateLayout.
func FormatDate(t time.Time) string {
	return Day(t).Format(DateLayout)
}

// ParseDate parses a DateLayout string into a UTC day.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}
