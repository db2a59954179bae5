// Package model defines the domain types persisted by the volume tracker.
//
// Conventions:
//   - Token IDs are CoinGecko coin ids (e.g. "bitcoin")
//   - Volumes are decimal quote-currency amounts; an invalid NullDecimal means
//     the API reported no volume data for that day
//   - Dates are calendar days in UTC
package model
