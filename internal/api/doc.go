// Package api provides the CoinGecko REST API client.
//
// REST endpoints:
//   - Public: https://api.coingecko.com/api/v3
//   - Pro:    https://pro-api.coingecko.com/api/v3
//
// Endpoints used: /coins/list, /coins/markets, /coins/{id}.
//
// The public API answers 429 with an optional Retry-After header when the
// caller exceeds its quota. Only 429 is retried, with a bounded number of
// attempts; every other non-success status fails the call immediately.
package api
