// Package poller implements the token volume synchronizer.
//
// The synchronizer:
//   - Syncs the token catalog into the tokens table (insert-only)
//   - Snapshots every stored token's daily volume, one request per token
//   - Refreshes today's volumes hourly and flags day-over-day spikes
//   - Purges volume rows older than the retention window
//
// All work runs sequentially on the calling goroutine. Per-token failures are
// logged and skipped; they never abort a pass.
package poller
