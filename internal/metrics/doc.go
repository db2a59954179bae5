// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Upstream API requests by endpoint and status, rate-limit waits
//   - Tokens inserted, volume rows written, fetch failures
//   - Volume spikes flagged by the refresh job
//   - Scheduled job runs and durations
package metrics
