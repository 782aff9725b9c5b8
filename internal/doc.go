// Package internal holds helpers private to tokenauth, chiefly secure random
// token generation and token digests.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - config: environment-driven service configuration
//   - logging: context-aware structured logging over log/slog
//   - metrics: lock-free counters and latency histograms
//   - rate: login throttling (Redis fixed window, in-memory token buckets)
//
// # What this package must NOT do
//
//   - Export types that appear in the public tokenauth API.
//   - Be imported by any package outside this module.
package internal
