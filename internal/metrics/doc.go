// Package metrics provides lock-free counters and a latency histogram for
// engine observability.
//
// # Design
//
// Counters live in cache-line-padded uint64 slots incremented with
// [sync/atomic.AddUint64]. The histogram uses 8 fixed buckets
// (<=5ms ... +Inf) plus a running sum. Writes never allocate.
//
// # Architecture boundaries
//
// This package owns metric storage and snapshots. Export (Prometheus text,
// OpenTelemetry) lives in metrics/export/ and reads Snapshot values.
//
// # What this package must NOT do
//
//   - Perform I/O or network calls.
//   - Import the root package or any sibling package.
//   - Expose global metric registries.
package metrics
