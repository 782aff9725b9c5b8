// Package audit relays security-relevant events (registrations, logins,
// refresh rotations, logouts, reset requests) to pluggable sinks without
// blocking the request path.
//
// # Components
//
//   - [Sink] receives events. Shipped sinks: no-op, channel, JSON lines, slog.
//   - [Dispatcher] is a buffered async relay that either drops or blocks when full.
//   - [Event] is the structured record.
//
// # What this package must NOT do
//
//   - Decide which events are emitted. The engine owns that.
//   - Carry secrets. Events never contain passwords or token strings.
//   - Import the root package or any sibling internal package.
package audit
