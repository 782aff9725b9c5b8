// Package otel publishes engine metrics as OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter and,
// per histogram, one Int64ObservableGauge per cumulative bucket plus count
// and a Float64ObservableGauge for the sum in seconds. A single callback
// reads [tokenauth.Engine.MetricsSnapshot] on each collection. The caller
// owns the MeterProvider.
package otel
