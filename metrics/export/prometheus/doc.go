// Package prometheus renders engine metrics in the Prometheus text
// exposition format.
//
// [NewExporter] wraps a [tokenauth.Engine] and exposes an [http.Handler]
// for mounting at /metrics. Counter names are tokenauth_*_total; the single
// histogram is tokenauth_verify_latency_seconds. Nothing is registered in a
// global registry.
package prometheus
