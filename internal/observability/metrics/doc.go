// Package metrics provides the Prometheus metrics shared across the relay:
// HTTP request metrics recorded by the HTTP middleware and process-level
// gauges set at startup. Generator, normalizer, and rate limiter metrics
// live next to the code that records them.
//
// All metrics are registered with the default registry and exposed on
// /metrics.
package metrics
