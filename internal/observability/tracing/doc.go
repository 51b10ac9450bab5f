// Package tracing wires OpenTelemetry into the relay.
//
// Init installs the global provider and propagator at startup. Middleware
// opens a server span for every HTTP request, and the generator adapters
// open a child span per provider call through GetTracer, so a slow
// normalization request can be followed from the handler down to the
// upstream model.
//
//	shutdown := tracing.Init(cfg.TracingEnabled)
//	defer shutdown(context.Background())
package tracing
