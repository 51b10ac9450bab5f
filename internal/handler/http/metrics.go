package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"drafty-relay/internal/handler/http/pathutil"
	"drafty-relay/internal/handler/http/responsewriter"
	"drafty-relay/internal/observability/metrics"
)

// MetricsMiddleware records count, latency, and sizes per route. Paths are
// normalized so unknown URLs share one label.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.HTTPRequestsInFlight.Inc()
		defer metrics.HTTPRequestsInFlight.Dec()

		path := pathutil.NormalizePath(r.URL.Path)
		rw := responsewriter.Wrap(w)

		start := time.Now()
		next.ServeHTTP(rw, r)

		metrics.RecordHTTPRequest(r.Method, path, strconv.Itoa(rw.StatusCode()),
			time.Since(start), r.ContentLength, rw.BytesWritten())
	})
}

// MetricsHandler serves the Prometheus endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
