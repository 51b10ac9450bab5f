package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BuildInfo is always 1; the labels identify the running relay.
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_build_info",
			Help: "Relay version and configured generator provider",
		},
		[]string{"version", "provider"},
	)

	// ModesConfigured reports the output length limit of each loaded mode.
	ModesConfigured = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_mode_max_length_characters",
			Help: "Configured maximum output length per relay mode",
		},
		[]string{"mode"},
	)
)

// SetBuildInfo publishes the version and provider of this process.
func SetBuildInfo(version, provider string) {
	BuildInfo.Reset()
	BuildInfo.WithLabelValues(version, provider).Set(1)
}

// SetModeMaxLength publishes the limit loaded for a mode.
func SetModeMaxLength(mode string, maxLength int) {
	ModesConfigured.WithLabelValues(mode).Set(float64(maxLength))
}
