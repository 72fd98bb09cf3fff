// Package metrics provides Prometheus metrics for the lamp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lampnode"

var (
	connectivityState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connectivity_state",
		Help:      "1 for the current connectivity state, 0 for the others",
	}, []string{"state"})

	currentColor = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "color",
		Help:      "Current lamp color as a 24-bit RGB value",
	})

	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Color transitions by result",
	}, []string{"result"})

	colorUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "color_updates_total",
		Help:      "Accepted color update commands",
	})

	badRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bad_requests_total",
		Help:      "Rejected color update commands",
	})

	wifiLinkQuality = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "wifi",
		Name:      "link_quality",
		Help:      "WiFi link quality as reported by /proc/net/wireless",
	}, []string{"interface"})

	wifiSignal = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "wifi",
		Name:      "signal_dbm",
		Help:      "WiFi signal level in dBm",
	}, []string{"interface"})
)

// Transition results.
const (
	ResultCompleted = "completed"
	ResultCancelled = "cancelled"
)

// SetConnectivity marks state as the only active connectivity state.
func SetConnectivity(state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		connectivityState.WithLabelValues(s).Set(v)
	}
}

// SetColor records the current color.
func SetColor(rgb uint32) {
	currentColor.Set(float64(rgb))
}

// IncColorUpdates counts an accepted update.
func IncColorUpdates() {
	colorUpdatesTotal.Inc()
}

// IncTransitions counts a finished transition.
func IncTransitions(completed bool) {
	result := ResultCancelled
	if completed {
		result = ResultCompleted
	}
	transitionsTotal.WithLabelValues(result).Inc()
}

// IncBadRequests counts a rejected update.
func IncBadRequests() {
	badRequestsTotal.Inc()
}

// SetWiFi records link quality and signal level for an interface.
func SetWiFi(iface string, quality, signal float64) {
	wifiLinkQuality.WithLabelValues(iface).Set(quality)
	wifiSignal.WithLabelValues(iface).Set(signal)
}

// DeleteWiFi removes the WiFi series for an interface.
func DeleteWiFi(iface string) {
	wifiLinkQuality.DeleteLabelValues(iface)
	wifiSignal.DeleteLabelValues(iface)
}
