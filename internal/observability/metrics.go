package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

var (
	registerOnce sync.Once

	frames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Subsystem: "transport",
			Name:      "frames_total",
			Help:      "Complete frames received or sent.",
		},
		[]string{"transport", "direction"},
	)
	payloadBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Subsystem: "transport",
			Name:      "payload_bytes_total",
			Help:      "Payload bytes in complete frames, excluding length prefixes.",
		},
		[]string{"transport", "direction"},
	)
	wouldBlock = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Subsystem: "transport",
			Name:      "would_block_total",
			Help:      "Non-blocking calls that returned without progress.",
		},
		[]string{"transport", "op"},
	)
	opErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framewire",
			Subsystem: "transport",
			Name:      "errors_total",
			Help:      "Failed transport operations.",
		},
		[]string{"transport", "op"},
	)
	connections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "framewire",
			Subsystem: "transport",
			Name:      "connections_open",
			Help:      "Framed connections not yet shut down.",
		},
		[]string{"transport"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(frames, payloadBytes, wouldBlock, opErrors, connections)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordFrame(transport, direction string, payloadLen int) {
	RegisterMetrics()
	frames.WithLabelValues(transport, direction).Inc()
	payloadBytes.WithLabelValues(transport, direction).Add(float64(payloadLen))
}

func RecordWouldBlock(transport, op string) {
	RegisterMetrics()
	wouldBlock.WithLabelValues(transport, op).Inc()
}

func RecordError(transport, op string) {
	RegisterMetrics()
	opErrors.WithLabelValues(transport, op).Inc()
}

func ConnOpened(transport string) {
	RegisterMetrics()
	connections.WithLabelValues(transport).Inc()
}

func ConnClosed(transport string) {
	RegisterMetrics()
	connections.WithLabelValues(transport).Dec()
}
