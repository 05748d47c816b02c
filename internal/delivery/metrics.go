package delivery

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "broadcaster"

var (
	sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sends_total",
			Help:      "Outbound message send attempts by outcome.",
		},
		[]string{"outcome"},
	)

	sendLat = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "send_duration_seconds",
			Help:      "Duration of a single provider send.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2},
		},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "queue_depth",
			Help:      "Messages enqueued and not yet drained by this process.",
		},
	)
)

func init() {
	prometheus.MustRegister(sendsTotal, sendLat, queueDepth)
}
