package broadcast

import "github.com/prometheus/client_golang/prometheus"

const metricsNamespace = "broadcaster"

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cycles_total",
			Help:      "Broadcast cycles by result.",
		},
		[]string{"result"},
	)

	cycleLat = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one fetch, enqueue and drain cycle.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	messagesEnqueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_enqueued_total",
			Help:      "Messages created from quote and listener pairs.",
		},
	)
)

func init() {
	prometheus.MustRegister(cyclesTotal, cycleLat, messagesEnqueued)
}

func observeCycle(rep CycleReport) {
	result := "ok"
	if rep.Err != nil {
		result = "failed"
	}
	cyclesTotal.WithLabelValues(result).Inc()
	cycleLat.Observe(rep.Duration.Seconds())
}
