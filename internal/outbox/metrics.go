package outbox

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the relay's prometheus instruments.
type Metrics struct {
	Processed    prometheus.Counter
	Failed       prometheus.Counter
	DeadLettered prometheus.Counter
	RunDuration  prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "estore",
			Subsystem: "outbox",
			Name:      "messages_processed_total",
			Help:      "Messages delivered to all subscribers.",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "estore",
			Subsystem: "outbox",
			Name:      "dispatch_failures_total",
			Help:      "Failed dispatch attempts (retries included).",
		}),
		DeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "estore",
			Subsystem: "outbox",
			Name:      "messages_dead_lettered_total",
			Help:      "Messages abandoned after exhausting retries.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "estore",
			Subsystem: "outbox",
			Name:      "run_duration_seconds",
			Help:      "Duration of one relay batch run.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
	}
	reg.MustRegister(m.Processed, m.Failed, m.DeadLettered, m.RunDuration)
	return m
}
