package bench

import "github.com/prometheus/client_golang/prometheus"

var (
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "bench",
			Name:      "questions_total",
			Help:      "Benchmark questions by outcome (recorded, skipped)",
		},
		[]string{"outcome"},
	)

	questionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sessiond",
			Subsystem: "bench",
			Name:      "question_duration_seconds",
			Help:      "Wall time from prefill to the last decode step of a question",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	conversationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "bench",
			Name:      "conversations_total",
			Help:      "Benchmark conversations completed or cut short",
		},
	)

	notifyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "bench",
			Name:      "notify_total",
			Help:      "Controller notifications by result (ok, error)",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(questionsTotal, questionDuration, conversationsTotal, notifyTotal)
}
