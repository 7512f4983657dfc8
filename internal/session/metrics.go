package session

import "github.com/prometheus/client_golang/prometheus"

var (
	stateGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "sessiond",
			Subsystem: "session",
			Name:      "state",
			Help:      "1 for the current session state, 0 otherwise",
		},
		[]string{"state"},
	)

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "session",
			Name:      "requests_total",
			Help:      "Accepted session requests by operation and interrupt plan",
		},
		[]string{"op", "plan"},
	)

	contractViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "session",
			Name:      "contract_violations_total",
			Help:      "Requests rejected because their state precondition did not hold",
		},
		[]string{"op"},
	)

	decodeStepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "session",
			Name:      "decode_steps_total",
			Help:      "Decode steps executed by interactive generations",
		},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "session",
			Name:      "generations_total",
			Help:      "Finished generations by outcome (completed|interrupted)",
		},
		[]string{"outcome"},
	)

	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sessiond",
			Subsystem: "session",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of interactive generations on the worker",
			Buckets:   prometheus.DefBuckets,
		},
	)

	reloadFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "session",
			Name:      "reload_failures_total",
			Help:      "Reloads that ended in the failed state",
		},
		[]string{"reason"},
	)

	modelLoadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sessiond",
			Subsystem: "session",
			Name:      "model_load_duration_seconds",
			Help:      "Duration of successful model loads",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)

	workerQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sessiond",
			Subsystem: "worker",
			Name:      "queue_depth",
			Help:      "Tasks waiting on the worker lane",
		},
	)

	workerRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "worker",
			Name:      "rejected_total",
			Help:      "Tasks submitted after the worker was closed, by operation",
		},
		[]string{"op"},
	)

	eventsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "events",
			Name:      "dropped_total",
			Help:      "Session events dropped because the publish queue was full",
		},
	)

	workerPanicsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sessiond",
			Subsystem: "worker",
			Name:      "panics_total",
			Help:      "Worker tasks that panicked",
		},
	)
)

func init() {
	prometheus.MustRegister(
		stateGauge, requestsTotal, contractViolationsTotal, decodeStepsTotal,
		generationsTotal, generationDuration, reloadFailuresTotal, modelLoadDuration,
		workerQueueDepth, workerRejectedTotal, eventsDroppedTotal, workerPanicsTotal,
	)
}

func observeState(s State) {
	for _, st := range AllStates {
		v := 0.0
		if st == s {
			v = 1
		}
		stateGauge.WithLabelValues(st.String()).Set(v)
	}
}
