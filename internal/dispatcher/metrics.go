package dispatcher

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels for scheduler_dispatch_total.
const (
	outcomeSent      = "sent"
	outcomeFailed    = "failed"
	outcomeSkipped   = "skipped"
	outcomeDiscarded = "discarded"
)

var (
	// dispatchTotal counts processed due messages by outcome.
	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_dispatch_total",
			Help: "Scheduled messages processed by the dispatcher, by outcome.",
		},
		[]string{"outcome"},
	)

	tickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scheduler_tick_duration_seconds",
			Help:    "Duration of dispatcher ticks in seconds.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// dueMessages is the size of the last due snapshot.
	dueMessages = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "scheduler_due_messages",
			Help: "Number of due messages found by the last tick.",
		},
	)

	purgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_purged_total",
			Help: "Terminal scheduled messages removed by the retention sweep.",
		},
	)
)

func init() {
	prometheus.MustRegister(dispatchTotal, tickDuration, dueMessages, purgedTotal)
}
