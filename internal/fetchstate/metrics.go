package fetchstate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// transitionsTotal counts state changes by target state and operation.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashvars_fetch_state_transitions_total",
		Help: "Variable fetch state transitions by target state and operation",
	}, []string{"state", "operation"})

	// staleResultsTotal counts fetch results dropped because a newer cycle started.
	staleResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dashvars_fetch_stale_results_total",
		Help: "Fetch results discarded because their cycle was superseded",
	})

	// inFlight tracks how many variables are loading or revalidating.
	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dashvars_fetch_in_flight",
		Help: "Variables currently loading or revalidating",
	})
)

// Operation labels.
const (
	opEnqueueAll         = "enqueue_all"
	opEnqueueDescendants = "enqueue_descendants"
	opComplete           = "complete"
	opFail               = "fail"
)

// RecordStale counts a discarded fetch result.
func RecordStale() {
	staleResultsTotal.Inc()
}
