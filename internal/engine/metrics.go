package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dashvars_variable_fetch_duration_seconds",
		Help:    "Time spent fetching variable values",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind", "status"})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dashvars_refresh_runs_total",
		Help: "Refresh runs by trigger type and outcome",
	}, []string{"trigger", "status"})
)
