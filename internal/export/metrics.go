package export

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// attemptsTotal counts export mutation attempts across all candidates.
	attemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exporter_export_attempts_total",
		Help: "The total number of export candidate attempts issued.",
	})
	// successTotal counts origins that produced an artifact URL.
	successTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exporter_export_success_total",
		Help: "The total number of successful origin exports.",
	})
	// exhaustedTotal counts origins whose whole candidate list failed.
	exhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exporter_export_exhausted_total",
		Help: "The total number of origins that failed every export candidate.",
	})
)
