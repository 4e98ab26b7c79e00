package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// strategySuccesses counts credential acquisitions per strategy.
	strategySuccesses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exporter_auth_strategy_success_total",
		Help: "Credential acquisitions that succeeded, by strategy.",
	}, []string{"strategy"})
	// strategyFailures counts failed acquisition attempts per strategy.
	strategyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exporter_auth_strategy_failures_total",
		Help: "Credential acquisitions that failed, by strategy.",
	}, []string{"strategy"})
)
