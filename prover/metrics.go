package prover

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	lastVerifiedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prover_last_verified_period",
		Help: "Highest period with a locally verified Groth16 proof.",
	})
	runDurationGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prover_last_run_duration_seconds",
		Help: "Duration of the last prover run.",
	})
	runsSucceededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prover_runs_succeeded_total",
		Help: "Prover runs whose proof verified locally.",
	})
	runsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prover_runs_failed_total",
		Help: "Prover runs that failed or produced an invalid proof.",
	})
)
