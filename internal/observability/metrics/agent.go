package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	turns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "turns_total",
		Help:      "Agent turns executed, by mode and outcome.",
	}, []string{"mode", "outcome"})

	turnLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "turn_duration_seconds",
		Help:      "Wall time of a single agent turn.",
		Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"mode"})

	turnChunks = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "turn_chunks",
		Help:      "Number of recognised stream chunks per turn.",
		Buckets:   []float64{1, 2, 4, 8, 16, 32},
	}, []string{"mode"})

	walletOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "wallet_store_operations_total",
		Help:      "Wallet store loads and saves, by driver and outcome.",
	}, []string{"driver", "operation", "outcome"})
)

// ObserveTurn records one agent turn. mode is "chat" or "auto".
func ObserveTurn(mode string, err error, chunks int, duration time.Duration) {
	turns.WithLabelValues(mode, outcome(err)).Inc()
	turnLatency.WithLabelValues(mode).Observe(duration.Seconds())
	if err == nil {
		turnChunks.WithLabelValues(mode).Observe(float64(chunks))
	}
}

// ObserveWalletOperation records a wallet store load or save.
func ObserveWalletOperation(driver, operation string, err error) {
	walletOps.WithLabelValues(driver, operation, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
