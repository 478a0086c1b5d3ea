package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mqldb/internal/result"
)

var (
	// StatementsTotal counts executed statements by kind and outcome.
	StatementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqldb_statements_total",
			Help: "Total number of executed statements",
		},
		[]string{"kind", "status"},
	)
	// StatementDuration is the execution latency of statements.
	StatementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mqldb_statement_duration_seconds",
			Help:    "Statement execution latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	// TriggerDeliveries counts trigger callbacks by event type and outcome.
	TriggerDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mqldb_trigger_deliveries_total",
			Help: "Total number of trigger callback deliveries",
		},
		[]string{"event", "status"},
	)
	// LiveResults is the number of results created and not yet freed.
	LiveResults = promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "mqldb_live_results",
			Help: "Number of results not yet freed",
		},
		func() float64 { return float64(result.Live()) },
	)
)

// ObserveStatement records one statement execution.
func ObserveStatement(kind string, ok bool, elapsed time.Duration) {
	StatementsTotal.WithLabelValues(kind, status(ok)).Inc()
	StatementDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveTrigger records one trigger delivery.
func ObserveTrigger(event string, ok bool) {
	TriggerDeliveries.WithLabelValues(event, status(ok)).Inc()
}

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
