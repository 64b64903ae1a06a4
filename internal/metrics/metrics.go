// Package metrics holds the service's Prometheus collectors. Everything
// registers into the default registry at init, so importing a collector's
// helper is all a package needs to do.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "techtrack_http_request_duration_seconds",
		Help:    "HTTP request latency by route, method and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})

	tableOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techtrack_table_ops_total",
		Help: "Calls against the upstream tabular store by operation and table.",
	}, []string{"op", "table"})

	tableOpErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techtrack_table_op_errors_total",
		Help: "Failed upstream table calls by operation and table.",
	}, []string{"op", "table"})

	conflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techtrack_record_conflicts_total",
		Help: "Conditional updates rejected because a concurrent actor changed the row first.",
	}, []string{"table"})

	pushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "techtrack_push_dispatch_total",
		Help: "Web push dispatch outcomes.",
	}, []string{"outcome"}) // sent, failed, expired
)

// Handler exposes the default registry for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(route, method, status string, elapsed time.Duration) {
	httpDuration.WithLabelValues(route, method, status).Observe(elapsed.Seconds())
}

// TableOp counts one upstream table call and, when it failed, its error.
func TableOp(op, table string, err error) {
	tableOps.WithLabelValues(op, table).Inc()
	if err != nil {
		tableOpErrors.WithLabelValues(op, table).Inc()
	}
}

// Conflict counts one rejected conditional update.
func Conflict(table string) {
	conflicts.WithLabelValues(table).Inc()
}

// Push counts one web push dispatch outcome: "sent", "failed" or "expired".
func Push(outcome string) {
	pushes.WithLabelValues(outcome).Inc()
}
