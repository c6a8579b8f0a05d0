// Package metrics provides Prometheus instrumentation for order routing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OrdersSubmitted counts child orders sent, by account, role and outcome.
	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniper_orders_submitted_total",
		Help: "Child orders submitted to the exchange",
	}, []string{"account", "role", "result"})

	// MirrorLatency tracks the time from intent to acknowledged batch per account.
	MirrorLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sniper_mirror_latency_seconds",
		Help:    "Time to price, build and submit one account's order set",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"account"})

	SubscriberFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniper_subscriber_failures_total",
		Help: "Per-account dispatch failures by error kind",
	}, []string{"account", "kind"})

	RatchetMoves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniper_ratchet_moves_total",
		Help: "Stop-loss moves triggered by take-profit fills",
	}, []string{"account"})

	ConnectedAccounts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sniper_connected_accounts",
		Help: "Accounts connected to the exchange",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sniper_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts by method, path and status.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(wrapped.status)).Inc()
	})
}

// ObserveSince records a mirror latency sample for account.
func ObserveSince(account string, start time.Time) {
	MirrorLatency.WithLabelValues(account).Observe(time.Since(start).Seconds())
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
