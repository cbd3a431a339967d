package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_requests_total",
			Help: "Total HTTP requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "autopilot_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "autopilot_in_flight",
		Help: "In-flight HTTP requests",
	})
	PassesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autopilot_passes_total",
		Help: "Rule evaluation passes run",
	})
	PairsEvaluated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autopilot_pairs_evaluated_total",
		Help: "Snapshot-rule pairs evaluated",
	})
	MatchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autopilot_matches_total",
		Help: "Rule conditions that matched",
	})
	ActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_actions_total",
			Help: "Action outcomes by result",
		}, []string{"result"},
	)
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight,
		PassesTotal, PairsEvaluated, MatchesTotal, ActionsTotal)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}
