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
			Name: "decisioning_requests_total",
			Help: "Total delivery requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "decisioning_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "decisioning_in_flight",
		Help: "In-flight HTTP requests",
	})
	ArtifactFetchAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artifact_fetch_attempts_total",
			Help: "Artifact fetch attempts by outcome",
		}, []string{"outcome"},
	)
	DecisionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "decisioning_evaluation_duration_seconds",
		Help:    "Rule evaluation latency seconds",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight, ArtifactFetchAttempts, DecisionDuration)
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
