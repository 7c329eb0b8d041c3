package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	referralsApplied = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "referrals_applied_total",
		Help: "Referral codes successfully redeemed.",
	})

	coinsTransferred = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "coins_transferred_total",
		Help: "Coin points moved between users by transfers.",
	})

	ledgerRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_rejections_total",
			Help: "Referral and transfer attempts rejected by a business rule.",
		},
		[]string{"reason"},
	)

	identifierCollisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identifier_collisions_total",
			Help: "Generated identifier candidates that were already taken.",
		},
		[]string{"kind"},
	)

	videoPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "video_polls_total",
			Help: "Video provider status polls by resulting state.",
		},
		[]string{"state"},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Miabesite API build information.",
		},
		[]string{"version", "commit"},
	)

	initOnce      sync.Once
	buildInfoOnce sync.Once
)

// Init registers all collectors in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			referralsApplied, coinsTransferred, ledgerRejections,
			identifierCollisions, videoPolls,
		)
	})
}

// InitBuildInfo sets build_info{version,commit} to 1.
func InitBuildInfo(version, commit string) {
	buildInfoOnce.Do(func() { prometheus.MustRegister(buildInfo) })
	buildInfo.Reset()
	buildInfo.WithLabelValues(version, commit).Set(1)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func ReferralApplied() { referralsApplied.Inc() }
func CoinsTransferred(amount int64) { coinsTransferred.Add(float64(amount)) }
func LedgerRejected(reason string) { ledgerRejections.WithLabelValues(reason).Inc() }
func IdentifierCollision(kind string) { identifierCollisions.WithLabelValues(kind).Inc() }
func VideoPolled(state string) { videoPolls.WithLabelValues(state).Inc() }

// Instrument records in-flight, count and latency per canonical path.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		defer httpInFlight.Dec()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	})
}

// CanonicalPath collapses identifiers in known routes so label cardinality stays bounded.
func CanonicalPath(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[:i]
	}
	if raw == "" {
		return "/"
	}
	parts := strings.Split(strings.Trim(raw, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "v1" && parts[1] == "sites" && parts[2] != "validate":
		return "/v1/sites/:slug"
	case len(parts) == 4 && parts[0] == "v1" && parts[1] == "sites" && parts[3] == "publish":
		return "/v1/sites/:id/publish"
	case len(parts) == 3 && parts[0] == "v1" && parts[1] == "videos":
		return "/v1/videos/:id"
	case len(parts) == 4 && parts[0] == "v1" && parts[1] == "admin" && parts[2] == "video-access":
		return "/v1/admin/video-access/:id"
	}
	return raw
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent event streams working through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
