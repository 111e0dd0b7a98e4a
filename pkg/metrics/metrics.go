package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPRequests counts handled HTTP requests by method, path and status
var HTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "nikoh_http_requests_total",
		Help: "Total number of HTTP requests handled",
	},
	[]string{"method", "path", "status"},
)

// HTTPDuration records HTTP request latency distribution
var HTTPDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "nikoh_http_request_duration_seconds",
		Help:    "Latency in seconds per HTTP request",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "path"},
)

// Domain counters
var (
	RegistrationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nikoh_registrations_total",
			Help: "Total number of registered users",
		},
	)

	InterestsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nikoh_interests_created_total",
			Help: "Total number of interests sent",
		},
	)

	MatchesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nikoh_matches_created_total",
			Help: "Total number of mutual matches created",
		},
	)

	MessagesSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nikoh_messages_sent_total",
			Help: "Total number of chat messages sent",
		},
	)

	VerificationsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nikoh_verifications_processed_total",
			Help: "Total number of document verifications by outcome",
		},
		[]string{"result"},
	)

	PaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nikoh_payments_total",
			Help: "Total number of payments by status transition",
		},
		[]string{"status"},
	)
)

// Database connection pool metrics
var (
	DBOpenConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nikoh_db_open_connections",
			Help: "Number of open connections in the DB pool",
		},
		[]string{"db"},
	)

	DBIdleConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nikoh_db_idle_connections",
			Help: "Number of idle connections in the DB pool",
		},
		[]string{"db"},
	)

	DBInUseConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nikoh_db_in_use_connections",
			Help: "Number of in-use connections in the DB pool",
		},
		[]string{"db"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration)
	prometheus.MustRegister(RegistrationsTotal, InterestsCreated, MatchesCreated, MessagesSent)
	prometheus.MustRegister(VerificationsProcessed, PaymentsTotal)
	prometheus.MustRegister(DBOpenConns, DBIdleConns, DBInUseConns)
}

// GinMiddleware records request counters and latency per route.
// Uses the route template (c.FullPath) to keep label cardinality bounded.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		HTTPRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
