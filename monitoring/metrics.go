package monitoring

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mehdiessalah/eventyBackend/internal/apperror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	catalogOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_operations_total",
			Help: "Total event catalog operations",
		},
		[]string{"operation", "status"},
	)

	membershipChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_changes_total",
			Help: "Subscribe/unsubscribe calls by outcome",
		},
		[]string{"operation", "outcome"},
	)

	dashboardCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_cache_lookups_total",
			Help: "Dashboard cache lookups by result",
		},
		[]string{"list", "result"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Status classifies an operation error into a metric label.
func Status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperror.ErrValidation):
		return "invalid"
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// TrackCatalogOperation counts one catalog call.
func TrackCatalogOperation(operation string, err error) {
	catalogOperations.WithLabelValues(operation, Status(err)).Inc()
}

// TrackMembershipChange counts subscribe/unsubscribe outcomes
// (created, already_subscribed, removed, not_subscribed, ...).
func TrackMembershipChange(operation, outcome string) {
	membershipChanges.WithLabelValues(operation, outcome).Inc()
}

// TrackCacheLookup counts a dashboard cache hit, miss or error.
func TrackCacheLookup(list, result string) {
	dashboardCache.WithLabelValues(list, result).Inc()
}

// RequestMetrics observes request latency per matched route.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
