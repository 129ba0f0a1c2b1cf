// Package metrics provides Prometheus metrics for the stocktake service.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/garyjia/stocktake/internal/domain/event"
)

var (
	// HTTPRequestDuration tracks HTTP request duration by method, path, and status code.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stocktake_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status_code"},
	)

	// HTTPRequestTotal tracks total HTTP requests by method, path, and status code.
	HTTPRequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocktake_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	// CommandsTotal tracks session commands by type and result.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocktake_commands_total",
			Help: "Total number of counting session commands",
		},
		[]string{"type", "result"},
	)

	// EventsTotal tracks dispatched run events by type.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocktake_events_total",
			Help: "Total number of run events",
		},
		[]string{"type"},
	)

	// ActiveRuns tracks runs created and not yet deleted.
	ActiveRuns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stocktake_active_runs",
			Help: "Number of runs held by the service",
		},
	)

	// CountedQuantity tracks the total quantity of each finished area.
	CountedQuantity = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stocktake_area_counted_quantity",
			Help:    "Total counted quantity per finished area",
			Buckets: prometheus.ExponentialBuckets(1, 10, 7),
		},
	)
)

// PrometheusMiddleware returns a Gin middleware that collects HTTP metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		c.Next()

		duration := time.Since(start).Seconds()
		statusCode := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration)
		HTTPRequestTotal.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RecordCommand records one applied or rejected session command.
func RecordCommand(commandType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	CommandsTotal.WithLabelValues(commandType, result).Inc()
}

// HandleEvent is a dispatcher handler that turns run events into metrics.
func HandleEvent(ctx context.Context, evt *event.Event) error {
	EventsTotal.WithLabelValues(evt.Type.String()).Inc()

	switch evt.Type {
	case event.TypeRunCreated:
		ActiveRuns.Inc()
	case event.TypeRunDeleted:
		ActiveRuns.Dec()
	case event.TypeAreaFinished:
		CountedQuantity.Observe(float64(evt.GetPayloadInt("total_quantity")))
	}
	return nil
}
