package incidents

import (
	"errors"
	"time"

	"github.com/lotfimay/FollowUP-GRP4/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "incidents",
			Name:      "operations_total",
			Help:      "Total incident and follow-up operations by outcome",
		},
		[]string{"operation", "result"},
	)

	operationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "incidents",
			Name:      "operation_duration_seconds",
			Help:      "Time spent in the store per operation",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"operation"},
	)
)

// observe records the outcome and duration of a single operation.
func observe(operation string, start time.Time, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrIncidentNotFound):
		result = "not_found"
	case errors.Is(err, ErrReferenceNotFound):
		result = "invalid_reference"
	default:
		result = "error"
	}
	operationsTotal.WithLabelValues(operation, result).Inc()
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
