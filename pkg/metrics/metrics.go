// Package metrics provides Prometheus instrumentation for table operations.
//
// # Basic Usage
//
//	timer := metrics.NewTimer("simplify")
//	nodeMap, err := tc.Simplify(samples, 0)
//	timer.ObserveResult(err)
//
//	metrics.RowsTotal.WithLabelValues("edges", "load").Add(float64(n))
//
// All collectors register with the default registry on package init. The
// CLI writes them out with WriteTextfile for a node exporter textfile
// collector, since a short-lived command has nothing to scrape.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

const (
	// StatusSuccess labels an operation that returned no error.
	StatusSuccess = "success"
	// StatusFailure labels an operation that returned an error.
	StatusFailure = "failure"

	// DirectionRead and DirectionWrite label BytesTotal.
	DirectionRead  = "read"
	DirectionWrite = "write"
)

var (
	// OperationsTotal counts collection operations by outcome.
	// Labels: operation (sort/simplify/dump/load/...), status (success/failure)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbor_operations_total",
			Help: "Total number of table collection operations",
		},
		[]string{"operation", "status"},
	)

	// OperationDuration tracks wall time per operation in seconds.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "arbor_operation_duration_seconds",
			Help: "Duration of table collection operations in seconds",
			Buckets: []float64{
				0.0001, // 100µs - small in-memory tables
				0.001,
				0.01,
				0.1,
				1,
				10,
				60, // 1m - large simplifications
			},
		},
		[]string{"operation"},
	)

	// RowsTotal counts rows handled per table and operation.
	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbor_rows_total",
			Help: "Total number of table rows processed",
		},
		[]string{"table", "operation"},
	)

	// BytesTotal counts file bytes read and written.
	BytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arbor_bytes_total",
			Help: "Total number of file bytes read or written",
		},
		[]string{"direction"},
	)
)

// Timer measures one operation.
type Timer struct {
	start     time.Time
	operation string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(operation string) *Timer {
	return &Timer{
		start:     time.Now(),
		operation: operation,
	}
}

// Stop returns the elapsed duration since creation. It can be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ObserveResult records the duration and outcome of the operation and
// returns the duration.
func (t *Timer) ObserveResult(err error) time.Duration {
	d := t.Stop()
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
	}
	OperationsTotal.WithLabelValues(t.operation, status).Inc()
	OperationDuration.WithLabelValues(t.operation).Observe(d.Seconds())
	return d
}

// RecordRows adds per-table row counts for an operation.
func RecordRows(operation string, counts map[string]int) {
	for table, n := range counts {
		RowsTotal.WithLabelValues(table, operation).Add(float64(n))
	}
}

// RecordBytes adds n bytes in the given direction.
func RecordBytes(direction string, n int64) {
	if n > 0 {
		BytesTotal.WithLabelValues(direction).Add(float64(n))
	}
}

// WriteTextfile writes every registered metric to path in the Prometheus
// text format.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to write metrics").WithDetail("path", path)
	}
	return nil
}
