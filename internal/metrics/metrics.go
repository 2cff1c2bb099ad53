// Package metrics defines the Prometheus metrics reported while building cells.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the cell writer.
type Metrics struct {
	RecordsWritten prometheus.Counter
	BytesWritten   prometheus.Counter
	PaddingBytes   prometheus.Counter
	Flushes        *prometheus.CounterVec
	FlushDuration  prometheus.Histogram
	OpenCells      prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the provided registry.
// A nil registry produces unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	recordsWritten := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spatial_cell_records_written_total",
		Help: "Total records appended to cell buffers",
	})

	bytesWritten := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spatial_cell_bytes_written_total",
		Help: "Total bytes written to cell files, excluding padding",
	})

	paddingBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "spatial_cell_padding_bytes_total",
		Help: "Total zero bytes written to align cell files to storage blocks",
	})

	flushes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "spatial_cell_flushes_total",
		Help: "Total cell buffer flushes, by layout",
	}, []string{"layout"})

	flushDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "spatial_cell_flush_duration_seconds",
		Help:    "Time spent flushing a cell buffer",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	})

	openCells := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "spatial_cell_open",
		Help: "Cells which have been written to but not closed",
	})

	if reg != nil {
		reg.MustRegister(recordsWritten, bytesWritten, paddingBytes, flushes, flushDuration, openCells)
	}

	return &Metrics{
		RecordsWritten: recordsWritten,
		BytesWritten:   bytesWritten,
		PaddingBytes:   paddingBytes,
		Flushes:        flushes,
		FlushDuration:  flushDuration,
		OpenCells:      openCells,
	}
}
