// Package stats provides a unified interface for collecting metrics.
package stats

// Metric names used throughout the library.
const (
	// Driver metrics.
	MetricBytesRead          = "bale_bytes_read_total"
	MetricBytesWritten       = "bale_bytes_written_total"
	MetricFramesCompressed   = "bale_frames_compressed_total"
	MetricFramesDecompressed = "bale_frames_decompressed_total"
	MetricLegacyFrames       = "bale_legacy_frames_total"

	// MetricCompressionRatio observes compressed/uncompressed per frame.
	MetricCompressionRatio = "bale_compression_ratio"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
