package vcardio

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    parseCounter  prometheus.Counter
//	    parseDuration prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordParse(lines int, duration time.Duration, err error) {
//	    p.parseCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordParse is called after each parse of a single card.
	// lines is the number of logical lines consumed, duration is the
	// total time taken, err is nil if successful.
	RecordParse(lines int, duration time.Duration, err error)

	// RecordSerialize is called after each serialization.
	// bytes is the length of the produced text, err is nil if successful.
	RecordSerialize(bytes int, duration time.Duration, err error)

	// RecordLine is called for each logical line read from the source.
	// bytes is the unfolded line length.
	RecordLine(bytes int64)

	// RecordSpoolPromotion is called when a line buffer spills from
	// memory to disk. size is the buffer size at the time it is observed.
	RecordSpoolPromotion(size int64)

	// RecordDecodeError is called when a property value fails to decode.
	// name is the upper-cased property name.
	RecordDecodeError(name string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordParse(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordSerialize(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordLine(int64)                          {}
func (NoopMetricsCollector) RecordSpoolPromotion(int64)                {}
func (NoopMetricsCollector) RecordDecodeError(string)                  {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ParseCount          atomic.Int64
	ParseErrors         atomic.Int64
	ParseTotalNanos     atomic.Int64
	SerializeCount      atomic.Int64
	SerializeErrors     atomic.Int64
	SerializeTotalNanos atomic.Int64
	LinesRead           atomic.Int64
	BytesRead           atomic.Int64
	SpoolPromotions     atomic.Int64
	DecodeErrors        atomic.Int64
}

// RecordParse implements MetricsCollector.
func (b *BasicMetricsCollector) RecordParse(lines int, duration time.Duration, err error) {
	b.ParseCount.Add(1)
	b.ParseTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ParseErrors.Add(1)
	}
}

// RecordSerialize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSerialize(bytes int, duration time.Duration, err error) {
	b.SerializeCount.Add(1)
	b.SerializeTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SerializeErrors.Add(1)
	}
}

// RecordLine implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLine(bytes int64) {
	b.LinesRead.Add(1)
	b.BytesRead.Add(bytes)
}

// RecordSpoolPromotion implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSpoolPromotion(size int64) {
	b.SpoolPromotions.Add(1)
}

// RecordDecodeError implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDecodeError(name string) {
	b.DecodeErrors.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ParseCount:        b.ParseCount.Load(),
		ParseErrors:       b.ParseErrors.Load(),
		ParseAvgNanos:     b.getAvgParseNanos(),
		SerializeCount:    b.SerializeCount.Load(),
		SerializeErrors:   b.SerializeErrors.Load(),
		SerializeAvgNanos: b.getAvgSerializeNanos(),
		LinesRead:         b.LinesRead.Load(),
		BytesRead:         b.BytesRead.Load(),
		SpoolPromotions:   b.SpoolPromotions.Load(),
		DecodeErrors:      b.DecodeErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgParseNanos() int64 {
	count := b.ParseCount.Load()
	if count == 0 {
		return 0
	}
	return b.ParseTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgSerializeNanos() int64 {
	count := b.SerializeCount.Load()
	if count == 0 {
		return 0
	}
	return b.SerializeTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ParseCount        int64
	ParseErrors       int64
	ParseAvgNanos     int64
	SerializeCount    int64
	SerializeErrors   int64
	SerializeAvgNanos int64
	LinesRead         int64
	BytesRead         int64
	SpoolPromotions   int64
	DecodeErrors      int64
}
