package vcardio

import (
	"log/slog"

	"github.com/hupe1980/vcardio/dialect"
	"github.com/hupe1980/vcardio/internal/fs"
	"github.com/hupe1980/vcardio/spool"
)

type options struct {
	threshold        int64
	dialect          dialect.Dialect
	sink             Sink
	spoolDir         string
	fsys             fs.FileSystem
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures parse and serialize behavior.
type Option func(*options)

// WithSpoolThreshold configures the large-value threshold in bytes.
// Line buffers that grow strictly beyond the threshold spill to disk, and
// decoded values larger than the threshold are reported as streamable
// handles instead of strings.
//
// The default is spool.DefaultThreshold (1 MiB). A threshold of 0 forces
// every value to disk; spool.NoLimit keeps everything in memory.
func WithSpoolThreshold(threshold int64) Option {
	return func(o *options) {
		o.threshold = threshold
	}
}

// WithDialect pins the vCard dialect instead of auto-detecting it from
// the VERSION property. VERSION properties still set the card's Version
// field, but no longer switch the rule set.
//
// If nil is passed, auto-detection stays enabled (the default).
func WithDialect(d dialect.Dialect) Option {
	return func(o *options) {
		o.dialect = d
	}
}

// WithSink substitutes the built-in card accumulator with a custom event
// sink. The sink receives every recognized property in document order;
// its Finish result becomes the parse result.
//
// If nil is passed, the built-in CardBuilder is used.
func WithSink(s Sink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithSpoolDir configures the directory for disk-backed line buffers.
// Empty means the system temporary directory.
func WithSpoolDir(dir string) Option {
	return func(o *options) {
		o.spoolDir = dir
	}
}

// WithFS configures the filesystem used for disk-backed line buffers.
// Mainly useful for fault injection in tests.
//
// If nil is passed, the local filesystem is used.
func WithFS(fsys fs.FileSystem) Option {
	return func(o *options) {
		o.fsys = fsys
	}
}

// WithMetrics configures a metrics collector for monitoring operations.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vcardio.BasicMetricsCollector{}
//	card, _ := vcardio.ParseString(input, vcardio.WithMetrics(metrics))
//	stats := metrics.GetStats()
//	fmt.Printf("Lines: %d, Promotions: %d\n", stats.LinesRead, stats.SpoolPromotions)
//
// If nil is passed, metrics collection is disabled.
func WithMetrics(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
//
// Example with JSON logging:
//
//	logger := vcardio.NewJSONLogger(slog.LevelInfo)
//	card, _ := vcardio.ParseString(input, vcardio.WithLogger(logger))
//
// If nil is passed, logging is disabled.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		threshold:        spool.DefaultThreshold,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// newSink returns the configured sink or a fresh CardBuilder.
func (o *options) newSink() Sink {
	if o.sink != nil {
		return o.sink
	}
	return NewCardBuilder()
}

// newSpooler builds the buffer factory for one parse.
func (o *options) newSpooler() *spool.Spooler {
	return spool.New(func(so *spool.Options) {
		so.Threshold = o.threshold
		so.FS = o.fsys
		so.Dir = o.spoolDir
	})
}
