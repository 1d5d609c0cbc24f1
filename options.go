package bale

import (
	"io"

	"go.uber.org/zap"

	"github.com/baletool/bale/internal/codec"
	"github.com/baletool/bale/internal/codec/zstdengine"
	"github.com/baletool/bale/internal/fileio"
	"github.com/baletool/bale/internal/stats"
)

// Option configures a Client.
type Option interface {
	apply(*options)
}

// options holds the client configuration.
type options struct {
	compressor   codec.CompressEngine
	decompressor codec.DecompressEngine
	level        int
	overwrite    bool
	verbosity    int
	console      io.Writer
	promptIn     io.Reader
	onProgress   fileio.ProgressFunc
	stats        stats.Collector
	logger       *zap.Logger
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		compressor:   zstdengine.NewCompressor(),
		decompressor: zstdengine.NewDecompressor(),
		level:        zstdengine.DefaultLevel,
		stats:        stats.NewNoop(),
		logger:       zap.NewNop(),
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithCompressor sets the compression engine.
// If not set, the built-in engine is used.
func WithCompressor(e codec.CompressEngine) Option {
	return optionFunc(func(o *options) {
		o.compressor = e
	})
}

// WithDecompressor sets the decompression engine.
// If not set, the built-in engine is used.
func WithDecompressor(e codec.DecompressEngine) Option {
	return optionFunc(func(o *options) {
		o.decompressor = e
	})
}

// WithLevel sets the compression effort level.
func WithLevel(level int) Option {
	return optionFunc(func(o *options) {
		o.level = level
	})
}

// WithOverwrite makes file operations truncate an existing destination
// without asking.
func WithOverwrite(overwrite bool) Option {
	return optionFunc(func(o *options) {
		o.overwrite = overwrite
	})
}

// WithVerbosity sets the console notification level (0-4).
// Default is 0: fully silent, non-interactive.
func WithVerbosity(level int) Option {
	return optionFunc(func(o *options) {
		o.verbosity = level
	})
}

// WithConsole sets the writer receiving prompts and progress lines.
// If not set, console output is discarded.
func WithConsole(w io.Writer) Option {
	return optionFunc(func(o *options) {
		o.console = w
	})
}

// WithPromptInput sets the reader answering overwrite confirmations.
// If not set, unconfirmed overwrites abort.
func WithPromptInput(r io.Reader) Option {
	return optionFunc(func(o *options) {
		o.promptIn = r
	})
}

// WithProgress sets a callback receiving progress snapshots.
func WithProgress(fn fileio.ProgressFunc) Option {
	return optionFunc(func(o *options) {
		o.onProgress = fn
	})
}

// WithStats sets the stats collector.
// If not set, a no-op collector is used.
func WithStats(c stats.Collector) Option {
	return optionFunc(func(o *options) {
		o.stats = c
	})
}

// WithLogger sets the logger.
// If not set, logging is disabled.
func WithLogger(logger *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	})
}
