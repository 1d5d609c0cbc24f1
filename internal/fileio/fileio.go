// Package fileio is the streaming file-level driver. It moves bytes between
// stream endpoints and an incremental codec engine in bounded memory: two
// engine-recommended buffers per invocation, regardless of input size.
//
// Compressed streams are sequences of self-delimiting frames, each opening
// with a 4-byte magic number. Decompression walks the frames in order,
// dispatching each to the current-format session or to a legacy decoder.
// There is no recovery: every failure is fatal to the whole operation and
// carries a distinct exit code.
package fileio

import (
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/baletool/bale/internal/codec"
	"github.com/baletool/bale/internal/legacy"
	"github.com/baletool/bale/internal/stats"
)

// magicSize is the frame-identifying prefix length.
const magicSize = 4

// refreshInterval throttles progress output.
const refreshInterval = 150 * time.Millisecond

// Progress is a snapshot of the running byte totals of one operation.
// The counters are for reporting only.
type Progress struct {
	BytesRead    int64
	BytesWritten int64
	Frames       int64
}

// ProgressFunc receives progress snapshots during an operation.
type ProgressFunc func(Progress)

// Config holds everything a driver invocation needs. The zero value is not
// usable: at least the engine for the intended direction must be set.
type Config struct {
	// Compressor and Decompressor supply codec sessions. Only the side
	// being exercised needs to be non-nil.
	Compressor   codec.CompressEngine
	Decompressor codec.DecompressEngine

	// Level is the compression effort level passed to encoder init.
	Level int

	// Overwrite truncates existing destination files without asking.
	Overwrite bool

	// Verbosity controls console output: 0 none, 1 errors, 2 results,
	// warnings and interaction, 3 progression, 4 information.
	Verbosity int

	// Console receives prompts and progress lines. nil discards them.
	Console io.Writer

	// PromptIn answers overwrite confirmations. nil disables prompting,
	// making an unconfirmed overwrite abort.
	PromptIn io.Reader

	// OnProgress, when set, receives progress snapshots.
	OnProgress ProgressFunc

	// Stats collects byte and frame counters. nil means no collection.
	Stats stats.Collector

	// Logger receives lifecycle debug output. nil means no logging.
	Logger *zap.Logger

	// LegacyLookup overrides the legacy decoder registry. nil uses the
	// built-in set.
	LegacyLookup func(magic uint32) (legacy.Decoder, bool)
}

// Driver runs compression and decompression operations. A Driver owns its
// buffers and sessions only for the duration of a call and holds the
// progress-throttling clock, so it must not be used concurrently; separate
// goroutines get separate Drivers.
type Driver struct {
	cfg         Config
	console     io.Writer
	prompt      io.Reader
	stats       stats.Collector
	logger      *zap.Logger
	lookup      func(uint32) (legacy.Decoder, bool)
	lastDisplay time.Time
}

// New creates a Driver from cfg, filling in inert defaults for the optional
// collaborators.
func New(cfg Config) *Driver {
	d := &Driver{
		cfg:     cfg,
		console: cfg.Console,
		prompt:  cfg.PromptIn,
		stats:   cfg.Stats,
		logger:  cfg.Logger,
		lookup:  cfg.LegacyLookup,
	}
	if d.console == nil {
		d.console = io.Discard
	}
	if d.stats == nil {
		d.stats = stats.NewNoop()
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.lookup == nil {
		d.lookup = legacy.Lookup
	}
	return d
}

// CompressFile compresses the named source into the named destination,
// producing exactly one frame. It returns the compressed byte count.
func (d *Driver) CompressFile(dstName, srcName string) (int64, error) {
	src, dst, err := d.openFiles(srcName, dstName)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	n, err := d.compress(dst, src, srcName, dstName, sourceSize(srcName))
	if err != nil {
		dst.Close()
		return n, err
	}
	// A failed close can mean silently lost buffered writes.
	if err := dst.Close(); err != nil {
		return n, fatal(CodeCloseDestination, dstName, err, "write error: cannot properly close %s", dstName)
	}
	return n, nil
}

// Compress compresses src into dst as one frame. contentSize is the total
// source size when known, or -1.
func (d *Driver) Compress(dst io.Writer, src io.Reader, contentSize int64) (int64, error) {
	return d.compress(dst, src, StdinMark, StdoutMark, contentSize)
}

// DecompressFile decodes every frame of the named source into the named
// destination. It returns the decompressed byte count.
func (d *Driver) DecompressFile(dstName, srcName string) (int64, error) {
	src, dst, err := d.openFiles(srcName, dstName)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	n, err := d.decompress(dst, src, srcName, dstName)
	if err != nil {
		dst.Close()
		return n, err
	}
	if err := dst.Close(); err != nil {
		return n, fatal(CodeCloseDecoded, dstName, err, "write error: cannot properly close %s", dstName)
	}
	return n, nil
}

// Decompress decodes every frame of src into dst.
func (d *Driver) Decompress(dst io.Writer, src io.Reader) (int64, error) {
	return d.decompress(dst, src, StdinMark, StdoutMark)
}

// compress drives one exclusively-owned encoder session across the whole
// input stream.
func (d *Driver) compress(w io.Writer, r io.Reader, srcName, dstName string, contentSize int64) (int64, error) {
	eng := d.cfg.Compressor
	if eng == nil {
		return 0, fatal(CodeCompressInit, srcName, nil, "no compression engine configured")
	}

	sess := eng.NewSession()
	defer sess.Close()
	inBuf := make([]byte, eng.RecommendedInputSize())
	outBuf := make([]byte, eng.RecommendedOutputSize())

	if err := sess.Init(codec.Params{Level: d.cfg.Level, ContentSize: contentSize}); err != nil {
		return 0, fatal(CodeCompressInit, srcName, err, "error initializing compression")
	}
	d.logger.Debug("compression session initialized",
		zap.Int("level", d.cfg.Level),
		zap.Int64("contentSize", contentSize),
	)

	var read, compressed int64
	for {
		n, err := readChunk(r, inBuf)
		if err != nil {
			return compressed, fatal(CodeReadFrame, srcName, err, "read error: cannot read %s", srcName)
		}
		if n == 0 {
			break
		}
		read += int64(n)
		d.stats.IncCounter(stats.MetricBytesRead, int64(n))

		written, consumed, err := sess.Continue(outBuf, inBuf[:n])
		if err != nil {
			return compressed, fatal(CodeCompress, srcName, err, "compression error")
		}
		if consumed != n {
			// Buffer sizes are the engine's own recommendations, so a
			// partial consume is an internal consistency violation,
			// not a retry condition.
			return compressed, fatal(CodeChunkNotConsumed, srcName, nil, "compression error: input block not fully consumed")
		}
		if _, err := w.Write(outBuf[:written]); err != nil {
			return compressed, fatal(CodeWriteBlock, dstName, err, "write error: cannot write compressed block into %s", dstName)
		}
		compressed += int64(written)
		d.stats.IncCounter(stats.MetricBytesWritten, int64(written))

		d.displayUpdate(2, "\rRead : %d MB  ==> %.2f%%   ", read>>20, ratio(compressed, read))
		d.reportProgress(Progress{BytesRead: read, BytesWritten: compressed})
	}

	// One-shot terminal flush: the session must fit its trailing state and
	// frame terminator into a single recommended-size buffer.
	written, remaining, err := sess.End(outBuf)
	if err != nil || remaining != 0 {
		return compressed, fatal(CodeFlushEnd, srcName, err, "compression error: cannot create frame end")
	}
	if _, err := w.Write(outBuf[:written]); err != nil {
		return compressed, fatal(CodeWriteEnd, dstName, err, "write error: cannot write frame end into %s", dstName)
	}
	compressed += int64(written)
	d.stats.IncCounter(stats.MetricBytesWritten, int64(written))
	d.stats.IncCounter(stats.MetricFramesCompressed, 1)
	if read > 0 {
		d.stats.ObserveHistogram(stats.MetricCompressionRatio, float64(compressed)/float64(read))
	}

	d.display(2, "\rCompressed %d bytes into %d bytes ==> %.2f%%\n", read, compressed, ratio(compressed, read))
	d.reportProgress(Progress{BytesRead: read, BytesWritten: compressed, Frames: 1})
	return compressed, nil
}

// decompress walks the concatenated frames of a stream, strictly in order,
// each fully before the next.
func (d *Driver) decompress(w io.Writer, r io.Reader, srcName, dstName string) (int64, error) {
	eng := d.cfg.Decompressor
	if eng == nil {
		return 0, fatal(CodeDecode, srcName, nil, "no decompression engine configured")
	}

	sess := eng.NewSession()
	defer sess.Close()
	inBuf := make([]byte, eng.RecommendedInputSize())
	outBuf := make([]byte, eng.RecommendedOutputSize())

	var total, frames int64
	for {
		n, err := io.ReadFull(r, inBuf[:magicSize])
		if n == 0 {
			if err != io.EOF {
				return total, fatal(CodeReadHeader, srcName, err, "read error: cannot read frame header")
			}
			break // clean end of stream at a frame boundary
		}
		if n < magicSize {
			return total, fatal(CodeReadHeader, srcName, err, "read error: cannot read frame header")
		}
		d.stats.IncCounter(stats.MetricBytesRead, magicSize)

		magic := peekMagic(inBuf[:magicSize])
		if dec, ok := d.classify(magic); ok {
			d.logger.Debug("legacy frame", zap.String("revision", dec.Name()))
			size, err := dec.Decode(w, r)
			total += size
			if err != nil {
				return total, fatal(CodeDecode, srcName, err, "decoding error")
			}
			d.stats.IncCounter(stats.MetricLegacyFrames, 1)
			d.stats.IncCounter(stats.MetricBytesWritten, size)
			frames++
			continue
		}

		// The magic bytes double as already-buffered frame input.
		size, err := d.decompressFrame(w, r, sess, inBuf, outBuf, magicSize, srcName, dstName)
		total += size
		if err != nil {
			return total, err
		}
		d.stats.IncCounter(stats.MetricFramesDecompressed, 1)
		frames++
	}

	d.display(2, "\rDecoded %d bytes\n", total)
	d.reportProgress(Progress{BytesWritten: total, Frames: frames})
	return total, nil
}

// decompressFrame runs the current-format sub-loop for a single frame.
// pending counts already-buffered-but-unconsumed bytes at inBuf[start:];
// they are never overwritten before the session has consumed them, and no
// read happens while any remain.
func (d *Driver) decompressFrame(w io.Writer, r io.Reader, sess codec.DecompressSession, inBuf, outBuf []byte, pending int, srcName, dstName string) (int64, error) {
	sess.Reset()

	var frameSize int64
	start := 0
	for {
		written, consumed, next, err := sess.Continue(outBuf, inBuf[start:start+pending])
		if err != nil {
			return frameSize, fatal(CodeDecode, srcName, err, "decoding error")
		}
		start += consumed
		pending -= consumed

		if written > 0 {
			if _, err := w.Write(outBuf[:written]); err != nil {
				return frameSize, fatal(CodeWriteDecoded, dstName, err, "write error: cannot write decoded block into %s", dstName)
			}
			frameSize += int64(written)
			d.stats.IncCounter(stats.MetricBytesWritten, int64(written))
			d.displayUpdate(2, "\rDecoded : %d MB...   ", frameSize>>20)
			d.reportProgress(Progress{BytesWritten: frameSize})
		}

		if next == 0 {
			return frameSize, nil
		}
		if pending > 0 {
			// The session can keep working on buffered bytes alone.
			continue
		}

		if next > len(inBuf) {
			return frameSize, fatal(CodeBlockTooLarge, srcName, nil, "block too large")
		}
		n, err := io.ReadFull(r, inBuf[:next])
		if n != next {
			return frameSize, fatal(CodeReadFrame, srcName, err, "read error: truncated frame")
		}
		d.stats.IncCounter(stats.MetricBytesRead, int64(next))
		start, pending = 0, next
	}
}

// readChunk fills buf as far as the source allows. n == 0 with a nil error
// means the input is exhausted.
func readChunk(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	switch err {
	case nil, io.EOF, io.ErrUnexpectedEOF:
		return n, nil
	default:
		return n, err
	}
}

func ratio(compressed, read int64) float64 {
	if read == 0 {
		return 0
	}
	return float64(compressed) / float64(read) * 100
}

func (d *Driver) display(level int, format string, args ...any) {
	if d.cfg.Verbosity >= level {
		fmt.Fprintf(d.console, format, args...)
	}
}

func (d *Driver) displayUpdate(level int, format string, args ...any) {
	if d.cfg.Verbosity < level {
		return
	}
	if d.cfg.Verbosity < 4 && time.Since(d.lastDisplay) < refreshInterval {
		return
	}
	d.lastDisplay = time.Now()
	fmt.Fprintf(d.console, format, args...)
}

func (d *Driver) reportProgress(p Progress) {
	if d.cfg.OnProgress != nil {
		d.cfg.OnProgress(p)
	}
}
