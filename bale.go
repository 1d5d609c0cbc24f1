// Package bale provides streaming file compression into self-delimiting
// framed streams, in constant memory.
//
// Example usage:
//
//	client, err := bale.New(
//	    bale.WithLevel(9),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	n, err := client.CompressFile("data.bin.bale", "data.bin")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("wrote %d bytes\n", n)
//
// A compressed stream is a sequence of one or more frames, each opening with
// a 4-byte magic number. Decompression handles concatenated frames and
// streams mixing current-format and legacy-format frames.
package bale

import (
	"errors"
	"io"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/baletool/bale/internal/fileio"
)

// Sentinel errors for well-defined error conditions.
var (
	// ErrClosed indicates the client has been closed.
	ErrClosed = errors.New("bale: client closed")

	// ErrNoEngine indicates no codec engine is configured.
	ErrNoEngine = errors.New("bale: no codec engine configured")
)

// Sentinel endpoint names accepted by the file operations.
const (
	Stdin  = fileio.StdinMark
	Stdout = fileio.StdoutMark
	Null   = fileio.NullMark
)

// Client runs compression and decompression operations. Operations on one
// Client may run sequentially; concurrent callers should use separate
// Clients so progress output does not interleave.
type Client struct {
	opts   options
	closed atomic.Bool
}

// New creates a new Client with the given options.
// If no options are provided, sensible defaults are used: the built-in
// engine, default effort level, silent console.
func New(opts ...Option) (*Client, error) {
	cfg := defaultOptions()
	for _, opt := range opts {
		opt.apply(&cfg)
	}

	if cfg.compressor == nil && cfg.decompressor == nil {
		return nil, ErrNoEngine
	}

	c := &Client{opts: cfg}
	cfg.logger.Debug("client initialized",
		zap.Int("level", cfg.level),
		zap.Int("verbosity", cfg.verbosity),
		zap.Bool("overwrite", cfg.overwrite),
	)
	return c, nil
}

// CompressFile compresses the named source file into the named destination,
// producing exactly one frame, and returns the compressed byte count.
// The names Stdin, Stdout and Null are understood as sentinels.
func (c *Client) CompressFile(dstName, srcName string) (int64, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	return c.driver().CompressFile(dstName, srcName)
}

// DecompressFile decodes every frame of the named source into the named
// destination and returns the decompressed byte count.
func (c *Client) DecompressFile(dstName, srcName string) (int64, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	return c.driver().DecompressFile(dstName, srcName)
}

// Compress compresses src into dst as one frame. contentSize is the total
// source size when known up front, or -1.
func (c *Client) Compress(dst io.Writer, src io.Reader, contentSize int64) (int64, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	return c.driver().Compress(dst, src, contentSize)
}

// Decompress decodes every frame of src into dst.
func (c *Client) Decompress(dst io.Writer, src io.Reader) (int64, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}
	return c.driver().Decompress(dst, src)
}

// Close releases the client. After Close, the client should not be used.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return nil
}

// driver assembles a fresh driver per operation; buffers, sessions and the
// progress-throttling clock stay exclusive to that invocation.
func (c *Client) driver() *fileio.Driver {
	return fileio.New(fileio.Config{
		Compressor:   c.opts.compressor,
		Decompressor: c.opts.decompressor,
		Level:        c.opts.level,
		Overwrite:    c.opts.overwrite,
		Verbosity:    c.opts.verbosity,
		Console:      c.opts.console,
		PromptIn:     c.opts.promptIn,
		OnProgress:   c.opts.onProgress,
		Stats:        c.opts.stats,
		Logger:       c.opts.logger,
	})
}
