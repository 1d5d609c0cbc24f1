// Package codec defines the incremental compression engine contract the file
// driver is written against.
//
// An engine hands out sessions: opaque incremental state machines that consume
// and produce unpredictable byte counts per call. The driver owns exactly one
// session per file operation and sizes its buffers from the engine's
// recommended sizes; engines in turn promise that a compression session fed a
// chunk of at most RecommendedInputSize, with at least RecommendedOutputSize
// of room, consumes the whole chunk in one call.
package codec

// Params carries the tunables handed to a compression session at init time.
type Params struct {
	// Level is the compression effort level. Valid range is engine-defined;
	// Init rejects out-of-range values.
	Level int

	// ContentSize is the total uncompressed size when known up front,
	// or -1 when the source size cannot be determined (e.g. stdin).
	// Engines may record it in the frame as a hint for decoders.
	ContentSize int64
}

// CompressEngine creates compression sessions and reports buffer sizing.
type CompressEngine interface {
	// RecommendedInputSize returns the chunk size the driver should feed
	// per Continue call.
	RecommendedInputSize() int

	// RecommendedOutputSize returns the minimum output buffer capacity
	// that guarantees Continue and End never need a second call.
	RecommendedOutputSize() int

	// NewSession creates a fresh compression session. A session produces
	// exactly one frame and must not be reused for a second one.
	NewSession() CompressSession
}

// CompressSession is an incremental encoder for a single frame.
// Sessions are not safe for concurrent use.
type CompressSession interface {
	// Init prepares the session. It must be called exactly once, before
	// any Continue. It fails on invalid Params.
	Init(p Params) error

	// Continue feeds src to the encoder and writes frame bytes into dst.
	// It returns the number of bytes written to dst and the number of
	// src bytes consumed. With recommended buffer sizes, consumed always
	// equals len(src); the driver treats anything less as a fatal
	// internal-consistency violation.
	Continue(dst, src []byte) (written, consumed int, err error)

	// End flushes trailing state and writes the frame terminator into
	// dst. remaining is the number of bytes that did not fit; with a
	// recommended-size dst it is always 0. End must be called exactly
	// once, after the last Continue.
	End(dst []byte) (written, remaining int, err error)

	// Close releases session resources. The session must not be used
	// afterwards.
	Close() error
}

// DecompressEngine creates decompression sessions and reports buffer sizing.
type DecompressEngine interface {
	// RecommendedInputSize returns the input buffer capacity that is
	// guaranteed to satisfy any size a session requests.
	RecommendedInputSize() int

	// RecommendedOutputSize returns the output buffer capacity that is
	// guaranteed to hold whatever a single Continue call produces.
	RecommendedOutputSize() int

	// NewSession creates a decompression session. One session may decode
	// any number of frames in sequence; Reset starts each one clean.
	NewSession() DecompressSession
}

// DecompressSession is an incremental decoder. It is reused across the
// frames of a stream but must be Reset at each frame start.
// Sessions are not safe for concurrent use.
type DecompressSession interface {
	// Reset clears all per-frame state so the next Continue call starts
	// a new frame at its magic number.
	Reset()

	// Continue decodes from src into dst. It returns the bytes written
	// to dst, the src bytes consumed, and next: the number of additional
	// input bytes the session wants before it can make further progress.
	// next == 0 means the frame is fully decoded. next never exceeds the
	// engine's RecommendedInputSize.
	Continue(dst, src []byte) (written, consumed, next int, err error)

	// Close releases session resources.
	Close() error
}
