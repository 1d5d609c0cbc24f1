// Package zstdengine implements the incremental codec engine contract on top
// of zstd block compression.
//
// Frame layout: a 4-byte little-endian magic number, a one-byte flags field
// (bit 0: an 8-byte little-endian content size follows), then a sequence of
// blocks. Each block is a 4-byte little-endian header whose low 31 bits are
// the payload length and whose high bit marks a stored (uncompressed)
// payload, followed by the payload itself. A zero header terminates the block
// sequence and is followed by a 4-byte content checksum: the low 32 bits of
// the xxhash64 of the uncompressed content.
package zstdengine

import (
	"errors"

	"github.com/baletool/bale/internal/codec"
)

// FrameMagic identifies a current-format frame. It is the first 4 bytes of
// every frame, little-endian.
const FrameMagic uint32 = 0x1EB52950

const (
	// blockSize is the maximum uncompressed payload of a single block.
	blockSize = 128 << 10

	blockHeaderSize = 4
	checksumSize    = 4

	// frameHeaderMax is magic + flags + optional content size.
	frameHeaderMax = 4 + 1 + 8

	flagContentSize = 0x01
	storedBit       = uint32(1) << 31
)

// Compression effort levels accepted by Init.
const (
	MinLevel     = 1
	MaxLevel     = 22
	DefaultLevel = 3
)

// Engine-reported error conditions.
var (
	ErrBadMagic      = errors.New("zstdengine: input is not a bale frame")
	ErrHeader        = errors.New("zstdengine: unsupported frame header")
	ErrBlockTooLarge = errors.New("zstdengine: block exceeds format limit")
	ErrChecksum      = errors.New("zstdengine: content checksum mismatch")
	ErrContentSize   = errors.New("zstdengine: content size does not match frame header")
	ErrShortBuffer   = errors.New("zstdengine: output buffer smaller than recommended size")
)

// Compile-time checks against the engine contract.
var (
	_ codec.CompressEngine   = (*Compressor)(nil)
	_ codec.DecompressEngine = (*Decompressor)(nil)
)

// Compressor hands out frame encoding sessions.
type Compressor struct{}

// NewCompressor returns the compression side of the engine.
func NewCompressor() *Compressor {
	return &Compressor{}
}

// RecommendedInputSize returns the per-call feed size: one full block.
func (c *Compressor) RecommendedInputSize() int {
	return blockSize
}

// RecommendedOutputSize returns a capacity that holds the frame header, one
// block header, and a worst-case (stored) block payload.
func (c *Compressor) RecommendedOutputSize() int {
	return frameHeaderMax + blockHeaderSize + blockSize
}

// NewSession creates a single-frame encoding session.
func (c *Compressor) NewSession() codec.CompressSession {
	return newCompressSession()
}

// Decompressor hands out frame decoding sessions.
type Decompressor struct{}

// NewDecompressor returns the decompression side of the engine.
func NewDecompressor() *Decompressor {
	return &Decompressor{}
}

// RecommendedInputSize returns a capacity that satisfies any size a session
// can request; the largest request is one block payload.
func (d *Decompressor) RecommendedInputSize() int {
	return blockSize
}

// RecommendedOutputSize returns a capacity that holds one decoded block, the
// most a single Continue call produces.
func (d *Decompressor) RecommendedOutputSize() int {
	return blockSize
}

// NewSession creates a decoding session, reusable across frames via Reset.
func (d *Decompressor) NewSession() codec.DecompressSession {
	return newDecompressSession()
}
