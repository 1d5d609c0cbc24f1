// Package legacy decodes frames written by older format revisions.
//
// Legacy frames share the block framing of the current format but predate its
// flags byte and content checksum: after the magic number comes a plain
// sequence of [4-byte little-endian payload length][payload] blocks, ended by
// a zero length. What the payload is differs per revision.
//
// Each decoder reads its exact frame bytes from the source and nothing more,
// so the bytes of any following frame stay in the stream for the caller.
package legacy

import (
	"errors"
	"io"
)

// Magic numbers of the known legacy revisions, little-endian.
const (
	MagicV01 uint32 = 0x1EB52901 // flate block payloads
	MagicV02 uint32 = 0x1EB52902 // s2 block payloads
)

const (
	blockHeaderSize = 4

	// maxEncodedBlock bounds a single block payload; larger headers mean a
	// corrupt or foreign stream.
	maxEncodedBlock = 1 << 20

	// maxDecodedBlock bounds what one block may expand to.
	maxDecodedBlock = 8 << 20
)

// Decoder errors shared by all revisions.
var (
	ErrBlockTooLarge = errors.New("legacy: block exceeds format limit")
	ErrTruncated     = errors.New("legacy: truncated frame")
)

// Decoder fully decodes one legacy frame whose magic number has already been
// read from src. It manages its own buffering and returns the decoded byte
// count.
type Decoder interface {
	// Name identifies the revision, e.g. "v0.1".
	Name() string

	// Decode reads one frame body from src and writes the decoded bytes
	// to dst.
	Decode(dst io.Writer, src io.Reader) (int64, error)
}

// Lookup returns the decoder for a legacy magic number, or false when the
// magic does not belong to a known legacy revision.
func Lookup(magic uint32) (Decoder, bool) {
	d, ok := decoders[magic]
	return d, ok
}

// IsLegacy reports whether magic identifies a legacy-format frame.
func IsLegacy(magic uint32) bool {
	_, ok := decoders[magic]
	return ok
}

var decoders = map[uint32]Decoder{
	MagicV01: flateDecoder{},
	MagicV02: s2Decoder{},
}
