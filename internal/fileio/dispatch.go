package fileio

import (
	"encoding/binary"

	"github.com/baletool/bale/internal/legacy"
)

// peekMagic interprets the first 4 bytes of a frame as its little-endian
// magic number.
func peekMagic(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

// classify routes a frame by its magic number. Magics in the enumerated
// legacy set get their dedicated decoder; everything else, recognized or not,
// goes to the current-format session, which rejects garbage itself. That
// keeps forward-compatible parameter variations of the current format
// working without the dispatcher knowing about them.
func (d *Driver) classify(magic uint32) (legacy.Decoder, bool) {
	return d.lookup(magic)
}
