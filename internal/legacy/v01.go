package legacy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// Compile-time check that flateDecoder implements Decoder.
var _ Decoder = flateDecoder{}

// flateDecoder handles v0.1 frames: each block payload is an independent
// flate stream.
type flateDecoder struct{}

func (flateDecoder) Name() string { return "v0.1" }

func (flateDecoder) Decode(dst io.Writer, src io.Reader) (int64, error) {
	var (
		total   int64
		hdr     [blockHeaderSize]byte
		payload []byte
	)

	for {
		if _, err := io.ReadFull(src, hdr[:]); err != nil {
			return total, fmt.Errorf("legacy v0.1: reading block header: %w", truncated(err))
		}
		n := binary.LittleEndian.Uint32(hdr[:])
		if n == 0 {
			return total, nil
		}
		if n > maxEncodedBlock {
			return total, ErrBlockTooLarge
		}

		if int(n) > cap(payload) {
			payload = make([]byte, n)
		}
		payload = payload[:n]
		if _, err := io.ReadFull(src, payload); err != nil {
			return total, fmt.Errorf("legacy v0.1: reading block: %w", truncated(err))
		}

		fr := flate.NewReader(bytes.NewReader(payload))
		written, err := io.Copy(dst, io.LimitReader(fr, maxDecodedBlock+1))
		if cerr := fr.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return total, fmt.Errorf("legacy v0.1: decoding block: %w", err)
		}
		if written > maxDecodedBlock {
			return total, ErrBlockTooLarge
		}
		total += written
	}
}

// truncated maps the io.ReadFull EOF pair onto ErrTruncated; any EOF inside a
// legacy frame means the frame was cut short.
func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return err
}
