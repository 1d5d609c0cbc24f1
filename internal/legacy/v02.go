package legacy

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/s2"
)

// Compile-time check that s2Decoder implements Decoder.
var _ Decoder = s2Decoder{}

// s2Decoder handles v0.2 frames: each block payload is an s2 block.
type s2Decoder struct{}

func (s2Decoder) Name() string { return "v0.2" }

func (s2Decoder) Decode(dst io.Writer, src io.Reader) (int64, error) {
	var (
		total   int64
		hdr     [blockHeaderSize]byte
		payload []byte
		decoded []byte
	)

	for {
		if _, err := io.ReadFull(src, hdr[:]); err != nil {
			return total, fmt.Errorf("legacy v0.2: reading block header: %w", truncated(err))
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
			return total, fmt.Errorf("legacy v0.2: reading block: %w", truncated(err))
		}

		size, err := s2.DecodedLen(payload)
		if err != nil {
			return total, fmt.Errorf("legacy v0.2: decoding block: %w", err)
		}
		if size > maxDecodedBlock {
			return total, ErrBlockTooLarge
		}
		decoded, err = s2.Decode(decoded[:cap(decoded)], payload)
		if err != nil {
			return total, fmt.Errorf("legacy v0.2: decoding block: %w", err)
		}
		if _, err := dst.Write(decoded); err != nil {
			return total, err
		}
		total += int64(len(decoded))
	}
}
