package zstdengine

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/baletool/bale/internal/codec"
)

// compressSession encodes exactly one frame. Blocks are compressed
// independently with zstd; a block that zstd cannot shrink is stored raw so
// the encoded payload never exceeds the uncompressed block size.
type compressSession struct {
	enc     *zstd.Encoder
	xxh     *xxhash.Digest
	scratch []byte
	params  codec.Params
	inited  bool
	started bool
	ended   bool
}

func newCompressSession() *compressSession {
	return &compressSession{xxh: xxhash.New()}
}

// Init validates params and sets up the block encoder.
func (s *compressSession) Init(p codec.Params) error {
	if s.inited {
		return errors.New("zstdengine: session already initialized")
	}
	if p.Level < MinLevel || p.Level > MaxLevel {
		return fmt.Errorf("zstdengine: compression level %d out of range [%d,%d]", p.Level, MinLevel, MaxLevel)
	}
	if p.ContentSize < -1 {
		return fmt.Errorf("zstdengine: invalid content size %d", p.ContentSize)
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(p.Level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return fmt.Errorf("zstdengine: creating encoder: %w", err)
	}

	s.enc = enc
	s.params = p
	s.inited = true
	return nil
}

// Continue encodes src into dst as a sequence of blocks, emitting the frame
// header first if this is the first call. It stops early, reporting a partial
// consume, only when dst is smaller than the recommended output size.
func (s *compressSession) Continue(dst, src []byte) (written, consumed int, err error) {
	if !s.inited {
		return 0, 0, errors.New("zstdengine: session not initialized")
	}
	if s.ended {
		return 0, 0, errors.New("zstdengine: session already ended")
	}

	if !s.started {
		n, err := s.writeFrameHeader(dst)
		if err != nil {
			return 0, 0, err
		}
		written = n
		s.started = true
	}

	for consumed < len(src) {
		chunk := src[consumed:]
		if len(chunk) > blockSize {
			chunk = chunk[:blockSize]
		}

		comp := s.enc.EncodeAll(chunk, s.scratch[:0])
		s.scratch = comp

		payload := comp
		hdr := uint32(len(comp))
		if len(comp) >= len(chunk) {
			payload = chunk
			hdr = uint32(len(chunk)) | storedBit
		}

		if len(dst)-written < blockHeaderSize+len(payload) {
			break
		}
		binary.LittleEndian.PutUint32(dst[written:], hdr)
		written += blockHeaderSize
		written += copy(dst[written:], payload)

		s.xxh.Write(chunk)
		consumed += len(chunk)
	}

	return written, consumed, nil
}

// End writes the zero block terminator and the content checksum. A non-zero
// remaining means dst had no room for them, which cannot happen with a
// recommended-size buffer.
func (s *compressSession) End(dst []byte) (written, remaining int, err error) {
	if !s.inited {
		return 0, 0, errors.New("zstdengine: session not initialized")
	}
	if s.ended {
		return 0, 0, errors.New("zstdengine: session already ended")
	}

	if !s.started {
		// Empty input: the frame still needs its header.
		n, err := s.writeFrameHeader(dst)
		if err != nil {
			return 0, 0, err
		}
		written = n
		s.started = true
	}

	need := blockHeaderSize + checksumSize
	if len(dst)-written < need {
		return written, need, nil
	}
	binary.LittleEndian.PutUint32(dst[written:], 0)
	written += blockHeaderSize
	binary.LittleEndian.PutUint32(dst[written:], uint32(s.xxh.Sum64()))
	written += checksumSize

	s.ended = true
	return written, 0, nil
}

// Close releases the block encoder.
func (s *compressSession) Close() error {
	if s.enc == nil {
		return nil
	}
	err := s.enc.Close()
	s.enc = nil
	return err
}

func (s *compressSession) writeFrameHeader(dst []byte) (int, error) {
	var flags byte
	n := 4 + 1
	if s.params.ContentSize >= 0 {
		flags |= flagContentSize
		n += 8
	}
	if len(dst) < n {
		return 0, ErrShortBuffer
	}

	binary.LittleEndian.PutUint32(dst, FrameMagic)
	dst[4] = flags
	if flags&flagContentSize != 0 {
		binary.LittleEndian.PutUint64(dst[5:], uint64(s.params.ContentSize))
	}
	return n, nil
}
