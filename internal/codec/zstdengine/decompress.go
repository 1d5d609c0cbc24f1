package zstdengine

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

// decodeState tracks what the next bytes of the frame mean.
type decodeState int

const (
	stateMagic decodeState = iota
	stateFlags
	stateContentSize
	stateBlockHeader
	stateBlockBody
	stateChecksum
	stateDone
)

// decompressSession is a push decoder. Input arrives in caller-sized pieces;
// the session accumulates bytes in hold until the current frame element is
// complete, acts on it, and reports exactly how many more bytes it wants.
// hold never grows past one block payload, which bounds session memory.
type decompressSession struct {
	dec    *zstd.Decoder
	decErr error
	xxh    *xxhash.Digest

	state       decodeState
	need        int
	hold        []byte
	stored      bool
	contentSize int64
	produced    int64
}

func newDecompressSession() *decompressSession {
	s := &decompressSession{xxh: xxhash.New()}
	s.dec, s.decErr = zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(blockSize),
	)
	s.Reset()
	return s
}

// Reset clears all per-frame state; the next Continue expects a magic number.
func (s *decompressSession) Reset() {
	s.state = stateMagic
	s.need = 4
	s.hold = s.hold[:0]
	s.stored = false
	s.contentSize = -1
	s.produced = 0
	s.xxh.Reset()
}

// Continue consumes frame bytes from src, producing at most one decoded
// block into dst per call.
func (s *decompressSession) Continue(dst, src []byte) (written, consumed, next int, err error) {
	if s.decErr != nil {
		return 0, 0, 0, fmt.Errorf("zstdengine: creating decoder: %w", s.decErr)
	}

	for {
		if len(s.hold) < s.need {
			take := s.need - len(s.hold)
			if avail := len(src) - consumed; take > avail {
				take = avail
			}
			s.hold = append(s.hold, src[consumed:consumed+take]...)
			consumed += take
			if len(s.hold) < s.need {
				return written, consumed, s.need - len(s.hold), nil
			}
		}

		switch s.state {
		case stateMagic:
			if binary.LittleEndian.Uint32(s.hold) != FrameMagic {
				return written, consumed, 0, ErrBadMagic
			}
			s.advance(stateFlags, 1)

		case stateFlags:
			flags := s.hold[0]
			if flags&^byte(flagContentSize) != 0 {
				// Reserved bits must be zero in this format revision.
				return written, consumed, 0, ErrHeader
			}
			if flags&flagContentSize != 0 {
				s.advance(stateContentSize, 8)
			} else {
				s.advance(stateBlockHeader, blockHeaderSize)
			}

		case stateContentSize:
			size := binary.LittleEndian.Uint64(s.hold)
			if size > 1<<62 {
				return written, consumed, 0, ErrHeader
			}
			s.contentSize = int64(size)
			s.advance(stateBlockHeader, blockHeaderSize)

		case stateBlockHeader:
			hdr := binary.LittleEndian.Uint32(s.hold)
			if hdr == 0 {
				s.advance(stateChecksum, checksumSize)
				continue
			}
			s.stored = hdr&storedBit != 0
			n := int(hdr &^ storedBit)
			if n > blockSize {
				return written, consumed, 0, ErrBlockTooLarge
			}
			s.advance(stateBlockBody, n)

		case stateBlockBody:
			n, err := s.decodeBlock(dst[written:])
			if err != nil {
				return written, consumed, 0, err
			}
			written += n
			s.advance(stateBlockHeader, blockHeaderSize)
			return written, consumed, blockHeaderSize, nil

		case stateChecksum:
			want := binary.LittleEndian.Uint32(s.hold)
			if got := uint32(s.xxh.Sum64()); got != want {
				return written, consumed, 0, ErrChecksum
			}
			if s.contentSize >= 0 && s.produced != s.contentSize {
				return written, consumed, 0, ErrContentSize
			}
			s.advance(stateDone, 0)
			return written, consumed, 0, nil

		case stateDone:
			return written, consumed, 0, nil
		}
	}
}

// Close releases the block decoder.
func (s *decompressSession) Close() error {
	if s.dec != nil {
		s.dec.Close()
		s.dec = nil
	}
	return nil
}

func (s *decompressSession) advance(state decodeState, need int) {
	s.state = state
	s.need = need
	s.hold = s.hold[:0]
}

// decodeBlock expands the payload buffered in hold into dst.
func (s *decompressSession) decodeBlock(dst []byte) (int, error) {
	var n int
	if s.stored {
		if len(s.hold) > len(dst) {
			return 0, ErrShortBuffer
		}
		n = copy(dst, s.hold)
	} else {
		// Appending to a zero-length, capacity-capped slice keeps the
		// decode in place when it fits, and detectably spills when not.
		out, err := s.dec.DecodeAll(s.hold, dst[0:0:len(dst)])
		if err != nil {
			return 0, fmt.Errorf("zstdengine: decoding block: %w", err)
		}
		if len(out) > len(dst) {
			return 0, ErrShortBuffer
		}
		n = len(out)
	}
	s.xxh.Write(dst[:n])
	s.produced += int64(n)
	return n, nil
}
