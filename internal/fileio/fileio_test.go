package fileio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/klauspost/compress/s2"

	"github.com/baletool/bale/internal/codec"
	"github.com/baletool/bale/internal/codec/zstdengine"
	"github.com/baletool/bale/internal/legacy"
)

// realConfig wires the built-in engine, the way the library facade does.
func realConfig() Config {
	return Config{
		Compressor:   zstdengine.NewCompressor(),
		Decompressor: zstdengine.NewDecompressor(),
		Level:        zstdengine.DefaultLevel,
	}
}

func compressBytes(t *testing.T, d *Driver, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	if _, err := d.Compress(&buf, bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Compress() error = %v", err)
	}
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	blockSize := zstdengine.NewCompressor().RecommendedInputSize()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"one byte", []byte{7}},
		{"short text", []byte("hello, bale")},
		{"exactly one buffer", bytes.Repeat([]byte{42}, blockSize)},
		{"two buffers", bytes.Repeat([]byte("ab"), blockSize)},
		{"hundred buffers", bytes.Repeat([]byte("cdef"), blockSize*100/4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(realConfig())
			frame := compressBytes(t, d, tt.data)

			var out bytes.Buffer
			n, err := d.Decompress(&out, bytes.NewReader(frame))
			if err != nil {
				t.Fatalf("Decompress() error = %v", err)
			}
			if n != int64(len(tt.data)) {
				t.Errorf("Decompress() n = %d, want %d", n, len(tt.data))
			}
			if !bytes.Equal(out.Bytes(), tt.data) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", out.Len(), len(tt.data))
			}
		})
	}
}

func TestConcatenatedFrames(t *testing.T) {
	d := New(realConfig())
	first := []byte("first frame payload")
	second := bytes.Repeat([]byte("second frame payload "), 1000)

	stream := append(compressBytes(t, d, first), compressBytes(t, d, second)...)

	rec := newRecordingStats()
	cfg := realConfig()
	cfg.Stats = rec
	d2 := New(cfg)

	var out bytes.Buffer
	n, err := d2.Decompress(&out, bytes.NewReader(stream))
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}

	want := append(append([]byte{}, first...), second...)
	if !bytes.Equal(out.Bytes(), want) {
		t.Error("concatenated decode mismatch")
	}
	if n != int64(len(want)) {
		t.Errorf("Decompress() n = %d, want %d", n, len(want))
	}
	if got := rec.counter("bale_frames_decompressed_total"); got != 2 {
		t.Errorf("frames decompressed = %d, want 2", got)
	}
}

func TestTruncatedTrailingBytes(t *testing.T) {
	d := New(realConfig())
	frame := compressBytes(t, d, []byte("complete frame"))

	for _, trailing := range []int{1, 2, 3} {
		stream := append(append([]byte{}, frame...), frame[:trailing]...)
		var out bytes.Buffer
		_, err := d.Decompress(&out, bytes.NewReader(stream))
		var fe *Error
		if !errors.As(err, &fe) || fe.Code != CodeReadHeader {
			t.Errorf("%d trailing bytes: error = %v, want code %d", trailing, err, CodeReadHeader)
		}
	}
}

func TestGarbageMagicFailsInCurrentPath(t *testing.T) {
	d := New(realConfig())
	var out bytes.Buffer
	_, err := d.Decompress(&out, bytes.NewReader([]byte("garbage stream content")))
	var fe *Error
	if !errors.As(err, &fe) || fe.Code != CodeDecode {
		t.Errorf("Decompress() error = %v, want code %d", err, CodeDecode)
	}
}

func TestLegacyFrameMixedStream(t *testing.T) {
	// A v0.2 legacy frame followed by a current-format frame must decode
	// to the concatenation, with the legacy decoder used exactly once.
	legacyData := []byte("legacy frame payload")
	currentData := []byte("current frame payload")

	var stream bytes.Buffer
	binary.Write(&stream, binary.LittleEndian, legacy.MagicV02)
	block := s2.Encode(nil, legacyData)
	binary.Write(&stream, binary.LittleEndian, uint32(len(block)))
	stream.Write(block)
	stream.Write([]byte{0, 0, 0, 0})

	d := New(realConfig())
	stream.Write(compressBytes(t, d, currentData))

	rec := newRecordingStats()
	calls := 0
	cfg := realConfig()
	cfg.Stats = rec
	cfg.LegacyLookup = func(magic uint32) (legacy.Decoder, bool) {
		dec, ok := legacy.Lookup(magic)
		if ok {
			calls++
		}
		return dec, ok
	}
	d2 := New(cfg)

	var out bytes.Buffer
	if _, err := d2.Decompress(&out, &stream); err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}

	want := append(append([]byte{}, legacyData...), currentData...)
	if !bytes.Equal(out.Bytes(), want) {
		t.Error("mixed stream decode mismatch")
	}
	if calls != 1 {
		t.Errorf("legacy dispatches = %d, want 1", calls)
	}
	if got := rec.counter("bale_legacy_frames_total"); got != 1 {
		t.Errorf("legacy frame counter = %d, want 1", got)
	}
	if got := rec.counter("bale_frames_decompressed_total"); got != 1 {
		t.Errorf("current frame counter = %d, want 1", got)
	}
}

// The carry-over rule: while unconsumed bytes remain buffered, the sub-loop
// must work on them alone and never touch the source.
func TestCarryOverAvoidsSuperfluousReads(t *testing.T) {
	eng := &stubDecompressEngine{
		inSize:  64,
		outSize: 64,
		script: []scriptStep{
			{produce: "ab", consume: 2, next: 1},
			{produce: "cd", consume: 2, next: 0},
		},
	}
	cfg := Config{Decompressor: eng}
	d := New(cfg)

	src := &countingReader{r: bytes.NewReader([]byte{1, 2, 3, 4})}
	var out bytes.Buffer
	n, err := d.Decompress(&out, src)
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if out.String() != "abcd" {
		t.Errorf("output = %q, want %q", out.String(), "abcd")
	}
	if n != 4 {
		t.Errorf("Decompress() n = %d, want 4", n)
	}
	// One read for the magic peek; the second step ran on buffered bytes.
	if src.reads != 1 {
		t.Errorf("source reads = %d, want 1", src.reads)
	}
	if eng.session.resets != 1 {
		t.Errorf("session resets = %d, want 1", eng.session.resets)
	}
}

func TestRequestedBlockTooLarge(t *testing.T) {
	eng := &stubDecompressEngine{
		inSize:  64,
		outSize: 64,
		script: []scriptStep{
			{consume: 4, next: 65},
		},
	}
	d := New(Config{Decompressor: eng})

	var out bytes.Buffer
	_, err := d.Decompress(&out, bytes.NewReader([]byte{1, 2, 3, 4, 5}))
	var fe *Error
	if !errors.As(err, &fe) || fe.Code != CodeBlockTooLarge {
		t.Errorf("Decompress() error = %v, want code %d", err, CodeBlockTooLarge)
	}
}

func TestTruncatedFrameRead(t *testing.T) {
	eng := &stubDecompressEngine{
		inSize:  64,
		outSize: 64,
		script: []scriptStep{
			{consume: 4, next: 32},
		},
	}
	d := New(Config{Decompressor: eng})

	// Only 4 magic bytes plus 2 of the 32 requested.
	var out bytes.Buffer
	_, err := d.Decompress(&out, bytes.NewReader([]byte{1, 2, 3, 4, 5, 6}))
	var fe *Error
	if !errors.As(err, &fe) || fe.Code != CodeReadFrame {
		t.Errorf("Decompress() error = %v, want code %d", err, CodeReadFrame)
	}
}

func TestDecodeErrorCode(t *testing.T) {
	eng := &stubDecompressEngine{
		inSize:  64,
		outSize: 64,
		script: []scriptStep{
			{consume: 4, err: errors.New("corrupt")},
		},
	}
	d := New(Config{Decompressor: eng})

	var out bytes.Buffer
	_, err := d.Decompress(&out, bytes.NewReader([]byte{1, 2, 3, 4}))
	var fe *Error
	if !errors.As(err, &fe) || fe.Code != CodeDecode {
		t.Errorf("Decompress() error = %v, want code %d", err, CodeDecode)
	}
}

func TestDecodedShortWrite(t *testing.T) {
	d := New(realConfig())
	frame := compressBytes(t, d, []byte("write failure payload"))

	wantErr := errors.New("disk full")
	_, err := d.Decompress(&failingWriter{err: wantErr}, bytes.NewReader(frame))
	var fe *Error
	if !errors.As(err, &fe) || fe.Code != CodeWriteDecoded {
		t.Errorf("Decompress() error = %v, want code %d", err, CodeWriteDecoded)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error chain lost the cause: %v", err)
	}
}

func TestChunkNotFullyConsumed(t *testing.T) {
	eng := &stubCompressEngine{inSize: 64, outSize: 128, consumeShort: true}
	d := New(Config{Compressor: eng, Level: 1})

	var out bytes.Buffer
	_, err := d.Compress(&out, bytes.NewReader(bytes.Repeat([]byte{1}, 10)), 10)
	var fe *Error
	if !errors.As(err, &fe) || fe.Code != CodeChunkNotConsumed {
		t.Errorf("Compress() error = %v, want code %d", err, CodeChunkNotConsumed)
	}
}

func TestEndFlushMustBeOneShot(t *testing.T) {
	eng := &stubCompressEngine{inSize: 64, outSize: 128, endRemaining: 5}
	d := New(Config{Compressor: eng, Level: 1})

	var out bytes.Buffer
	_, err := d.Compress(&out, bytes.NewReader([]byte("tail")), 4)
	var fe *Error
	if !errors.As(err, &fe) || fe.Code != CodeFlushEnd {
		t.Errorf("Compress() error = %v, want code %d", err, CodeFlushEnd)
	}
}

func TestCompressInitFailure(t *testing.T) {
	// Engine rejects out-of-range levels at init.
	cfg := realConfig()
	cfg.Level = 999
	d := New(cfg)

	var out bytes.Buffer
	_, err := d.Compress(&out, bytes.NewReader([]byte("x")), 1)
	var fe *Error
	if !errors.As(err, &fe) || fe.Code != CodeCompressInit {
		t.Errorf("Compress() error = %v, want code %d", err, CodeCompressInit)
	}
}

func TestCompressedShortWrite(t *testing.T) {
	d := New(realConfig())
	wantErr := errors.New("pipe closed")
	_, err := d.Compress(&failingWriter{err: wantErr}, bytes.NewReader(bytes.Repeat([]byte{1}, 100)), 100)
	var fe *Error
	if !errors.As(err, &fe) || (fe.Code != CodeWriteBlock && fe.Code != CodeWriteEnd) {
		t.Errorf("Compress() error = %v, want a write code", err)
	}
}

func TestProgressCallback(t *testing.T) {
	var mu sync.Mutex
	var last Progress
	cfg := realConfig()
	cfg.OnProgress = func(p Progress) {
		mu.Lock()
		last = p
		mu.Unlock()
	}
	d := New(cfg)

	data := bytes.Repeat([]byte("progress"), 8<<10)
	compressBytes(t, d, data)

	mu.Lock()
	defer mu.Unlock()
	if last.BytesRead != int64(len(data)) {
		t.Errorf("final BytesRead = %d, want %d", last.BytesRead, len(data))
	}
	if last.Frames != 1 {
		t.Errorf("final Frames = %d, want 1", last.Frames)
	}
}

// --- test doubles ---

type scriptStep struct {
	produce string
	consume int
	next    int
	err     error
}

// stubDecompressEngine replays a fixed script of session responses.
type stubDecompressEngine struct {
	inSize, outSize int
	script          []scriptStep
	session         *stubDecompressSession
}

func (e *stubDecompressEngine) RecommendedInputSize() int  { return e.inSize }
func (e *stubDecompressEngine) RecommendedOutputSize() int { return e.outSize }

func (e *stubDecompressEngine) NewSession() codec.DecompressSession {
	e.session = &stubDecompressSession{script: e.script}
	return e.session
}

type stubDecompressSession struct {
	script []scriptStep
	step   int
	resets int
}

func (s *stubDecompressSession) Reset() { s.resets++ }

func (s *stubDecompressSession) Continue(dst, src []byte) (int, int, int, error) {
	if s.step >= len(s.script) {
		return 0, 0, 0, errors.New("stub: script exhausted")
	}
	st := s.script[s.step]
	s.step++
	if st.err != nil {
		return 0, 0, 0, st.err
	}
	if st.consume > len(src) {
		return 0, 0, 0, errors.New("stub: script consumes more than buffered")
	}
	n := copy(dst, st.produce)
	return n, st.consume, st.next, nil
}

func (s *stubDecompressSession) Close() error { return nil }

// stubCompressEngine is a passthrough encoder with failure knobs.
type stubCompressEngine struct {
	inSize, outSize int
	consumeShort    bool
	endRemaining    int
}

func (e *stubCompressEngine) RecommendedInputSize() int  { return e.inSize }
func (e *stubCompressEngine) RecommendedOutputSize() int { return e.outSize }

func (e *stubCompressEngine) NewSession() codec.CompressSession {
	return &stubCompressSession{eng: e}
}

type stubCompressSession struct {
	eng *stubCompressEngine
}

func (s *stubCompressSession) Init(p codec.Params) error { return nil }

func (s *stubCompressSession) Continue(dst, src []byte) (int, int, error) {
	consumed := len(src)
	if s.eng.consumeShort && consumed > 0 {
		consumed--
	}
	n := copy(dst, src[:consumed])
	return n, consumed, nil
}

func (s *stubCompressSession) End(dst []byte) (int, int, error) {
	return 0, s.eng.endRemaining, nil
}

func (s *stubCompressSession) Close() error { return nil }

// countingReader counts reads that returned data.
type countingReader struct {
	r     io.Reader
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.reads++
	}
	return n, err
}

type failingWriter struct {
	err error
}

func (w *failingWriter) Write(p []byte) (int, error) { return 0, w.err }

// recordingStats captures counters for assertions.
type recordingStats struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newRecordingStats() *recordingStats {
	return &recordingStats{counters: make(map[string]int64)}
}

func (r *recordingStats) IncCounter(name string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += delta
}

func (r *recordingStats) SetGauge(string, int64)           {}
func (r *recordingStats) ObserveHistogram(string, float64) {}

func (r *recordingStats) counter(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counters[name]
}
