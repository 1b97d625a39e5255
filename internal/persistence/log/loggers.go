package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"mk48.io/internal/sim/world"
)

// File name layouts of a segment's start time.
const (
	hourLayout   = "2006-01-02-15"
	minuteLayout = "2006-01-02-1504"
)

// Writer appends JSON lines to zstd-compressed segment files under dir, named
// <prefix>-<segment start>.jsonl.zst. Segments start on multiples of the
// rotation period in UTC; the default period is one hour.
type Writer struct {
	dir    string
	prefix string
	every  time.Duration
	clock  func() time.Time
	level  zstd.EncoderLevel

	mu      sync.Mutex
	seg     *segment
	entries uint64
}

type Option func(*Writer)

// WithClock replaces time.Now as the source of segment times.
func WithClock(clock func() time.Time) Option {
	return func(w *Writer) { w.clock = clock }
}

// WithRotation sets the segment period. Periods are rounded down to whole
// minutes, with a one minute floor.
func WithRotation(every time.Duration) Option {
	return func(w *Writer) {
		every = every.Truncate(time.Minute)
		if every < time.Minute {
			every = time.Minute
		}
		w.every = every
	}
}

func WithLevel(level zstd.EncoderLevel) Option {
	return func(w *Writer) { w.level = level }
}

func NewWriter(dir, prefix string, opts ...Option) *Writer {
	w := &Writer{
		dir:    dir,
		prefix: prefix,
		every:  time.Hour,
		clock:  time.Now,
		level:  zstd.SpeedFastest,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write appends v as one line. Every line is flushed through the encoder, so a
// crash loses at most the line being written.
func (w *Writer) Write(v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	start := w.clock().UTC().Truncate(w.every)
	if w.seg == nil || !w.seg.start.Equal(start) {
		if err := w.closeSegment(); err != nil {
			return err
		}
		seg, err := openSegment(w.path(start), start, w.level)
		if err != nil {
			return err
		}
		w.seg = seg
	}
	if err := w.seg.append(line); err != nil {
		return fmt.Errorf("%s: %w", w.seg.f.Name(), err)
	}
	w.entries++
	return nil
}

// Entries is the number of lines written since the writer was created.
func (w *Writer) Entries() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.entries
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeSegment()
}

func (w *Writer) closeSegment() error {
	if w.seg == nil {
		return nil
	}
	err := w.seg.close()
	w.seg = nil
	return err
}

func (w *Writer) path(start time.Time) string {
	layout := hourLayout
	if w.every%time.Hour != 0 {
		layout = minuteLayout
	}
	return filepath.Join(w.dir, w.prefix+"-"+start.Format(layout)+".jsonl.zst")
}

// segment is one open log file. Reopening an existing segment appends a new
// zstd frame, which readers decode as one stream.
type segment struct {
	start time.Time
	f     *os.File
	enc   *zstd.Encoder
	buf   *bufio.Writer
}

func openSegment(path string, start time.Time, level zstd.EncoderLevel) (*segment, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(level))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &segment{start: start, f: f, enc: enc, buf: bufio.NewWriterSize(enc, 64*1024)}, nil
}

func (s *segment) append(line []byte) error {
	if _, err := s.buf.Write(line); err != nil {
		return err
	}
	if err := s.buf.WriteByte('\n'); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.enc.Flush()
}

func (s *segment) close() error {
	err := s.buf.Flush()
	if cerr := s.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// TickLogger writes one line per tick under <worldDir>/ticks.
type TickLogger struct{ *Writer }

func NewTickLogger(worldDir string, opts ...Option) *TickLogger {
	return &TickLogger{NewWriter(filepath.Join(worldDir, "ticks"), "ticks", opts...)}
}

func (l *TickLogger) WriteTick(e world.TickLogEntry) error { return l.Write(e) }

// LifecycleLogger writes player lifecycle events under <worldDir>/lifecycle.
type LifecycleLogger struct{ *Writer }

func NewLifecycleLogger(worldDir string, opts ...Option) *LifecycleLogger {
	return &LifecycleLogger{NewWriter(filepath.Join(worldDir, "lifecycle"), "lifecycle", opts...)}
}

func (l *LifecycleLogger) WriteLifecycle(e world.LifecycleEntry) error { return l.Write(e) }
