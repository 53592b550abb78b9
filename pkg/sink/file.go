package sink

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"logbridge/pkg/worker"
)

const DefaultSuffix = ".txt.gz"

// Options configures a GzipSink.
type Options struct {
	// Dir holds the record files; it is created on connect if missing.
	Dir string
	// Suffix is appended to the connection name. Defaults to DefaultSuffix.
	Suffix string
	// Level is a gzip compression level. The zero value is
	// gzip.NoCompression; DefaultOptions picks gzip.DefaultCompression.
	Level     int
	Workers   int
	QueueSize int
	Metrics   *Metrics
}

// DefaultOptions returns options for writing under dir.
func DefaultOptions(dir string) Options {
	return Options{
		Dir:       dir,
		Suffix:    DefaultSuffix,
		Level:     gzip.DefaultCompression,
		Workers:   4,
		QueueSize: 1024,
	}
}

type record struct {
	typeTag string
	topic   string
	payload string
	done    func()
}

// GzipSink writes records to one gzip file per connection. A single mutex
// guards the stream: connect, disconnect and every record write hold it, so
// the two lines of a record are always adjacent and nothing is written to a
// closed stream.
type GzipSink struct {
	opts    Options
	log     *zap.Logger
	metrics *Metrics
	pool    *worker.Pool[record]

	mu      sync.Mutex
	file    *os.File
	zw      *gzip.Writer
	name    string
	session string
}

var _ Sink = (*GzipSink)(nil)

// New creates a disconnected sink and starts its append workers.
func New(opts Options, log *zap.Logger) *GzipSink {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Suffix == "" {
		opts.Suffix = DefaultSuffix
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}

	s := &GzipSink{
		opts:    opts,
		log:     log.With(zap.String("component", "sink")),
		metrics: opts.Metrics,
	}
	s.pool = worker.NewPool(opts.Workers, opts.QueueSize, s.process, worker.WithMetrics[record](opts.Metrics.pool))
	// a fresh pool always starts
	_ = s.pool.Start(context.Background())
	return s
}

// Path returns the file a connection name maps to.
func (s *GzipSink) Path(name string) string {
	return filepath.Join(s.opts.Dir, name+s.opts.Suffix)
}

// Connect truncates or creates the file for name and starts a new gzip
// stream on it, closing the current stream first. Failures are logged and
// leave the sink disconnected.
func (s *GzipSink) Connect(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()

	if !ValidName(name) {
		s.metrics.connectFailures.Inc()
		s.log.Error("invalid connection name", zap.String("connection", name))
		return
	}

	path := s.Path(name)
	if err := os.MkdirAll(s.opts.Dir, 0o755); err != nil {
		s.metrics.connectFailures.Inc()
		s.log.Error("failed to create sink directory", zap.String("dir", s.opts.Dir), zap.Error(err))
		return
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		s.metrics.connectFailures.Inc()
		s.log.Error("failed to open sink file", zap.String("path", path), zap.Error(err))
		return
	}

	zw, err := gzip.NewWriterLevel(f, s.opts.Level)
	if err != nil {
		_ = f.Close()
		s.metrics.connectFailures.Inc()
		s.log.Error("failed to start compressor", zap.String("path", path), zap.Int("level", s.opts.Level), zap.Error(err))
		return
	}

	s.file = f
	s.zw = zw
	s.name = name
	s.session = uuid.NewString()
	s.metrics.connects.Inc()
	s.log.Info("sink connected",
		zap.String("connection", name),
		zap.String("path", path),
		zap.String("session", s.session),
	)
}

// ValidName reports whether name can be used as a connection name: it must be
// a single path element other than "." or "..".
func ValidName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

// Disconnect flushes and closes the current stream. It is a no-op when
// already disconnected.
func (s *GzipSink) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *GzipSink) closeLocked() {
	if s.zw == nil {
		return
	}
	log := s.log.With(zap.String("connection", s.name), zap.String("session", s.session))

	if err := s.zw.Close(); err != nil {
		log.Error("failed to flush compressor", zap.Error(err))
	}
	if err := s.file.Close(); err != nil {
		log.Error("failed to close sink file", zap.Error(err))
	}
	s.zw = nil
	s.file = nil
	s.name = ""
	s.session = ""
	log.Info("sink disconnected")
}

// Append hands the record to a worker and returns immediately. When the
// queue is full or the sink is closed the record runs on its own goroutine
// instead, so contention never drops a record.
func (s *GzipSink) Append(typeTag, topic, payload string, onComplete func()) {
	rec := record{typeTag: typeTag, topic: topic, payload: payload, done: onComplete}
	if err := s.pool.Submit(rec); err != nil {
		go func() { _ = s.process(context.Background(), rec) }()
	}
}

func (s *GzipSink) process(_ context.Context, rec record) error {
	if rec.done != nil {
		defer rec.done()
	}
	return s.write(rec)
}

func (s *GzipSink) write(rec record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.zw == nil {
		s.metrics.skipped.Inc()
		return nil
	}

	n, err := writeRecord(s.zw, rec)
	s.metrics.bytes.Add(float64(n))
	if err != nil {
		s.metrics.writeErrors.Inc()
		s.log.Error("failed to write record",
			zap.String("type", rec.typeTag),
			zap.String("topic", rec.topic),
			zap.String("session", s.session),
			zap.Error(err),
		)
		return err
	}
	s.metrics.written.Inc()
	return nil
}

// writeRecord writes "<type> <topic>\n<payload>\n".
func writeRecord(w io.Writer, rec record) (int, error) {
	total := 0
	for _, part := range [...]string{rec.typeTag, " ", rec.topic, "\n", rec.payload, "\n"} {
		n, err := io.WriteString(w, part)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Status reports whether a stream is open.
func (s *GzipSink) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.zw == nil {
		return Disconnected
	}
	return Connected
}

// Connection returns the current connection name, or "" when disconnected.
func (s *GzipSink) Connection() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Close waits up to timeout for queued records, then disconnects. Appends
// made after Close still complete but find the sink disconnected.
func (s *GzipSink) Close(timeout time.Duration) error {
	err := s.pool.Stop(timeout)
	s.Disconnect()
	return err
}
