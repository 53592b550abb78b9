package sink

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSink(t *testing.T, dir string) *GzipSink {
	t.Helper()
	opts := DefaultOptions(dir)
	opts.Workers = 8
	opts.QueueSize = 16
	s := New(opts, zap.NewNop())
	t.Cleanup(func() { _ = s.Close(5 * time.Second) })
	return s
}

func readGzip(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(data)
}

// appendAll appends every record concurrently and waits for completion.
func appendAll(s *GzipSink, n int, rec func(i int) (string, string, string)) {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			typ, topic, payload := rec(i)
			s.Append(typ, topic, payload, wg.Done)
		}(i)
	}
	wg.Wait()
}

func TestGzipSink_ConnectDisconnectEmpty(t *testing.T) {
	dir := t.TempDir()
	s := newTestSink(t, dir)

	s.Connect("x")
	assert.Equal(t, Connected, s.Status())
	assert.Equal(t, "x", s.Connection())
	s.Disconnect()
	assert.Equal(t, Disconnected, s.Status())
	assert.Equal(t, "", s.Connection())

	path := filepath.Join(dir, "x.txt.gz")
	assert.Equal(t, path, s.Path("x"))
	assert.Equal(t, "", readGzip(t, path))
}

func TestGzipSink_DisconnectIdempotent(t *testing.T) {
	s := newTestSink(t, t.TempDir())
	s.Disconnect()
	s.Connect("a")
	s.Disconnect()
	s.Disconnect()
	assert.Equal(t, Disconnected, s.Status())
}

func TestGzipSink_AppendWritesRecord(t *testing.T) {
	dir := t.TempDir()
	s := newTestSink(t, dir)
	s.Connect("one")

	done := make(chan struct{})
	s.Append("GpsData", "/gps", `{"latitude":1.5}`, func() { close(done) })
	<-done
	s.Disconnect()

	assert.Equal(t, "GpsData /gps\n{\"latitude\":1.5}\n", readGzip(t, s.Path("one")))
}

func TestGzipSink_AppendBeforeConnect(t *testing.T) {
	dir := t.TempDir()
	s := newTestSink(t, dir)

	var calls int32
	done := make(chan struct{})
	s.Append("ClockData", "/clock", `{}`, func() {
		atomic.AddInt32(&calls, 1)
		close(done)
	})
	<-done

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no file before connect")

	s.Connect("later")
	s.Disconnect()
	assert.Equal(t, "", readGzip(t, s.Path("later")))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGzipSink_CompletesExactlyOnce(t *testing.T) {
	s := newTestSink(t, t.TempDir())
	s.Connect("once")

	const n = 200
	counts := make([]int32, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		s.Append("T", "/t", "{}", func() {
			atomic.AddInt32(&counts[i], 1)
			wg.Done()
		})
		if i == n/2 {
			s.Disconnect()
		}
	}
	wg.Wait()

	for i, c := range counts {
		assert.Equal(t, int32(1), c, "append %d", i)
	}
}

func TestGzipSink_ConcurrentAppendsDoNotInterleave(t *testing.T) {
	s := newTestSink(t, t.TempDir())
	s.Connect("concurrent")

	const n = 500
	appendAll(s, n, func(i int) (string, string, string) {
		return fmt.Sprintf("Type%d", i%7), fmt.Sprintf("/topic/%d", i), fmt.Sprintf(`{"seq":%d,"pad":"%s"}`, i, strings.Repeat("x", i%50))
	})
	s.Disconnect()

	content := readGzip(t, s.Path("concurrent"))
	require.True(t, strings.HasSuffix(content, "\n"))
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	require.Len(t, lines, 2*n)

	seen := make(map[int]bool, n)
	for i := 0; i < len(lines); i += 2 {
		var typeN, seq int
		var topic string
		_, err := fmt.Sscanf(lines[i], "Type%d %s", &typeN, &topic)
		require.NoError(t, err, "header line %q", lines[i])

		var topicSeq int
		_, err = fmt.Sscanf(topic, "/topic/%d", &topicSeq)
		require.NoError(t, err)

		_, err = fmt.Sscanf(lines[i+1], `{"seq":%d,`, &seq)
		require.NoError(t, err, "payload line %q", lines[i+1])

		assert.Equal(t, topicSeq, seq, "header and payload belong to the same record")
		assert.Equal(t, seq%7, typeN)
		seen[seq] = true
	}
	assert.Len(t, seen, n)
}

func TestGzipSink_ReconnectTruncates(t *testing.T) {
	s := newTestSink(t, t.TempDir())

	s.Connect("a")
	appendAll(s, 3, func(int) (string, string, string) { return "Old", "/old", `"first session"` })
	s.Connect("a")
	appendAll(s, 1, func(int) (string, string, string) { return "New", "/new", `"second session"` })
	s.Disconnect()

	assert.Equal(t, "New /new\n\"second session\"\n", readGzip(t, s.Path("a")))
}

func TestGzipSink_ConnectWhileConnectedClosesPrevious(t *testing.T) {
	s := newTestSink(t, t.TempDir())

	s.Connect("first")
	appendAll(s, 1, func(int) (string, string, string) { return "A", "/a", "1" })
	s.Connect("second")
	appendAll(s, 1, func(int) (string, string, string) { return "B", "/b", "2" })
	s.Disconnect()

	assert.Equal(t, "A /a\n1\n", readGzip(t, s.Path("first")))
	assert.Equal(t, "B /b\n2\n", readGzip(t, s.Path("second")))
}

func TestGzipSink_ConnectFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("file"), 0o644))

	reg := prometheus.NewRegistry()
	opts := DefaultOptions(blocker)
	opts.Metrics = NewMetrics(reg)
	s := New(opts, zap.NewNop())
	defer s.Close(time.Second)

	assert.NotPanics(t, func() { s.Connect("session") })
	assert.Equal(t, Disconnected, s.Status())
	assert.Equal(t, 1.0, testutil.ToFloat64(opts.Metrics.connectFailures))

	done := make(chan struct{})
	s.Append("T", "/t", "{}", func() { close(done) })
	<-done
	assert.Equal(t, 1.0, testutil.ToFloat64(opts.Metrics.skipped))
}

func TestGzipSink_ConnectFailureDropsPreviousStream(t *testing.T) {
	s := newTestSink(t, t.TempDir())
	s.Connect("good")
	s.Connect("bad/name")
	assert.Equal(t, Disconnected, s.Status())
	assert.Equal(t, "", readGzip(t, s.Path("good")))
}

func TestGzipSink_InvalidNames(t *testing.T) {
	dir := t.TempDir()
	s := newTestSink(t, dir)
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		assert.False(t, ValidName(name), "name %q", name)
		s.Connect(name)
		assert.Equal(t, Disconnected, s.Status(), "name %q", name)
	}
	assert.True(t, ValidName("vehicle.1"))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGzipSink_QueueOverflowStillCompletes(t *testing.T) {
	opts := DefaultOptions(t.TempDir())
	opts.Workers = 1
	opts.QueueSize = 1
	s := New(opts, zap.NewNop())
	defer s.Close(5 * time.Second)
	s.Connect("overflow")

	const n = 100
	appendAll(s, n, func(i int) (string, string, string) { return "T", "/t", fmt.Sprint(i) })
	s.Disconnect()

	lines := strings.Split(strings.TrimSuffix(readGzip(t, s.Path("overflow")), "\n"), "\n")
	assert.Len(t, lines, 2*n)
}

func TestGzipSink_AppendAfterClose(t *testing.T) {
	s := New(DefaultOptions(t.TempDir()), nil)
	s.Connect("closed")
	require.NoError(t, s.Close(time.Second))
	assert.Equal(t, Disconnected, s.Status())

	done := make(chan struct{})
	s.Append("T", "/t", "{}", func() { close(done) })
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("onComplete not called after Close")
	}
	assert.Equal(t, "", readGzip(t, s.Path("closed")))
}

func TestGzipSink_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := DefaultOptions(t.TempDir())
	opts.Metrics = NewMetrics(reg)
	s := New(opts, zap.NewNop())
	defer s.Close(time.Second)

	s.Connect("m")
	appendAll(s, 4, func(int) (string, string, string) { return "T", "/t", "{}" })
	s.Disconnect()

	assert.Equal(t, 1.0, testutil.ToFloat64(opts.Metrics.connects))
	assert.Equal(t, 4.0, testutil.ToFloat64(opts.Metrics.written))
	assert.Equal(t, float64(4*len("T /t\n{}\n")), testutil.ToFloat64(opts.Metrics.bytes))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "connected", Connected.String())
	assert.Equal(t, "disconnected", Disconnected.String())
}
