package probe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// scriptedTransport returns a body that yields the given chunks, one per
// Read, followed by finalErr (io.EOF when nil).
type scriptedTransport struct {
	chunks   [][]byte
	finalErr error

	mu     sync.Mutex
	opened int
	closed int
}

func (s *scriptedTransport) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	chunks := append([][]byte(nil), s.chunks...)
	return &scriptedBody{t: s, ctx: ctx, chunks: chunks, finalErr: s.finalErr}, nil
}

func (s *scriptedTransport) counts() (opened, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, s.closed
}

type scriptedBody struct {
	t        *scriptedTransport
	ctx      context.Context
	chunks   [][]byte
	finalErr error
}

func (b *scriptedBody) Read(p []byte) (int, error) {
	if err := b.ctx.Err(); err != nil {
		return 0, err
	}
	if len(b.chunks) == 0 {
		if b.finalErr != nil {
			return 0, b.finalErr
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	if n < len(b.chunks[0]) {
		b.chunks[0] = b.chunks[0][n:]
	} else {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *scriptedBody) Close() error {
	b.t.mu.Lock()
	b.t.closed++
	b.t.mu.Unlock()
	return nil
}

// blockingTransport hands out bodies that block until the request context
// is canceled. If chunk is set, the first Read returns it immediately.
type blockingTransport struct {
	chunk  []byte
	opened chan struct{}
	once   sync.Once
}

func newBlockingTransport(chunk []byte) *blockingTransport {
	return &blockingTransport{chunk: chunk, opened: make(chan struct{})}
}

func (b *blockingTransport) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	b.once.Do(func() { close(b.opened) })
	return &blockingBody{ctx: ctx, first: b.chunk}, nil
}

type blockingBody struct {
	ctx   context.Context
	first []byte
}

func (b *blockingBody) Read(p []byte) (int, error) {
	if len(b.first) > 0 {
		n := copy(p, b.first)
		b.first = b.first[n:]
		return n, nil
	}
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func (b *blockingBody) Close() error { return nil }

// streamingTransport yields chunkSize bytes every interval until canceled.
type streamingTransport struct {
	chunkSize int
	interval  time.Duration
}

func (s streamingTransport) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	return &streamingBody{ctx: ctx, size: s.chunkSize, interval: s.interval}, nil
}

type streamingBody struct {
	ctx      context.Context
	size     int
	interval time.Duration
}

func (b *streamingBody) Read(p []byte) (int, error) {
	select {
	case <-b.ctx.Done():
		return 0, b.ctx.Err()
	case <-time.After(b.interval):
	}
	n := b.size
	if n > len(p) {
		n = len(p)
	}
	return n, nil
}

func (b *streamingBody) Close() error { return nil }

type panicTransport struct{}

func (panicTransport) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	return panicBody{}, nil
}

type panicBody struct{}

func (panicBody) Read(p []byte) (int, error) { panic("boom") }
func (panicBody) Close() error               { return nil }

// stepClock returns start, start+step, start+2*step, ... on successive calls.
type stepClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

func newStepClock(step time.Duration) *stepClock {
	return &stepClock{next: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

// manualClock only moves when advanced.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newPayloadServer serves n zero bytes on any path, with Content-Length.
func newPayloadServer(t *testing.T, n int) *httptest.Server {
	t.Helper()
	block := make([]byte, 64*1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(n))
		remaining := n
		for remaining > 0 {
			chunk := block
			if remaining < len(chunk) {
				chunk = chunk[:remaining]
			}
			if _, err := w.Write(chunk); err != nil {
				return
			}
			remaining -= len(chunk)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func waitFinal(t *testing.T, r *Registry, id string) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st, ok, err := r.Wait(ctx, id)
	if !ok {
		t.Fatalf("probe %q not tracked", id)
	}
	if err != nil {
		t.Fatalf("wait %q: %v", id, err)
	}
	return st
}

func descriptor(id string, size int64, url string) PayloadDescriptor {
	return PayloadDescriptor{ID: id, TotalBytes: size, URL: url, Label: id}
}
