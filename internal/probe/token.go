package probe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Token is a one-way cancellation signal owned by a single probe.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	fired  atomic.Bool
}

func newToken() *Token {
	ctx, cancel := context.WithCancel(context.Background())
	return &Token{ctx: ctx, cancel: cancel}
}

// Cancel fires the token. Repeated calls are no-ops.
func (t *Token) Cancel() {
	t.once.Do(func() {
		t.fired.Store(true)
		t.cancel()
	})
}

// Cancelled reports whether Cancel has been called.
func (t *Token) Cancelled() bool { return t.fired.Load() }

// Done is closed once the token fires or the probe has finished.
func (t *Token) Done() <-chan struct{} { return t.ctx.Done() }

// Context returns a context canceled together with the token. Transports
// attach it to the request so a fired token aborts an in-flight read.
func (t *Token) Context() context.Context { return t.ctx }

// release frees the context without marking the token as fired.
func (t *Token) release() { t.cancel() }
