package probe

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type entry struct {
	state State
	token *Token
	// closed when the runner has exited and state is final
	done chan struct{}
}

// Registry tracks running and recently finished probes by payload id.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	closed  bool
	wg      sync.WaitGroup

	transport    Transport
	grace        time.Duration
	reapInterval time.Duration
	chunkSize    int
	log          zerolog.Logger
	publisher    EventPublisher
	metrics      *Metrics
	now          func() time.Time
}

// Start begins a probe for desc and returns without waiting for the transfer.
// A terminal probe with the same id is replaced; a running one is not.
func (r *Registry) Start(desc PayloadDescriptor) (Handle, error) {
	if err := desc.Validate(); err != nil {
		return Handle{}, err
	}
	now := r.now()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Handle{}, ErrClosed
	}
	reaped := r.reapLocked(now)
	if e, ok := r.entries[desc.ID]; ok {
		if !e.state.Phase.Terminal() {
			r.mu.Unlock()
			r.publishReaped(reaped)
			return Handle{}, fmt.Errorf("%w: %s", ErrAlreadyRunning, desc.ID)
		}
		delete(r.entries, desc.ID)
	}
	tok := newToken()
	st := State{
		ID:         desc.ID,
		RunID:      uuid.New(),
		Label:      desc.Label,
		URL:        desc.URL,
		TotalBytes: desc.TotalBytes,
		StartedAt:  now,
		UpdatedAt:  now,
		Phase:      PhaseRunning,
	}
	e := &entry{state: st, token: tok, done: make(chan struct{})}
	r.entries[desc.ID] = e
	r.wg.Add(1)
	r.mu.Unlock()

	r.publishReaped(reaped)
	r.metrics.probeStarted()
	r.publisher.Publish(Event{Name: EventStart, ProbeID: desc.ID, Fields: map[string]any{
		"run_id":      st.RunID.String(),
		"total_bytes": desc.TotalBytes,
	}})
	r.log.Info().Str("probe", desc.ID).Str("run_id", st.RunID.String()).Str("url", desc.URL).Int64("total_bytes", desc.TotalBytes).Msg("probe start")

	run := &runner{
		reg:       r,
		entry:     e,
		desc:      desc,
		state:     st,
		transport: r.transport,
		chunkSize: r.chunkSize,
		now:       r.now,
	}
	go run.run()

	return Handle{ID: desc.ID, RunID: st.RunID, Token: tok}, nil
}

// Cancel fires the token of a running probe. Unknown or finished ids are
// ignored, so Cancel is safe to call any number of times.
func (r *Registry) Cancel(id string) {
	r.mu.RLock()
	e, ok := r.entries[id]
	running := ok && !e.state.Phase.Terminal()
	r.mu.RUnlock()
	if !running {
		return
	}
	e.token.Cancel()
	r.log.Debug().Str("probe", id).Msg("probe cancel requested")
}

// Snapshot returns a point-in-time copy of every tracked probe.
func (r *Registry) Snapshot() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]State, len(r.entries))
	for id, e := range r.entries {
		out[id] = e.state
	}
	return out
}

// Get returns the state of a single probe.
func (r *Registry) Get(id string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return State{}, false
	}
	return e.state, true
}

// Wait blocks until the current probe for id has finished and returns its
// final state. It returns false if no such probe is tracked.
func (r *Registry) Wait(ctx context.Context, id string) (State, bool, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return State{}, false, nil
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		return State{}, true, ctx.Err()
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return e.state, true, nil
}

// Reap drops terminal probes older than the grace period and reports how
// many were removed.
func (r *Registry) Reap() int {
	r.mu.Lock()
	reaped := r.reapLocked(r.now())
	r.mu.Unlock()
	r.publishReaped(reaped)
	return len(reaped)
}

func (r *Registry) reapLocked(now time.Time) []string {
	var reaped []string
	for id, e := range r.entries {
		if !e.state.Phase.Terminal() {
			continue
		}
		if now.Sub(e.state.FinishedAt) > r.grace {
			delete(r.entries, id)
			reaped = append(reaped, id)
		}
	}
	return reaped
}

func (r *Registry) publishReaped(ids []string) {
	for _, id := range ids {
		r.publisher.Publish(Event{Name: EventReaped, ProbeID: id, Fields: map[string]any{}})
		r.log.Debug().Str("probe", id).Msg("probe reaped")
	}
}

// Run reaps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	t := time.NewTicker(r.reapInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Reap()
		}
	}
}

// Close cancels all running probes and waits for their runners to exit.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	var tokens []*Token
	for _, e := range r.entries {
		if !e.state.Phase.Terminal() {
			tokens = append(tokens, e.token)
		}
	}
	r.mu.Unlock()

	for _, t := range tokens {
		t.Cancel()
	}
	r.wg.Wait()
	if c, ok := r.transport.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
	return nil
}

// publish replaces the state of a running probe. Only the owning runner
// calls it.
func (r *Registry) publish(e *entry, st State) {
	r.mu.Lock()
	e.state = st
	r.mu.Unlock()
}

// finish records the terminal state and releases the runner slot.
func (r *Registry) finish(e *entry, st State) {
	r.mu.Lock()
	e.state = st
	close(e.done)
	r.mu.Unlock()
	r.wg.Done()

	r.metrics.probeFinished(st)
	fields := map[string]any{
		"run_id":         st.RunID.String(),
		"bytes_received": st.BytesReceived,
		"average_speed":  st.AverageSpeed,
	}
	if st.Err != nil {
		fields["error_kind"] = string(st.Err.Kind)
		fields["error"] = st.Err.Error()
	}
	r.publisher.Publish(Event{Name: terminalEventName(st.Phase), ProbeID: st.ID, Fields: fields})

	ev := r.log.Info()
	if st.Phase == PhaseFailed {
		ev = r.log.Warn().Err(st.Err)
	}
	ev.Str("probe", st.ID).
		Str("phase", string(st.Phase)).
		Int64("bytes", st.BytesReceived).
		Float64("avg_bps", st.AverageSpeed).
		Dur("elapsed", st.Elapsed()).
		Msg("probe end")
}
