package probe

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// runner owns one probe: its connection, its read buffer and the only
// writable copy of its State.
type runner struct {
	reg       *Registry
	entry     *entry
	desc      PayloadDescriptor
	state     State
	transport Transport
	chunkSize int
	now       func() time.Time
	finished  bool
}

func (rn *runner) run() {
	tok := rn.entry.token
	defer tok.release()
	defer func() {
		if p := recover(); p != nil && !rn.finished {
			rn.terminate(PhaseFailed, &TransportError{
				Kind: KindStream,
				Op:   opRead,
				URL:  rn.desc.URL,
				Err:  fmt.Errorf("runner panic: %v", p),
			})
		}
	}()

	if tok.Cancelled() {
		rn.terminate(PhaseCancelled, nil)
		return
	}
	body, err := rn.transport.Open(tok.Context(), rn.desc.URL)
	if err != nil {
		rn.fail(opOpen, err)
		return
	}
	defer body.Close()

	buf := make([]byte, rn.chunkSize)
	last := rn.state.StartedAt
	for {
		select {
		case <-tok.Done():
			rn.terminate(PhaseCancelled, nil)
			return
		default:
		}

		n, err := body.Read(buf)
		if n > 0 {
			now := rn.now()
			rn.state.BytesReceived += int64(n)
			// A zero interval keeps the previous instantaneous reading.
			if dt := now.Sub(last); dt > 0 {
				rn.state.InstantaneousSpeed = Instantaneous(int64(n), dt)
			}
			rn.state.AverageSpeed = Average(rn.state.BytesReceived, now.Sub(rn.state.StartedAt))
			rn.state.UpdatedAt = now
			last = now
			rn.reg.publish(rn.entry, rn.state)
			rn.reg.metrics.chunkReceived(n)
		}
		if errors.Is(err, io.EOF) {
			rn.terminate(PhaseCompleted, nil)
			return
		}
		if err != nil {
			rn.fail(opRead, err)
			return
		}
	}
}

// fail records a transport error, unless the token fired first: an aborted
// read after Cancel is a cancellation, not a failure.
func (rn *runner) fail(op string, err error) {
	if rn.entry.token.Cancelled() {
		rn.terminate(PhaseCancelled, nil)
		return
	}
	rn.terminate(PhaseFailed, classify(op, rn.desc.URL, err))
}

func (rn *runner) terminate(phase Phase, terr *TransportError) {
	rn.finished = true
	now := rn.now()
	rn.state.Phase = phase
	rn.state.Err = terr
	rn.state.FinishedAt = now
	rn.state.UpdatedAt = now
	rn.state.AverageSpeed = Average(rn.state.BytesReceived, now.Sub(rn.state.StartedAt))
	rn.reg.finish(rn.entry, rn.state)
}
