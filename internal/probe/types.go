package probe

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Phase is the lifecycle phase of a probe.
type Phase string

const (
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseCancelled Phase = "cancelled"
	PhaseFailed    Phase = "failed"
)

// Terminal reports whether no further transitions can happen from p.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseCompleted, PhaseCancelled, PhaseFailed:
		return true
	}
	return false
}

// PayloadDescriptor identifies a fixed-size payload that can be probed.
// Descriptors come from a catalog and are never modified by the registry.
type PayloadDescriptor struct {
	ID         string
	TotalBytes int64
	URL        string
	Label      string
}

// Validate checks the descriptor invariants.
func (d PayloadDescriptor) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDescriptor)
	}
	if d.TotalBytes <= 0 {
		return fmt.Errorf("%w: %s: total size must be positive, got %d", ErrInvalidDescriptor, d.ID, d.TotalBytes)
	}
	u, err := url.Parse(d.URL)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDescriptor, d.ID, err)
	}
	if s := strings.ToLower(u.Scheme); (s != "http" && s != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s: url must be absolute http(s), got %q", ErrInvalidDescriptor, d.ID, d.URL)
	}
	return nil
}

// State is a point-in-time view of one probe. Values are copied out of the
// registry, so holding a State never races with the runner.
type State struct {
	ID    string
	RunID uuid.UUID
	Label string
	URL   string

	BytesReceived int64
	TotalBytes    int64
	// Bytes per second over the interval since the previous update.
	InstantaneousSpeed float64
	// Bytes per second since StartedAt.
	AverageSpeed float64

	StartedAt  time.Time
	UpdatedAt  time.Time
	FinishedAt time.Time

	Phase Phase
	// Err is set only when Phase is PhaseFailed.
	Err *TransportError
}

// Percent returns the share of the declared size received so far.
func (s State) Percent() float64 {
	if s.TotalBytes <= 0 {
		return 0
	}
	return float64(s.BytesReceived) / float64(s.TotalBytes) * 100
}

// Elapsed returns the time measured since start: up to FinishedAt for
// terminal probes and up to the last update otherwise.
func (s State) Elapsed() time.Duration {
	if !s.FinishedAt.IsZero() {
		return s.FinishedAt.Sub(s.StartedAt)
	}
	return s.UpdatedAt.Sub(s.StartedAt)
}

// Handle is returned by Start. It carries the probe identity and its token.
type Handle struct {
	ID    string
	RunID uuid.UUID
	Token *Token
}

// Cancel fires the probe's cancellation token.
func (h Handle) Cancel() {
	if h.Token != nil {
		h.Token.Cancel()
	}
}
