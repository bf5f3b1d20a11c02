package probe

// Event names published by the registry.
const (
	EventStart     = "probe_start"
	EventCompleted = "probe_completed"
	EventCancelled = "probe_cancelled"
	EventFailed    = "probe_failed"
	EventReaped    = "probe_reaped"
)

// Event represents a probe lifecycle event.
// Minimal and stable: name + probe ID and optional fields via key/values.
type Event struct {
	Name    string
	ProbeID string
	Fields  map[string]any
}

// EventPublisher receives events from the registry. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

func terminalEventName(p Phase) string {
	switch p {
	case PhaseCompleted:
		return EventCompleted
	case PhaseCancelled:
		return EventCancelled
	default:
		return EventFailed
	}
}
