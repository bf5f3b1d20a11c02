package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrAlreadyRunning is returned by Start when a probe with the same id is
	// still running. The caller must cancel and wait, or retry later.
	ErrAlreadyRunning = errors.New("probe already running")
	// ErrInvalidDescriptor is returned by Start for descriptors failing Validate.
	ErrInvalidDescriptor = errors.New("invalid payload descriptor")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("probe registry closed")
)

// IsAlreadyRunning reports whether err indicates a duplicate running probe.
func IsAlreadyRunning(err error) bool { return errors.Is(err, ErrAlreadyRunning) }

// IsInvalidDescriptor reports whether err indicates a rejected descriptor.
func IsInvalidDescriptor(err error) bool { return errors.Is(err, ErrInvalidDescriptor) }

// ErrorKind classifies transport failures for observers.
type ErrorKind string

const (
	KindConnect ErrorKind = "connect"
	KindDNS     ErrorKind = "dns"
	KindTimeout ErrorKind = "timeout"
	KindStatus  ErrorKind = "status"
	KindStream  ErrorKind = "stream"
)

// TransportError is the terminal error of a failed probe.
type TransportError struct {
	Kind   ErrorKind
	Op     string
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case KindStatus:
		return fmt.Sprintf("%s %s: unexpected status %d", e.Op, e.URL, e.Status)
	case KindDNS:
		return fmt.Sprintf("dns error during %s for %s: %v", e.Op, e.URL, e.Err)
	case KindTimeout:
		return fmt.Sprintf("timeout during %s for %s: %v", e.Op, e.URL, e.Err)
	case KindStream:
		return fmt.Sprintf("stream error during %s for %s: %v", e.Op, e.URL, e.Err)
	default:
		return fmt.Sprintf("connection error during %s for %s: %v", e.Op, e.URL, e.Err)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// AsTransportError extracts a *TransportError from err's chain.
func AsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// Operations recorded in TransportError.Op.
const (
	opOpen = "open"
	opRead = "read"
)

// classify maps an error from the transport into a TransportError. Errors
// raised while reading the body are stream errors unless they are timeouts.
func classify(op, rawURL string, err error) *TransportError {
	if te, ok := AsTransportError(err); ok {
		return te
	}
	te := &TransportError{Kind: KindConnect, Op: op, URL: rawURL, Err: err}
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.As(err, &dnsErr):
		te.Kind = KindDNS
	case errors.Is(err, context.DeadlineExceeded):
		te.Kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		te.Kind = KindTimeout
	case op == opRead:
		te.Kind = KindStream
	}
	return te
}
