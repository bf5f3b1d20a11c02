package probe

import (
	"time"

	"github.com/rs/zerolog"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultGracePeriod  = 10 * time.Second
	DefaultReapInterval = time.Second
	DefaultChunkSize    = 32 * 1024
)

// Config encapsulates all tunables for Registry construction.
type Config struct {
	// Transport used by runners. Defaults to an HTTPTransport.
	Transport Transport
	// How long a terminal probe stays visible before Reap drops it.
	GracePeriod time.Duration
	// Tick of the background reaper started by Run.
	ReapInterval time.Duration
	// Read buffer size per runner.
	ChunkSize int
	// Logger defaults to a disabled logger.
	Logger    *zerolog.Logger
	Publisher EventPublisher
	Metrics   *Metrics
	// Clock overrides time.Now (tests).
	Clock func() time.Time
}

// New constructs a Registry from Config.
func New(cfg Config) *Registry {
	r := &Registry{
		entries:      make(map[string]*entry),
		transport:    cfg.Transport,
		grace:        cfg.GracePeriod,
		reapInterval: cfg.ReapInterval,
		chunkSize:    cfg.ChunkSize,
		publisher:    cfg.Publisher,
		metrics:      cfg.Metrics,
		now:          cfg.Clock,
	}
	// Apply defaults if unset
	if r.transport == nil {
		r.transport = NewHTTPTransport(DefaultTransportConfig())
	}
	if r.grace <= 0 {
		r.grace = DefaultGracePeriod
	}
	if r.reapInterval <= 0 {
		r.reapInterval = DefaultReapInterval
	}
	if r.chunkSize <= 0 {
		r.chunkSize = DefaultChunkSize
	}
	if r.publisher == nil {
		r.publisher = noopPublisher{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	if cfg.Logger != nil {
		r.log = *cfg.Logger
	} else {
		r.log = zerolog.Nop()
	}
	return r
}
