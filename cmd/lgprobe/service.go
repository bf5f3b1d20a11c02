package main

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"lgprobe/internal/catalog"
	"lgprobe/internal/payload"
	"lgprobe/internal/probe"
)

// probeService joins the registry with the catalog that resolves probe ids.
// It is not ready until a catalog is installed.
type probeService struct {
	*probe.Registry
	cat atomic.Pointer[catalog.Catalog]
}

func newProbeService(reg *probe.Registry) *probeService {
	return &probeService{Registry: reg}
}

func (s *probeService) Lookup(id string) (probe.PayloadDescriptor, bool) {
	c := s.cat.Load()
	if c == nil {
		return probe.PayloadDescriptor{}, false
	}
	return c.Lookup(id)
}

func (s *probeService) Ready() bool { return s.cat.Load() != nil }

func (s *probeService) setCatalog(c *catalog.Catalog) { s.cat.Store(c) }

// fetchCatalog retries catalog.Fetch with exponential backoff until it
// succeeds or ctx is done.
func (s *probeService) fetchCatalog(ctx context.Context, client *http.Client, base string, log zerolog.Logger) {
	delay := time.Second
	for {
		c, err := catalog.Fetch(ctx, client, base)
		if err == nil {
			s.setCatalog(c)
			log.Info().Str("url", base).Int("payloads", c.Len()).Msg("catalog loaded")
			return
		}
		log.Warn().Err(err).Str("url", base).Dur("retry_in", delay).Msg("catalog fetch failed")
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
}

// selfCatalog builds a catalog of the locally served payloads as seen from
// the listen address.
func selfCatalog(files *payload.Server, addr string) (*catalog.Catalog, error) {
	base, err := url.Parse(selfBaseURL(addr))
	if err != nil {
		return nil, err
	}
	return catalog.FromResponse(base, files.Catalog(base.String()))
}

func selfBaseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
