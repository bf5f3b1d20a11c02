package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"lgprobe/internal/catalog"
	"lgprobe/internal/httpapi"
	"lgprobe/internal/payload"
	"lgprobe/internal/probe"
	"lgprobe/pkg/types"
)

// stack is the full server: payload files, a registry probing them and the API.
type stack struct {
	srv *httptest.Server
	reg *probe.Registry
	pub *probe.MemoryPublisher
}

type service struct {
	*probe.Registry
	cat *catalog.Catalog
}

func (s *service) Lookup(id string) (probe.PayloadDescriptor, bool) { return s.cat.Lookup(id) }
func (s *service) Ready() bool                                      { return s.cat != nil }

// newStack serves payloads and probes them over loopback. extra catalog
// entries let tests point probes at other servers.
func newStack(t *testing.T, payloads []payload.Payload, extra ...probe.PayloadDescriptor) *stack {
	t.Helper()
	files, err := payload.NewServer(payloads)
	if err != nil {
		t.Fatalf("payload server: %v", err)
	}
	pub := probe.NewMemoryPublisher()
	reg := probe.New(probe.Config{GracePeriod: time.Minute, Publisher: pub})
	svc := &service{Registry: reg}
	srv := httptest.NewServer(httpapi.NewMux(svc, files))
	t.Cleanup(func() {
		_ = reg.Close()
		srv.Close()
	})

	base, _ := url.Parse(srv.URL)
	self, err := catalog.FromResponse(base, files.Catalog(srv.URL))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	svc.cat, err = catalog.New(append(self.All(), extra...))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return &stack{srv: srv, reg: reg, pub: pub}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpDelete(t *testing.T, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	_ = resp.Body.Close()
	return resp
}

// pollStatus polls GET /api/probes/{id} until the probe is terminal.
func pollStatus(t *testing.T, base, id string, timeout time.Duration) types.ProbeStatus {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		resp, body := httpGet(t, base+"/api/probes/"+id)
		if resp.StatusCode == http.StatusOK {
			var st types.ProbeStatus
			if err := json.Unmarshal(body, &st); err != nil {
				t.Fatalf("decode status: %v", err)
			}
			if st.Phase != "running" {
				return st
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("probe %s did not finish in %s", id, timeout)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
