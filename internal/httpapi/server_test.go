package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"lgprobe/internal/payload"
	"lgprobe/internal/probe"
	"lgprobe/pkg/types"
)

type mockService struct {
	mu        sync.Mutex
	catalog   map[string]probe.PayloadDescriptor
	states    map[string]probe.State
	startErr  error
	cancelled []string
	ready     bool
}

func newMockService() *mockService {
	return &mockService{
		catalog: map[string]probe.PayloadDescriptor{
			"100mb": {ID: "100mb", Label: "100MB", TotalBytes: 100 << 20, URL: "http://lg.example.net/speedtest/100MB.bin"},
		},
		states: map[string]probe.State{},
		ready:  true,
	}
}

func (m *mockService) Start(desc probe.PayloadDescriptor) (probe.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return probe.Handle{}, m.startErr
	}
	run := uuid.New()
	m.states[desc.ID] = probe.State{ID: desc.ID, RunID: run, URL: desc.URL, TotalBytes: desc.TotalBytes, Phase: probe.PhaseRunning}
	return probe.Handle{ID: desc.ID, RunID: run}, nil
}

func (m *mockService) Cancel(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancelled = append(m.cancelled, id)
}

func (m *mockService) Snapshot() map[string]probe.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]probe.State, len(m.states))
	for k, v := range m.states {
		out[k] = v
	}
	return out
}

func (m *mockService) Get(id string) (probe.State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[id]
	return st, ok
}

func (m *mockService) Lookup(id string) (probe.PayloadDescriptor, bool) {
	d, ok := m.catalog[id]
	return d, ok
}

func (m *mockService) Ready() bool { return m.ready }

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postProbe(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/probes", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var e types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &e); err != nil {
		t.Fatalf("error body: %v (%q)", err, rec.Body.String())
	}
	return e
}

func TestStartProbe_Accepted(t *testing.T) {
	svc := newMockService()
	h := NewMux(svc, nil)
	rec := postProbe(t, h, `{"id":"100mb"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp types.StartProbeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.ID != "100mb" {
		t.Fatalf("id=%q", resp.ID)
	}
	if _, err := uuid.Parse(resp.RunID); err != nil {
		t.Fatalf("run_id not a uuid: %q", resp.RunID)
	}
}

func TestStartProbe_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		ct     string
		err    error
		status int
	}{
		{"unknown payload", `{"id":"nope"}`, "application/json", nil, http.StatusNotFound},
		{"missing id", `{"id":"  "}`, "application/json", nil, http.StatusBadRequest},
		{"bad json", `{"id":`, "application/json", nil, http.StatusBadRequest},
		{"wrong content type", `{"id":"100mb"}`, "text/plain", nil, http.StatusUnsupportedMediaType},
		{"already running", `{"id":"100mb"}`, "application/json", fmt.Errorf("start 100mb: %w", probe.ErrAlreadyRunning), http.StatusConflict},
		{"invalid descriptor", `{"id":"100mb"}`, "application/json", fmt.Errorf("x: %w", probe.ErrInvalidDescriptor), http.StatusBadRequest},
		{"closed", `{"id":"100mb"}`, "application/json", probe.ErrClosed, http.StatusServiceUnavailable},
		{"http error", `{"id":"100mb"}`, "application/json", mockHTTPError{"busy", http.StatusTooManyRequests}, http.StatusTooManyRequests},
		{"other", `{"id":"100mb"}`, "application/json", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newMockService()
			svc.startErr = tc.err
			h := NewMux(svc, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/probes", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", tc.ct)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status=%d want %d body=%s", rec.Code, tc.status, rec.Body.String())
			}
			if e := decodeError(t, rec); e.Code != tc.status || e.Error == "" {
				t.Fatalf("unexpected error payload: %+v", e)
			}
		})
	}
}

func TestStartProbe_BodyTooLarge(t *testing.T) {
	SetMaxBodyBytes(16)
	defer SetMaxBodyBytes(0)
	rec := postProbe(t, NewMux(newMockService(), nil), `{"id":"`+strings.Repeat("a", 64)+`"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestListAndGetProbes(t *testing.T) {
	svc := newMockService()
	now := time.Unix(1700000000, 0)
	svc.states["b"] = probe.State{ID: "b", Phase: probe.PhaseCompleted, BytesReceived: 10, TotalBytes: 10, StartedAt: now, UpdatedAt: now.Add(2 * time.Second), FinishedAt: now.Add(2 * time.Second)}
	svc.states["a"] = probe.State{ID: "a", Phase: probe.PhaseFailed, Err: &probe.TransportError{Kind: probe.KindStatus, Op: "open", URL: "http://x", Status: 503}}
	h := NewMux(svc, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/probes", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var list types.ProbesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(list.Probes) != 2 || list.Probes[0].ID != "a" || list.Probes[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", list.Probes)
	}
	if list.Probes[0].ErrorKind != "status" || list.Probes[0].Error == "" {
		t.Fatalf("error not surfaced: %+v", list.Probes[0])
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/probes/b", nil))
	var st types.ProbeStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("json: %v", err)
	}
	if st.Phase != "completed" || st.Percent != 100 || st.ElapsedSeconds != 2 || st.FinishedAtMS != now.Add(2*time.Second).UnixMilli() {
		t.Fatalf("unexpected status: %+v", st)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/probes/zzz", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestListProbes_EmptyIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux(newMockService(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/probes", nil))
	if !strings.Contains(rec.Body.String(), `"probes":[]`) {
		t.Fatalf("body=%s", rec.Body.String())
	}
}

func TestCancelProbe_AlwaysNoContent(t *testing.T) {
	svc := newMockService()
	h := NewMux(svc, nil)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/probes/ghost", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status=%d", rec.Code)
		}
	}
	if len(svc.cancelled) != 2 || svc.cancelled[0] != "ghost" {
		t.Fatalf("cancelled=%v", svc.cancelled)
	}
}

func TestHealthAndReady(t *testing.T) {
	svc := newMockService()
	h := NewMux(svc, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	svc.ready = false
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "loading") {
		t.Fatalf("readyz: %d %q", rec.Code, rec.Body.String())
	}
}

func TestPayloadRoutes(t *testing.T) {
	files, err := payload.NewServer([]payload.Payload{{Filename: "1KB.bin", Size: "1KB", Bytes: 1024}})
	if err != nil {
		t.Fatalf("payload server: %v", err)
	}
	srv := httptest.NewServer(NewMux(newMockService(), files))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/speedtest/files")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var cat types.CatalogResponse
	err = json.NewDecoder(resp.Body).Decode(&cat)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(cat.Files) != 1 || cat.Files[0].URL != srv.URL+"/speedtest/1KB.bin" {
		t.Fatalf("unexpected catalog: %+v", cat)
	}

	resp, err = http.Get(cat.Files[0].URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	n, _ := io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || n != 1024 {
		t.Fatalf("status=%d n=%d", resp.StatusCode, n)
	}
}

func TestPayloadRoutes_NotMountedWithoutServer(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux(newMockService(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/speedtest/files", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	SetCORSOptions(true, []string{"*"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)

	h := NewMux(newMockService(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/probes", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options=nosniff, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("expected CORS header Access-Control-Allow-Origin to be set")
	}
}

func TestCORSDisabledByDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/probes", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	NewMux(newMockService(), nil).ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected CORS header %q", got)
	}
}

func TestSwaggerDocServed(t *testing.T) {
	rec := httptest.NewRecorder()
	NewMux(newMockService(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/api/probes") {
		t.Fatalf("doc missing probe paths")
	}
}

func TestStatusFromState_Running(t *testing.T) {
	start := time.Unix(1700000000, 0)
	st := StatusFromState(probe.State{
		ID: "x", Phase: probe.PhaseRunning, BytesReceived: 25, TotalBytes: 100,
		StartedAt: start, UpdatedAt: start.Add(500 * time.Millisecond),
		InstantaneousSpeed: 10, AverageSpeed: 50,
	})
	if st.Percent != 25 || st.FinishedAtMS != 0 || st.ElapsedSeconds != 0.5 || st.AverageBPS != 50 || st.InstantaneousBPS != 10 {
		t.Fatalf("unexpected: %+v", st)
	}
	if st.Error != "" || st.ErrorKind != "" {
		t.Fatalf("running probe carries error: %+v", st)
	}
}
