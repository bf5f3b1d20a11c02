// Package httpapi exposes the probe registry, payload catalog and payload
// streams over HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lgprobe/internal/payload"
	"lgprobe/internal/probe"
	"lgprobe/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Start(desc probe.PayloadDescriptor) (probe.Handle, error)
	Cancel(id string)
	Snapshot() map[string]probe.State
	Get(id string) (probe.State, bool)
	// Lookup resolves a catalog identifier to a descriptor.
	Lookup(id string) (probe.PayloadDescriptor, bool)
	Ready() bool
}

// NewMux builds the router. files may be nil, in which case the payload
// endpoints are not mounted.
func NewMux(svc Service, files *payload.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	r.Use(requestLogger)
	if corsEnabled {
		origins, methods, headers := corsDefaults()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: methods,
			AllowedHeaders: headers,
			MaxAge:         300,
		}))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api/probes", func(r chi.Router) {
		r.Use(middleware.Compress(5, "application/json"))
		r.Get("/", listProbes(svc))
		r.Post("/", startProbe(svc))
		r.Get("/{id}", getProbe(svc))
		r.Delete("/{id}", cancelProbe(svc))
	})

	if files != nil {
		r.Get("/api/speedtest/files", listFiles(files))
		r.Get("/speedtest/{filename}", files.ServeFile)
		r.Head("/speedtest/{filename}", files.ServeFile)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// listProbes godoc
//
//	@Summary	List probes
//	@Tags		probes
//	@Produce	json
//	@Success	200	{object}	types.ProbesResponse
//	@Router		/api/probes [get]
func listProbes(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := svc.Snapshot()
		out := types.ProbesResponse{Probes: make([]types.ProbeStatus, 0, len(snap))}
		for _, st := range snap {
			out.Probes = append(out.Probes, StatusFromState(st))
		}
		sort.Slice(out.Probes, func(i, j int) bool { return out.Probes[i].ID < out.Probes[j].ID })
		writeJSON(w, http.StatusOK, out)
	}
}

// getProbe godoc
//
//	@Summary	Get one probe
//	@Tags		probes
//	@Produce	json
//	@Param		id	path		string	true	"Payload identifier"
//	@Success	200	{object}	types.ProbeStatus
//	@Failure	404	{object}	types.ErrorResponse
//	@Router		/api/probes/{id} [get]
func getProbe(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		st, ok := svc.Get(id)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "probe not found: "+id)
			return
		}
		writeJSON(w, http.StatusOK, StatusFromState(st))
	}
}

// startProbe godoc
//
//	@Summary	Start a probe for a catalog payload
//	@Tags		probes
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.StartProbeRequest	true	"Payload to download"
//	@Success	202		{object}	types.StartProbeResponse
//	@Failure	400		{object}	types.ErrorResponse
//	@Failure	404		{object}	types.ErrorResponse
//	@Failure	409		{object}	types.ErrorResponse
//	@Failure	415		{object}	types.ErrorResponse
//	@Router		/api/probes [post]
func startProbe(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.StartProbeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		id := strings.TrimSpace(req.ID)
		if id == "" {
			writeJSONError(w, http.StatusBadRequest, "id is required")
			return
		}
		desc, ok := svc.Lookup(id)
		if !ok {
			IncrementRejection("unknown_payload")
			writeJSONError(w, http.StatusNotFound, "unknown payload: "+id)
			return
		}
		h, err := svc.Start(desc)
		if err != nil {
			status, reason := startErrorStatus(err)
			IncrementRejection(reason)
			writeJSONError(w, status, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, types.StartProbeResponse{ID: h.ID, RunID: h.RunID.String()})
	}
}

// cancelProbe godoc
//
//	@Summary	Cancel a probe
//	@Description	Idempotent; unknown or finished probes are ignored.
//	@Tags		probes
//	@Param		id	path	string	true	"Payload identifier"
//	@Success	204
//	@Router		/api/probes/{id} [delete]
func cancelProbe(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Cancel(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

// listFiles godoc
//
//	@Summary	List downloadable speed test files
//	@Tags		speedtest
//	@Produce	json
//	@Success	200	{object}	types.CatalogResponse
//	@Router		/api/speedtest/files [get]
func listFiles(files *payload.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, files.Catalog(payload.BaseURL(r)))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
