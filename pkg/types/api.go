package types

// StartProbeRequest is the body of POST /api/probes.
type StartProbeRequest struct {
	// Payload identifier from the catalog.
	// example: 100MB
	ID string `json:"id" example:"100MB"`
}

// StartProbeResponse is returned by POST /api/probes.
type StartProbeResponse struct {
	// Payload identifier of the started probe.
	// example: 100MB
	ID string `json:"id" example:"100MB"`
	// Unique id of this run of the probe.
	// example: 3f1c9a52-3b1e-4c4e-9a53-3a8b1f0c7d11
	RunID string `json:"run_id" example:"3f1c9a52-3b1e-4c4e-9a53-3a8b1f0c7d11"`
}

// ProbeStatus is the JSON view of one probe.
type ProbeStatus struct {
	// Payload identifier.
	// example: 100MB
	ID string `json:"id" example:"100MB"`
	// Unique id of this run.
	RunID string `json:"run_id"`
	// Human label of the payload.
	// example: Download 100MB test file
	Label string `json:"label,omitempty" example:"Download 100MB test file"`
	// Payload URL being downloaded.
	URL string `json:"url"`
	// Lifecycle phase: running, completed, cancelled or failed.
	// example: running
	Phase string `json:"phase" example:"running"`
	// Bytes received so far.
	// example: 52428800
	BytesReceived int64 `json:"bytes_received" example:"52428800"`
	// Declared payload size in bytes.
	// example: 104857600
	TotalBytes int64 `json:"total_bytes" example:"104857600"`
	// Share of the declared size received, 0-100.
	// example: 50
	Percent float64 `json:"percent" example:"50"`
	// Throughput over the last interval, bytes/sec.
	InstantaneousBPS float64 `json:"instantaneous_bps"`
	// Throughput since start, bytes/sec.
	AverageBPS float64 `json:"average_bps"`
	// Start time (unix milliseconds).
	StartedAtMS int64 `json:"started_at_ms"`
	// Time of the last update (unix milliseconds).
	UpdatedAtMS int64 `json:"updated_at_ms"`
	// Finish time (unix milliseconds), absent while running.
	FinishedAtMS int64 `json:"finished_at_ms,omitempty"`
	// Elapsed seconds measured by the probe.
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	// Error message when phase is failed.
	Error string `json:"error,omitempty"`
	// Error classification when phase is failed: connect, dns, timeout, status, stream.
	ErrorKind string `json:"error_kind,omitempty"`
}

// ProbesResponse is returned by GET /api/probes.
type ProbesResponse struct {
	Probes []ProbeStatus `json:"probes"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
