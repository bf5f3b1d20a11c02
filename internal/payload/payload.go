// Package payload serves fixed-size speed test payloads generated on the fly
// and the catalog describing them.
package payload

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"lgprobe/pkg/types"
)

// ChunkSize is the write size used when streaming a payload.
const ChunkSize = 1 << 20

// Payload is one downloadable file.
type Payload struct {
	Filename string `json:"filename" yaml:"filename" toml:"filename"`
	Size     string `json:"size" yaml:"size" toml:"size"`
	Bytes    int64  `json:"bytes" yaml:"bytes" toml:"bytes"`
}

// DefaultPayloads is served when no payloads are configured.
var DefaultPayloads = []Payload{
	{Filename: "100MB.bin", Size: "100MB", Bytes: 100 * 1024 * 1024},
	{Filename: "1GB.bin", Size: "1GB", Bytes: 1024 * 1024 * 1024},
	{Filename: "10GB.bin", Size: "10GB", Bytes: 10 * 1024 * 1024 * 1024},
}

// Server serves payloads and their catalog.
type Server struct {
	order  []Payload
	byName map[string]Payload
	block  []byte
}

// NewServer validates payloads and builds a Server. An empty list selects
// DefaultPayloads.
func NewServer(payloads []Payload) (*Server, error) {
	if len(payloads) == 0 {
		payloads = DefaultPayloads
	}
	s := &Server{byName: make(map[string]Payload, len(payloads)), block: zeroBlock(ChunkSize)}
	for _, p := range payloads {
		if p.Filename == "" || strings.ContainsAny(p.Filename, "/\\") {
			return nil, fmt.Errorf("invalid payload filename %q", p.Filename)
		}
		if p.Bytes <= 0 {
			return nil, fmt.Errorf("payload %s: size must be positive", p.Filename)
		}
		if _, dup := s.byName[p.Filename]; dup {
			return nil, fmt.Errorf("duplicate payload %s", p.Filename)
		}
		if p.Size == "" {
			p.Size = strings.TrimSuffix(p.Filename, ".bin")
		}
		s.byName[p.Filename] = p
		s.order = append(s.order, p)
	}
	return s, nil
}

// Payloads returns the served payloads in declaration order.
func (s *Server) Payloads() []Payload {
	return append([]Payload(nil), s.order...)
}

// ServeFile streams the payload named by the {filename} route parameter.
func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	p, ok := s.byName[name]
	if !ok {
		http.Error(w, "speed test file not found", http.StatusNotFound)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Length", strconv.FormatInt(p.Bytes, 10))
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, p.Filename))
	h.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = Stream(w, p.Bytes, s.block)
}

// Catalog builds the catalog response with URLs rooted at baseURL.
func (s *Server) Catalog(baseURL string) types.CatalogResponse {
	baseURL = strings.TrimRight(baseURL, "/")
	files := make([]types.CatalogFile, 0, len(s.order))
	for _, p := range s.order {
		files = append(files, types.CatalogFile{
			Size:        p.Size,
			Filename:    p.Filename,
			Bytes:       p.Bytes,
			URL:         baseURL + "/speedtest/" + p.Filename,
			Description: fmt.Sprintf("Download %s test file", p.Size),
		})
	}
	example := "100MB.bin"
	if len(s.order) > 0 {
		example = s.order[0].Filename
	}
	return types.CatalogResponse{
		Files: files,
		Instructions: types.CatalogInstructions{
			Usage: "Right-click and 'Save As' or use wget/curl to download",
			Examples: types.CatalogExamples{
				Wget: fmt.Sprintf("wget %s/speedtest/%s", baseURL, example),
				Curl: fmt.Sprintf("curl -O %s/speedtest/%s", baseURL, example),
			},
		},
	}
}

// Stream writes n bytes of block content to w in len(block) sized writes and
// returns the number of bytes written.
func Stream(w io.Writer, n int64, block []byte) (int64, error) {
	var written int64
	for written < n {
		chunk := block
		if rem := n - written; rem < int64(len(chunk)) {
			chunk = chunk[:rem]
		}
		m, err := w.Write(chunk)
		written += int64(m)
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// zeroBlock returns n ASCII '0' bytes.
func zeroBlock(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = '0'
	}
	return b
}

// BaseURL derives scheme://host for r, honoring X-Forwarded-Proto.
func BaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return scheme + "://" + r.Host
}
