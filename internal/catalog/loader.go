package catalog

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"lgprobe/internal/common/fsutil"
	"lgprobe/internal/probe"
)

// fileEntry is one payload in a catalog file.
type fileEntry struct {
	ID    string `json:"id" yaml:"id" toml:"id"`
	Label string `json:"label" yaml:"label" toml:"label"`
	Bytes int64  `json:"bytes" yaml:"bytes" toml:"bytes"`
	URL   string `json:"url" yaml:"url" toml:"url"`
}

type fileDoc struct {
	// Optional base for relative payload URLs.
	BaseURL  string      `json:"base_url" yaml:"base_url" toml:"base_url"`
	Payloads []fileEntry `json:"payloads" yaml:"payloads" toml:"payloads"`
}

// LoadFile reads a catalog file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return nil, fmt.Errorf("empty catalog path")
	}
	abs, err := fsutil.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	var doc fileDoc
	switch ext := strings.ToLower(filepath.Ext(abs)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &doc)
	case ".json":
		err = json.Unmarshal(b, &doc)
	case ".toml":
		err = toml.Unmarshal(b, &doc)
	default:
		return nil, fmt.Errorf("unsupported catalog extension: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var base *url.URL
	if doc.BaseURL != "" {
		if base, err = url.Parse(doc.BaseURL); err != nil {
			return nil, fmt.Errorf("parse base_url: %w", err)
		}
	}
	items := make([]probe.PayloadDescriptor, 0, len(doc.Payloads))
	for _, e := range doc.Payloads {
		u, err := resolve(base, e.URL)
		if err != nil {
			return nil, fmt.Errorf("payload %q: %w", e.ID, err)
		}
		id := deriveID(e.ID, e.Label, u)
		label := e.Label
		if label == "" {
			label = id
		}
		items = append(items, probe.PayloadDescriptor{
			ID:         id,
			TotalBytes: e.Bytes,
			URL:        u,
			Label:      label,
		})
	}
	return New(items)
}
