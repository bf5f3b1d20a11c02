package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"lgprobe/internal/probe"
	"lgprobe/pkg/types"
)

// FilesPath is the catalog endpoint of a looking-glass server.
const FilesPath = "/api/speedtest/files"

// maxCatalogBytes bounds the catalog response body.
const maxCatalogBytes = 1 << 20

// Fetch downloads the catalog published by the server at baseURL. A nil
// client uses http.DefaultClient.
func Fetch(ctx context.Context, client *http.Client, baseURL string) (*Catalog, error) {
	if client == nil {
		client = http.DefaultClient
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute, got %q", baseURL)
	}
	endpoint := base.JoinPath(FilesPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog: unexpected status %d", resp.StatusCode)
	}

	var body types.CatalogResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxCatalogBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return FromResponse(base, body)
}

// FromResponse converts a catalog response into a Catalog. Relative file
// URLs are resolved against base.
func FromResponse(base *url.URL, resp types.CatalogResponse) (*Catalog, error) {
	items := make([]probe.PayloadDescriptor, 0, len(resp.Files))
	for _, f := range resp.Files {
		u, err := resolve(base, f.URL)
		if err != nil {
			return nil, fmt.Errorf("payload %q: %w", f.Filename, err)
		}
		label := f.Description
		if label == "" {
			label = f.Size
		}
		items = append(items, probe.PayloadDescriptor{
			ID:         deriveID(f.Size, "", f.Filename),
			TotalBytes: f.Bytes,
			URL:        u,
			Label:      label,
		})
	}
	return New(items)
}

func resolve(base *url.URL, raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if ref.IsAbs() || base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
