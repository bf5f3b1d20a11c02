// Package catalog provides the payload descriptors a probe can target. A
// catalog is read once per session, from a looking-glass server or a file.
package catalog

import (
	"fmt"
	"path"
	"strings"

	"github.com/gosimple/slug"

	"lgprobe/internal/probe"
)

// Catalog is an immutable, ordered set of payload descriptors.
type Catalog struct {
	items []probe.PayloadDescriptor
	byID  map[string]int
}

// New validates items and builds a Catalog. Ids must be unique.
func New(items []probe.PayloadDescriptor) (*Catalog, error) {
	c := &Catalog{
		items: make([]probe.PayloadDescriptor, 0, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	for _, d := range items {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate payload id %q", d.ID)
		}
		c.byID[d.ID] = len(c.items)
		c.items = append(c.items, d)
	}
	return c, nil
}

// All returns the descriptors in catalog order.
func (c *Catalog) All() []probe.PayloadDescriptor {
	out := make([]probe.PayloadDescriptor, len(c.items))
	copy(out, c.items)
	return out
}

// Lookup finds a descriptor by id.
func (c *Catalog) Lookup(id string) (probe.PayloadDescriptor, bool) {
	i, ok := c.byID[id]
	if !ok {
		return probe.PayloadDescriptor{}, false
	}
	return c.items[i], true
}

// Len returns the number of descriptors.
func (c *Catalog) Len() int { return len(c.items) }

// deriveID picks the explicit id when present, otherwise a slug of the
// label or of the file name without its extension.
func deriveID(explicit, label, filename string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	if label = strings.TrimSpace(label); label != "" {
		return slug.Make(label)
	}
	base := path.Base(filename)
	return slug.Make(strings.TrimSuffix(base, path.Ext(base)))
}
