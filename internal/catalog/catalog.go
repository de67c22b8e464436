package catalog

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/cyberlab/internal/model"
)

// Entry is a catalog payload together with the outcome it demonstrates.
type Entry struct {
	model.Payload `yaml:",inline"`
	Mode          model.Mode `yaml:"mode"`
	Credentials   bool       `yaml:"credentials,omitempty"`
	MIME          string     `yaml:"mime,omitempty"`
	Expect        model.Kind `yaml:"expect"`
}

// Submission builds the classifier input that reproduces the entry's intent.
func (e Entry) Submission(c model.Category) model.Submission {
	sub := model.Submission{
		Category:    c,
		Mode:        e.Mode,
		Input:       e.Payload.Payload,
		Credentials: e.Credentials,
	}
	if c == model.Upload {
		mt := e.MIME
		if mt == "" {
			mt = mime.TypeByExtension(filepath.Ext(e.Payload.Payload))
		}
		if mt == "" {
			mt = "application/octet-stream"
		}
		sub.File = &model.FileInfo{Name: e.Payload.Payload, Size: 24 * 1024, MIME: mt}
	}
	return sub
}

// Overrides is the YAML shape of a catalog extension file.
type Overrides struct {
	Payloads map[string][]Entry `yaml:"payloads"`
}

// Catalog is an immutable set of payload lists keyed by lab.
type Catalog struct {
	entries map[model.Category][]Entry
}

// New builds a catalog from the built-ins plus the given extra entries,
// which are appended after the built-ins of their lab.
func New(extra map[model.Category][]Entry) *Catalog {
	c := &Catalog{entries: make(map[model.Category][]Entry, len(DefaultEntries))}
	for cat, list := range DefaultEntries {
		c.entries[cat] = append([]Entry(nil), list...)
	}
	for cat, list := range extra {
		c.entries[cat] = append(c.entries[cat], list...)
	}
	return c
}

// NewDefault returns the built-in catalog.
func NewDefault() *Catalog {
	return New(nil)
}

// Load reads catalog overrides from a YAML file. An empty path or a
// missing file yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return NewDefault(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewDefault(), nil
		}
		return nil, fmt.Errorf("read catalog overrides: %w", err)
	}

	var o Overrides
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse catalog overrides: %w", err)
	}

	extra := make(map[model.Category][]Entry, len(o.Payloads))
	for name, list := range o.Payloads {
		cat, err := model.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("catalog overrides: %w", err)
		}
		for i, e := range list {
			if strings.TrimSpace(e.Name) == "" {
				return nil, fmt.Errorf("catalog overrides: %s entry %d has no name", cat, i+1)
			}
			mode, err := model.ValidateMode(cat, e.Mode)
			if err != nil {
				return nil, fmt.Errorf("catalog overrides: %s %q: %w", cat, e.Name, err)
			}
			list[i].Mode = mode
		}
		extra[cat] = list
	}

	return New(extra), nil
}

// Payloads returns the ordered payload list for a lab. Every call returns
// a fresh slice with the same contents; unknown labs yield an empty list.
func (c *Catalog) Payloads(cat model.Category) []model.Payload {
	list := c.entries[cat]
	out := make([]model.Payload, len(list))
	for i, e := range list {
		out[i] = e.Payload
	}
	return out
}

// Entries returns a copy of the lab's entries including their intent.
func (c *Catalog) Entries(cat model.Category) []Entry {
	return append([]Entry(nil), c.entries[cat]...)
}

// Find returns the entry with the given name, matched case-insensitively.
func (c *Catalog) Find(cat model.Category, name string) (Entry, bool) {
	for _, e := range c.entries[cat] {
		if strings.EqualFold(e.Name, name) {
			return e, true
		}
	}
	return Entry{}, false
}

// Len returns the total number of payloads across all labs.
func (c *Catalog) Len() int {
	n := 0
	for _, list := range c.entries {
		n += len(list)
	}
	return n
}
