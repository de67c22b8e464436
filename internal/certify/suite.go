package certify

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/cyberlab/internal/catalog"
	"github.com/ppiankov/cyberlab/internal/model"
	"github.com/ppiankov/cyberlab/internal/scenario"
)

//go:embed suites/hardened.yaml
var hardenedSuiteYAML []byte

//go:embed suites/exploitable.yaml
var exploitableSuiteYAML []byte

var builtinSuites = map[string][]byte{
	"hardened":    hardenedSuiteYAML,
	"exploitable": exploitableSuiteYAML,
}

// CatalogSuiteName selects the suite generated from the payload catalog.
const CatalogSuiteName = "catalog"

// Suite is a versioned collection of certification categories.
type Suite struct {
	Name       string     `yaml:"name"`
	Version    string     `yaml:"version"`
	Categories []Category `yaml:"categories"`
}

// Category groups related test cases under a named heading.
type Category struct {
	Name  string          `yaml:"name"`
	Cases []scenario.Case `yaml:"cases"`
}

// LoadSuite loads a built-in certification suite by name.
func LoadSuite(name string) (*Suite, error) {
	data, ok := builtinSuites[name]
	if !ok {
		return nil, fmt.Errorf("unknown certification suite: %q", name)
	}

	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse suite %q: %w", name, err)
	}

	return &s, nil
}

// ListSuites returns sorted names of all built-in certification suites,
// including the generated catalog suite.
func ListSuites() []string {
	names := make([]string, 0, len(builtinSuites)+1)
	for name := range builtinSuites {
		names = append(names, name)
	}
	names = append(names, CatalogSuiteName)
	sort.Strings(names)
	return names
}

// CatalogSuite turns every catalog entry into a case asserting its
// documented intent, one category per lab.
func CatalogSuite(c *catalog.Catalog) *Suite {
	s := &Suite{Name: CatalogSuiteName, Version: "1"}
	for _, cat := range model.Categories() {
		entries := c.Entries(cat)
		if len(entries) == 0 {
			continue
		}
		sc := Category{Name: string(cat)}
		for _, e := range entries {
			sub := e.Submission(cat)
			tc := scenario.Case{
				Category:    string(cat),
				Mode:        string(sub.Mode),
				Input:       sub.Input,
				Credentials: sub.Credentials,
				Expect:      scenario.Expectation{Kind: string(e.Expect)},
			}
			if sub.File != nil {
				tc.File = &scenario.CaseFile{Name: sub.File.Name, Size: sub.File.Size, MIME: sub.File.MIME}
			}
			sc.Cases = append(sc.Cases, tc)
		}
		s.Categories = append(s.Categories, sc)
	}
	return s
}

// Resolve returns the named suite, generating the catalog suite from c.
func Resolve(name string, c *catalog.Catalog) (*Suite, error) {
	if name == CatalogSuiteName {
		return CatalogSuite(c), nil
	}
	return LoadSuite(name)
}
