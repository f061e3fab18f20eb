package intent

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fallback is the reserved intent name used when no pattern matches.
const Fallback = "fallback"

// Definition is one configured intent: a unique name, the regex patterns
// that select it, and the response templates it may reply with.
type Definition struct {
	Name      string   `yaml:"name"`
	Patterns  []string `yaml:"patterns"`
	Responses []string `yaml:"responses"`
}

// Document is the on-disk intents file.
type Document struct {
	DefaultResponse string       `yaml:"default_response"`
	Intents         []Definition `yaml:"intents"`
}

// Catalog holds intent definitions keyed by name. Declaration order is
// preserved alongside the lookup map because matching is first-match-wins
// over the configured order.
type Catalog struct {
	order  []string
	byName map[string]Definition
}

// NewCatalog builds a catalog from raw definitions, preserving their order.
// Definitions without a name are skipped; duplicate names are an error.
func NewCatalog(defs []Definition) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]Definition, len(defs))}
	for _, def := range defs {
		if def.Name == "" {
			continue
		}
		if _, exists := c.byName[def.Name]; exists {
			return nil, fmt.Errorf("duplicate intent name %q", def.Name)
		}
		c.order = append(c.order, def.Name)
		c.byName[def.Name] = def
	}
	return c, nil
}

// Names returns intent names in declaration order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// Lookup returns the definition for name, reporting whether it exists.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	def, ok := c.byName[name]
	return def, ok
}

// Len reports the number of intents in the catalog.
func (c *Catalog) Len() int {
	return len(c.order)
}

const DefaultResponse = "I'm not sure I understand."

// LoadFile reads an intents YAML document and returns the catalog and the
// configured default response. Any read or parse failure is fatal to the
// caller: the engine cannot be built from a broken intents file.
func LoadFile(path string) (*Catalog, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read intents %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes an intents document from raw YAML bytes.
func Parse(data []byte) (*Catalog, string, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, "", fmt.Errorf("parse intents: %w", err)
	}

	catalog, err := NewCatalog(doc.Intents)
	if err != nil {
		return nil, "", err
	}

	defaultResp := doc.DefaultResponse
	if defaultResp == "" {
		defaultResp = DefaultResponse
	}
	return catalog, defaultResp, nil
}
