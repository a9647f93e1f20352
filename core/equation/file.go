package equation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DocumentEntry is the serialisable form of an Entry.
type DocumentEntry struct {
	Behavior   string   `yaml:"behavior" json:"behavior"`
	Expression string   `yaml:"expression,omitempty" json:"expression,omitempty"`
	KeyFactors []string `yaml:"key_factors,omitempty" json:"key_factors,omitempty"`
}

// Document is the serialisable form of a registry, used by registry files
// and model bundles.
type Document []DocumentEntry

// ToDocument converts the registry into its serialisable form.
func (r *Registry) ToDocument() Document {
	doc := make(Document, 0, r.Len())
	for _, e := range r.Entries() {
		doc = append(doc, DocumentEntry{Behavior: e.Behavior, Expression: e.Expression.String(), KeyFactors: e.KeyFactors})
	}
	return doc
}

// FromDocument parses every expression of doc and builds a registry. Entries
// with an empty expression are tolerated and skipped.
func FromDocument(doc Document) (*Registry, error) {
	entries := make([]Entry, 0, len(doc))
	for _, fe := range doc {
		e := Entry{Behavior: fe.Behavior, KeyFactors: fe.KeyFactors}
		if fe.Expression != "" {
			expr, err := Parse(fe.Expression)
			if err != nil {
				return nil, fmt.Errorf("behavior %s: %w", fe.Behavior, err)
			}
			e.Expression = expr
		}
		entries = append(entries, e)
	}
	return NewRegistry(entries...)
}

// LoadRegistryFile reads a YAML list of {behavior, expression, key_factors}.
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return FromDocument(doc)
}

// WriteRegistryFile writes r as YAML to path.
func WriteRegistryFile(path string, r *Registry) error {
	data, err := yaml.Marshal(r.ToDocument())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
