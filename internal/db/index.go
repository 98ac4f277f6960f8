package db

import (
	"errors"
	"fmt"
)

// HNSW holds the graph parameters of a vector field. Zero values keep server defaults.
type HNSW struct {
	M           int // max edges per node
	EFConstruct int // build-time candidate list size
}

// VectorField is a FLOAT32 HNSW field with cosine distance. Every vector slot of a bucket uses one.
type VectorField struct {
	Name string
	Dim  int
	HNSW HNSW
}

// IndexDefinition is an FT index over the point hashes of one bucket.
// Only vector fields are indexed; payload fields are read back with RETURN.
type IndexDefinition struct {
	Name    string
	Prefix  string
	Vectors []VectorField
}

// Validate checks that the definition can be sent as FT.CREATE.
func (d *IndexDefinition) Validate() error {
	if !IsValidIdentifier(d.Name) {
		return fmt.Errorf("invalid index name %q", d.Name)
	}
	if len(d.Vectors) == 0 {
		return errors.New("at least one vector field is required")
	}

	seen := make(map[string]struct{}, len(d.Vectors))
	for _, v := range d.Vectors {
		if v.Name == "" {
			return errors.New("field name is required")
		}
		if _, dup := seen[v.Name]; dup {
			return fmt.Errorf("duplicate field %q", v.Name)
		}
		seen[v.Name] = struct{}{}
		if v.Dim <= 0 {
			return fmt.Errorf("vector field %q: dim must be positive", v.Name)
		}
	}
	return nil
}

// IndexBuilder assembles an IndexDefinition.
type IndexBuilder struct {
	def IndexDefinition
}

// NewIndex starts an index definition.
func NewIndex(name string) *IndexBuilder {
	return &IndexBuilder{def: IndexDefinition{Name: name}}
}

// Prefix sets the key prefix covered by the index.
func (b *IndexBuilder) Prefix(p string) *IndexBuilder {
	b.def.Prefix = p
	return b
}

// Vector adds a cosine HNSW vector field.
func (b *IndexBuilder) Vector(name string, dim int, hnsw HNSW) *IndexBuilder {
	b.def.Vectors = append(b.def.Vectors, VectorField{Name: name, Dim: dim, HNSW: hnsw})
	return b
}

// Build validates and returns the definition.
func (b *IndexBuilder) Build() (*IndexDefinition, error) {
	if err := b.def.Validate(); err != nil {
		return nil, err
	}
	return &b.def, nil
}

// IsValidIdentifier reports whether s matches [a-zA-Z0-9_:-]+.
func IsValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == ':' || r == '-':
		default:
			return false
		}
	}
	return true
}
