package db

import (
	"errors"
	"fmt"
	"strings"
)

// Default HNSW build parameters.
const (
	DefaultHNSWM              = 16
	DefaultHNSWEFConstruction = 200
)

// Schema is the FT index layout over HASH documents sharing one key prefix.
type Schema struct {
	Name    string
	Prefix  string
	Tags    []string // exact, case-sensitive match
	Numbers []string
	Vector  VectorSpec
}

// VectorSpec is a FLOAT32 HNSW field with cosine distance.
// Alias is the name KNN queries use (@alias).
type VectorSpec struct {
	Field          string
	Alias          string
	Dim            int
	M              int
	EFConstruction int
}

// Validate checks names, duplicates and the vector dimension.
func (s Schema) Validate() error {
	if s.Name == "" {
		return errors.New("index name is required")
	}
	if strings.IndexFunc(s.Name, invalidNameRune) >= 0 {
		return fmt.Errorf("index name %q contains invalid characters", s.Name)
	}
	if s.Vector.Field == "" {
		return errors.New("vector field is required")
	}
	if s.Vector.Dim <= 0 {
		return fmt.Errorf("vector dimension must be positive, got %d", s.Vector.Dim)
	}

	seen := make(map[string]struct{}, len(s.Tags)+len(s.Numbers)+1)
	names := append(append([]string{}, s.Tags...), s.Numbers...)
	names = append(names, s.Vector.name())
	for _, n := range names {
		if n == "" {
			return errors.New("empty field name")
		}
		if _, dup := seen[n]; dup {
			return fmt.Errorf("duplicate field name: %s", n)
		}
		seen[n] = struct{}{}
	}
	return nil
}

func (v VectorSpec) name() string {
	if v.Alias != "" {
		return v.Alias
	}
	return v.Field
}

func invalidNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	case r == '_', r == ':', r == '-':
		return false
	}
	return true
}
