package features

import (
	"slices"

	"github.com/MikeSquared-Agency/Pathfinder/internal/apperr"
)

// Schema is the ordered feature list loaded alongside a set of pipelines.
// It is validated once at construction and read-only afterwards.
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema validates names (non-empty, unique, no blank entries).
func NewSchema(names []string) (*Schema, error) {
	if len(names) == 0 {
		return nil, apperr.Integrity("feature list is empty")
	}
	s := &Schema{
		names: slices.Clone(names),
		index: make(map[string]int, len(names)),
	}
	for i, n := range names {
		if n == "" {
			return nil, apperr.Integrity("feature %d has an empty name", i)
		}
		if _, dup := s.index[n]; dup {
			return nil, apperr.Integrity("feature %q listed twice", n)
		}
		s.index[n] = i
	}
	return s, nil
}

// Names returns a copy of the ordered feature names.
func (s *Schema) Names() []string {
	return slices.Clone(s.names)
}

func (s *Schema) Len() int {
	return len(s.names)
}

// Index returns the position of name, or -1.
func (s *Schema) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// Vector builds the ordered numeric vector for p, substituting 0 for absent
// features. Keys outside the schema are ignored.
func (s *Schema) Vector(p Profile) []float64 {
	x := make([]float64, len(s.names))
	for i, n := range s.names {
		x[i] = p[n]
	}
	return x
}
