package route

import (
	"fmt"
	"os"
)

// Source supplies the canonical route features.
// Registries re-read it on every full reload and single-anchor reset.
type Source interface {
	Features() ([]Feature, error)
}

// StaticSource is an in-memory route.
type StaticSource []Feature

func (s StaticSource) Features() ([]Feature, error) {
	out := make([]Feature, len(s))
	for i, f := range s {
		out[i] = f.Copy()
	}
	return out, nil
}

// FileSource reads the route file each time it is asked.
type FileSource struct {
	Path string
}

func (s FileSource) Features() ([]Feature, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("route: read %s: %w", s.Path, err)
	}
	return Parse(data)
}
