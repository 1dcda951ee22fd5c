// Package pipeline wires the delineation stages into a configured,
// resumable run against a persistence layer. Stores can be backed by real
// files in production and by in-memory fixtures in tests.
package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ctessum/geom"

	"wetland-mapper/internal/raster"
	"wetland-mapper/internal/vector"
)

// GridStore persists integer and float grids under slash-separated
// relative names.
type GridStore interface {
	LoadGrid(name string) (*raster.Grid, error)
	StoreGrid(name string, g *raster.Grid) error
	LoadFloatGrid(name string) (*raster.FloatGrid, error)
	StoreFloatGrid(name string, g *raster.FloatGrid) error
	HasGrid(name string) bool
	// ListGrids returns the sorted grid names directly under dir.
	ListGrids(dir string) ([]string, error)
}

// VectorStore persists polygon feature collections and line networks.
type VectorStore interface {
	LoadVectors(name string) (vector.Collection, error)
	StoreVectors(name string, c vector.Collection) error
	HasVectors(name string) bool
	LoadLines(name string) ([]geom.LineString, string, error)
	StoreLines(name string, lines []geom.LineString, crs string) error
}

// Store is the full persistence layer a run needs.
type Store interface {
	GridStore
	VectorStore
}

// MemStore is a map-backed store for tests and fixtures. Stored values are
// deep-copied on the grid side so later stages cannot observe mutation.
type MemStore struct {
	mu     sync.RWMutex
	grids  map[string]*raster.Grid
	floats map[string]*raster.FloatGrid
	vecs   map[string]vector.Collection
	lines  map[string]memLines
}

type memLines struct {
	lines []geom.LineString
	crs   string
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		grids:  make(map[string]*raster.Grid),
		floats: make(map[string]*raster.FloatGrid),
		vecs:   make(map[string]vector.Collection),
		lines:  make(map[string]memLines),
	}
}

// LoadGrid implements GridStore.
func (s *MemStore) LoadGrid(name string) (*raster.Grid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.grids[name]
	if !ok {
		return nil, fmt.Errorf("memstore: no grid %q", name)
	}
	return g.Clone(), nil
}

// StoreGrid implements GridStore.
func (s *MemStore) StoreGrid(name string, g *raster.Grid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grids[name] = g.Clone()
	return nil
}

// LoadFloatGrid implements GridStore.
func (s *MemStore) LoadFloatGrid(name string) (*raster.FloatGrid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.floats[name]
	if !ok {
		return nil, fmt.Errorf("memstore: no float grid %q", name)
	}
	c := raster.NewFloatGrid(g.Def)
	copy(c.Data, g.Data)
	return c, nil
}

// StoreFloatGrid implements GridStore.
func (s *MemStore) StoreFloatGrid(name string, g *raster.FloatGrid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := raster.NewFloatGrid(g.Def)
	copy(c.Data, g.Data)
	s.floats[name] = c
	return nil
}

// HasGrid implements GridStore.
func (s *MemStore) HasGrid(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, g := s.grids[name]
	_, f := s.floats[name]
	return g || f
}

// ListGrids implements GridStore.
func (s *MemStore) ListGrids(dir string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var names []string
	for n := range s.grids {
		if strings.HasPrefix(n, prefix) && !strings.Contains(n[len(prefix):], "/") {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// LoadVectors implements VectorStore.
func (s *MemStore) LoadVectors(name string) (vector.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.vecs[name]
	if !ok {
		return vector.Collection{}, fmt.Errorf("memstore: no vectors %q", name)
	}
	return c, nil
}

// StoreVectors implements VectorStore.
func (s *MemStore) StoreVectors(name string, c vector.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vecs[name] = c
	return nil
}

// HasVectors implements VectorStore.
func (s *MemStore) HasVectors(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.vecs[name]
	return ok
}

// LoadLines implements VectorStore.
func (s *MemStore) LoadLines(name string) ([]geom.LineString, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.lines[name]
	if !ok {
		return nil, "", fmt.Errorf("memstore: no lines %q", name)
	}
	return l.lines, l.crs, nil
}

// StoreLines implements VectorStore.
func (s *MemStore) StoreLines(name string, lines []geom.LineString, crs string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[name] = memLines{lines: lines, crs: crs}
	return nil
}
