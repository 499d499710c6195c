package parser

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/vesper-lang/vesper/internal/diag"
	"github.com/vesper-lang/vesper/internal/entity"
	"github.com/vesper-lang/vesper/internal/source"
)

// SharedState is the session shared by every unit of one check: the
// entity pool, the diagnostic sink, the unit cache and the loader the
// source text comes from. A file is parsed at most once per session;
// later requests for the same resolved path reuse the cached unit, so
// imported entities keep their identity everywhere.
//
// Roots checked concurrently serialize on the session lock for the
// whole of their import tree, which keeps the pool and sink coherent
// without finer locking. Concurrent requests for the same root share
// one parse. Cycle detection runs per import chain.
type SharedState struct {
	loader source.Loader

	mu    sync.Mutex
	sf    singleflight.Group
	pool  *entity.Pool
	sink  *diag.Sink
	units map[string]*UnitParser
	files map[string]*source.File
}

// NewSharedState creates a session reading sources from loader
func NewSharedState(loader source.Loader) *SharedState {
	s := &SharedState{
		loader: loader,
		pool:   entity.NewPool(),
		sink:   diag.NewSink(),
		units:  make(map[string]*UnitParser),
		files:  make(map[string]*source.File),
	}
	s.seedBuiltins()
	return s
}

// seedBuiltins installs the primitive type names in the global
// namespace so annotations resolve without declarations.
func (s *SharedState) seedBuiltins() {
	builtins := []struct {
		name string
		t    *entity.Type
	}{
		{"bool", entity.Bool},
		{"int", entity.Int},
		{"float", entity.Float},
		{"string", entity.String},
	}
	for _, b := range builtins {
		id := s.pool.NewTypeEntity(s.pool.Global(), b.name, b.t)
		s.pool.Push(s.pool.Global(), b.name, id)
	}
}

// Pool returns the session's entity pool
func (s *SharedState) Pool() *entity.Pool { return s.pool }

// Sink returns the session's diagnostic sink
func (s *SharedState) Sink() *diag.Sink { return s.sink }

// Files returns every source file loaded this session, sorted by
// name, for diagnostic rendering.
func (s *SharedState) Files() []*source.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	files := make([]*source.File, 0, len(s.files))
	for _, f := range s.files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files
}

// Units returns every unit parsed this session, sorted by path
func (s *SharedState) Units() []*UnitParser {
	s.mu.Lock()
	defer s.mu.Unlock()
	units := make([]*UnitParser, 0, len(s.units))
	for _, u := range s.units {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].file.Name < units[j].file.Name })
	return units
}

// Unit returns the cached unit for path, if the session has parsed it
func (s *SharedState) Unit(path string) (*UnitParser, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[filepath.Clean(path)]
	return u, ok
}

// ParseRoot checks path as a root unit. The returned error covers
// failures to obtain the source at all; parse and check findings land
// in the session sink.
func (s *SharedState) ParseRoot(path string) (*UnitParser, error) {
	resolved := filepath.Clean(path)
	v, err, _ := s.sf.Do(resolved, func() (interface{}, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		unit, uerr := s.parseUnit(resolved, nil)
		if uerr != nil {
			return nil, uerr
		}
		return unit, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*UnitParser), nil
}

// parseUnit returns the unit for a resolved path, parsing it on first
// use. chain lists the units whose imports led here, nearest last; a
// path importing itself through any chain is rejected before anything
// loads. Callers hold the session lock and import recursion stays on
// the locked goroutine.
func (s *SharedState) parseUnit(resolved string, chain []string) (*UnitParser, *diag.Error) {
	for _, link := range chain {
		if link == resolved {
			cycle := strings.Join(append(append([]string{}, chain...), resolved), " -> ")
			return nil, diag.Failf(source.Span{}, "Circular import of %q (%s)", resolved, cycle)
		}
	}
	if unit, ok := s.units[resolved]; ok {
		return unit, nil
	}

	content, err := s.loader.Load(resolved)
	if err != nil {
		return nil, diag.Failf(source.Span{}, "%s", err)
	}
	file := source.NewFile(resolved, content)
	s.files[resolved] = file

	next := make([]string, 0, len(chain)+1)
	next = append(next, chain...)
	next = append(next, resolved)
	unit := newUnitParser(s, file, next)
	s.units[resolved] = unit
	unit.parse()
	return unit, nil
}

// resolveImport joins an import string onto the importing file's
// directory. Absolute imports stand alone.
func (s *SharedState) resolveImport(dir, from string) string {
	if filepath.IsAbs(from) {
		return filepath.Clean(from)
	}
	return filepath.Join(dir, from)
}
