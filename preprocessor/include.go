package preprocessor

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultMaxIncludeDepth bounds the include stack. Include cycles are
// legal until #pragma once or a guard stops them; the depth cap is the
// backstop.
const DefaultMaxIncludeDepth = 256

// IncludeResolver resolves #include paths to source buffers. The core
// never touches a filesystem itself.
//
// fromSourceID identifies the including source; system is true for the
// <...> form. The resolver assigns the new source its id; ids must be
// unique per resolved buffer identity so #pragma once can recognize a
// file it has seen before.
type IncludeResolver interface {
	Resolve(fromSourceID int, system bool, path string) (sourceID int, data []byte, err error)
}

// ResolverFunc adapts a function to the IncludeResolver interface.
type ResolverFunc func(fromSourceID int, system bool, path string) (int, []byte, error)

func (f ResolverFunc) Resolve(fromSourceID int, system bool, path string) (int, []byte, error) {
	return f(fromSourceID, system, path)
}

// FileResolver is an IncludeResolver over the host filesystem. Quoted
// includes are looked up relative to the including file first, then in
// SearchDirs; system includes search only SearchDirs. The same cleaned
// path always resolves to the same source id.
type FileResolver struct {
	SearchDirs []string

	ids    map[string]int
	paths  map[int]string
	nextID int
}

// NewFileResolver creates a resolver searching dirs. Source ids start
// after topLevelID so they never collide with the root buffer.
func NewFileResolver(topLevelID int, dirs ...string) *FileResolver {
	return &FileResolver{
		SearchDirs: dirs,
		ids:        make(map[string]int),
		paths:      make(map[int]string),
		nextID:     topLevelID + 1,
	}
}

// PathOf returns the path previously assigned to id.
func (r *FileResolver) PathOf(id int) string { return r.paths[id] }

// Register associates an externally loaded buffer, typically the
// top-level file, with its path so quoted includes resolve relative to
// it.
func (r *FileResolver) Register(id int, path string) { r.paths[id] = path }

func (r *FileResolver) Resolve(fromSourceID int, system bool, path string) (int, []byte, error) {
	var candidates []string
	if !system {
		if from, ok := r.paths[fromSourceID]; ok {
			candidates = append(candidates, filepath.Join(filepath.Dir(from), path))
		} else {
			candidates = append(candidates, path)
		}
	}
	for _, dir := range r.SearchDirs {
		candidates = append(candidates, filepath.Join(dir, path))
	}

	for _, cand := range candidates {
		cand = filepath.Clean(cand)
		st, err := os.Stat(cand)
		if err != nil || st.IsDir() {
			continue
		}
		data, err := os.ReadFile(cand)
		if err != nil {
			return 0, nil, err
		}
		id, ok := r.ids[cand]
		if !ok {
			id = r.nextID
			r.nextID++
			r.ids[cand] = id
			r.paths[id] = cand
		}
		return id, data, nil
	}
	return 0, nil, fmt.Errorf("cannot resolve include %q", path)
}
