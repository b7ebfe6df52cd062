package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 256

// FileSetSource reads a directory holding one <id>.json file per question.
type FileSetSource struct {
	*cursors
	dir   string
	cache *lru.Cache[string, map[string]any]
}

// NewFileSetSource indexes the .json files in dir. Payloads are read lazily
// and kept in a bounded LRU cache.
func NewFileSetSource(dir string, opts ...Option) (*FileSetSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading dataset directory %s: %w", dir, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(ids)

	o := buildOptions(opts)
	size := o.cacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, map[string]any](size)
	if err != nil {
		return nil, fmt.Errorf("creating payload cache: %w", err)
	}

	s := &FileSetSource{dir: dir, cache: cache}
	s.cursors = newCursors(ids, s.load, o)
	return s, nil
}

func (s *FileSetSource) load(id string) (map[string]any, error) {
	if payload, ok := s.cache.Get(id); ok {
		return payload, nil
	}

	data, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parsing %s.json: %w", id, err)
	}

	s.cache.Add(id, payload)
	return payload, nil
}
