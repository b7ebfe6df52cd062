package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ListSource serves questions from one list held in memory. Ids are the
// string form of each record's index.
type ListSource struct {
	*cursors
	records []map[string]any
}

// NewListSource loads a list file. The format follows the extension:
// .json (array of objects), .yaml/.yml (sequence of mappings) or .csv
// (header row plus one row per question).
func NewListSource(path string, opts ...Option) (*ListSource, error) {
	var records []map[string]any

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".csv":
		rows, err := LoadCSV(path)
		if err != nil {
			return nil, err
		}
		records = make([]map[string]any, len(rows))
		for i, row := range rows {
			rec := make(map[string]any, len(row))
			for k, v := range row {
				rec[k] = v
			}
			records[i] = rec
		}
	default:
		return nil, fmt.Errorf("unsupported list format %q", filepath.Ext(path))
	}

	return NewListSourceFromRecords(records, opts...), nil
}

// NewListSourceFromRecords wraps records already in memory.
func NewListSourceFromRecords(records []map[string]any, opts ...Option) *ListSource {
	ids := make([]string, len(records))
	for i := range records {
		ids[i] = strconv.Itoa(i)
	}
	s := &ListSource{records: records}
	s.cursors = newCursors(ids, s.load, buildOptions(opts))
	return s
}

func (s *ListSource) load(id string) (map[string]any, error) {
	i, err := strconv.Atoi(id)
	if err != nil || i < 0 || i >= len(s.records) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s.records[i], nil
}
