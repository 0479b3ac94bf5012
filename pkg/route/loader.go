package route

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Load reads and validates a single route file.
// An empty route ID is filled in from the file name stem.
func Load(path string) (*Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route file: %w", err)
	}

	var r Route
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse route file %s: %w", path, err)
	}

	if r.ID == "" {
		base := filepath.Base(path)
		r.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid route in %s: %w", path, err)
	}

	return &r, nil
}

// LoadDir loads every *.json route file in a directory, sorted by route ID.
// A directory with no route files is not an error; an unparseable file is.
func LoadDir(dir string) ([]*Route, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read route directory: %w", err)
	}

	var routes []*Route
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		r, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		routes = append(routes, r)
	}

	sort.Slice(routes, func(i, j int) bool { return routes[i].ID < routes[j].ID })
	return routes, nil
}
