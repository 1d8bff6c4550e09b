package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/wkalt/tsjoin/table"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ErrNoFiles is returned when no file matches the supplied patterns.
var ErrNoFiles = errors.New("no files matched")

// StdoutRedirected returns true if stdout is redirected to a file or pipe.
func StdoutRedirected() bool {
	if fi, err := os.Stdout.Stat(); err == nil {
		return (fi.Mode() & os.ModeCharDevice) == 0
	}
	return false
}

// ContentType returns the upload content type for a table file, based on its
// extension.
func ContentType(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return "text/csv", nil
	case ".json":
		return "application/json", nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", path)
	}
}

// ReadTable reads a CSV or JSON table file. Type hints apply to CSV input.
func ReadTable(name string, path string, hints map[string]table.ColumnType) (*table.Table, error) {
	contentType, err := ContentType(path)
	if err != nil {
		return nil, err
	}
	if contentType == "text/csv" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		t, err := table.ReadCSV(name, f, hints)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	t, err := table.DecodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	t.Name = name
	return t, nil
}

// Glob expands doublestar patterns into a sorted, deduplicated list of files.
func Glob(patterns ...string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			seen[m] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, strings.Join(patterns, ", "))
	}
	paths := maps.Keys(seen)
	slices.Sort(paths)
	return paths, nil
}

// LoadTables reads every file matching the patterns and concatenates them, in
// path order, into one table. The files must share a schema.
func LoadTables(name string, hints map[string]table.ColumnType, patterns ...string) (*table.Table, error) {
	paths, err := Glob(patterns...)
	if err != nil {
		return nil, err
	}
	tables := make([]*table.Table, 0, len(paths))
	for _, path := range paths {
		t, err := ReadTable(name, path, hints)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return table.Concat(name, tables...)
}
