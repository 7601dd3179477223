package schema

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DataExtensions are the file extensions a Catalog lists as datasets.
var DataExtensions = []string{".csv", ".tsv"}

// ErrInvalidDataset is returned for dataset ids that are not plain file names.
var ErrInvalidDataset = errors.New("invalid dataset id")

// Catalog lists the data files of a directory. Each file name is a dataset id.
type Catalog struct {
	Dir string
}

// NewCatalog creates a catalog over dir.
func NewCatalog(dir string) *Catalog {
	return &Catalog{Dir: dir}
}

// Datasets returns the data file names in the directory, sorted.
// A missing directory yields an empty list.
func (c *Catalog) Datasets(_ context.Context) ([]string, error) {
	if c.Dir == "" {
		return []string{}, nil
	}
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !IsDataFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Path returns the file backing a dataset id.
func (c *Catalog) Path(dataset string) (string, error) {
	if dataset == "" || dataset != filepath.Base(dataset) || strings.HasPrefix(dataset, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidDataset, dataset)
	}
	if !IsDataFile(dataset) {
		return "", fmt.Errorf("%w: %q is not a data file", ErrInvalidDataset, dataset)
	}
	return filepath.Join(c.Dir, dataset), nil
}

// IsDataFile reports whether a file name has a data extension.
func IsDataFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range DataExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
