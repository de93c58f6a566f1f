package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jdejaegh/ics-fusion/internal/apperr"
)

// Store is the lookup capability the resolver and orchestrator need. How
// documents are actually kept (directory, database, ...) is not the
// engine's concern.
type Store interface {
	// LoadByName returns the parsed document for the given endpoint name.
	// A missing document yields a NOT_FOUND error.
	LoadByName(name string) (Document, error)

	// ListAvailableNames returns all endpoint names, sorted.
	ListAvailableNames() ([]string, error)
}

// DirStore reads one <name>.json document per endpoint from a directory.
type DirStore struct {
	dir string
}

// NewDirStore creates a directory-backed store.
func NewDirStore(dir string) *DirStore {
	return &DirStore{dir: dir}
}

func (s *DirStore) LoadByName(name string) (Document, error) {
	if err := checkName(name); err != nil {
		return Document{}, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, apperr.NewNotFound(name)
		}
		return Document{}, apperr.WrapConfigResolution(fmt.Sprintf("reading configuration %q", name), err)
	}

	return ParseDocument(data)
}

func (s *DirStore) ListAvailableNames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// checkName rejects names that could escape the configuration directory.
// Endpoint names come straight from URL paths, so traversal sequences and
// separators are refused rather than cleaned.
func checkName(name string) error {
	if name == "" {
		return apperr.NewNotFound(name)
	}
	if strings.Contains(name, "..") ||
		strings.ContainsAny(name, `/\`) ||
		strings.ContainsRune(name, os.PathSeparator) {
		return apperr.NewNotFound(name)
	}
	if !fs.ValidPath(name) {
		return apperr.NewNotFound(name)
	}
	return nil
}
