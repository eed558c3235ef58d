// Package tempstore allocates and enumerates the temp staging files a
// producer writes into before its content is committed under a
// permanent name.
package tempstore

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adjust/file-cache/internal/pathenc"
	"github.com/google/uuid"
)

// Parsed is the decoded form of a temp file discovered on disk.
type Parsed struct {
	Owner string
	ID    string
	Path  string
}

// Store is the temp file store for one named cache's temp directory.
type Store struct {
	Dir string
}

// Setup ensures the temp directory exists.
func (s *Store) Setup() error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("tempstore: setup %s: %w", s.Dir, err)
	}
	return nil
}

// FilePath composes a fresh staging path for id, owned by owner. unique
// is a fresh UUID, scoped globally but in practice unique per allocation
// within this cache process.
func (s *Store) FilePath(id, owner string) string {
	return pathenc.TempPath(s.Dir, id, owner, uuid.NewString())
}

// Wildcard returns a glob matching every temp file for this cache.
func (s *Store) Wildcard() string {
	return pathenc.TempWildcard(s.Dir)
}

// List enumerates every temp file currently on disk, parsing each
// basename. Paths that fail to parse are returned separately, as raw
// paths in the second slice, so the Temp Cleaner can apply unknown_files
// policy to them.
func (s *Store) List() ([]Parsed, []string, error) {
	matches, err := filepath.Glob(s.Wildcard())
	if err != nil {
		return nil, nil, fmt.Errorf("tempstore: glob: %w", err)
	}

	var parsed []Parsed
	var unparseable []string
	for _, path := range matches {
		p, err := pathenc.ParseTemp(filepath.Base(path))
		if err != nil {
			unparseable = append(unparseable, path)
			continue
		}
		parsed = append(parsed, Parsed{Owner: p.Owner, ID: p.ID, Path: path})
	}
	return parsed, unparseable, nil
}

// Count returns the total number of temp files present, parseable or
// not — stats().in_progress: every file here is a write someone started
// and hasn't yet committed or rolled back.
func (s *Store) Count() (int, error) {
	matches, err := filepath.Glob(s.Wildcard())
	if err != nil {
		return 0, fmt.Errorf("tempstore: glob: %w", err)
	}
	return len(matches), nil
}

// ParseFilepath decodes a single temp file path that the caller already
// has in hand.
func (s *Store) ParseFilepath(path string) (Parsed, error) {
	p, err := pathenc.ParseTemp(filepath.Base(path))
	if err != nil {
		return Parsed{}, err
	}
	return Parsed{Owner: p.Owner, ID: p.ID, Path: path}, nil
}

// Remove unlinks a temp file, mapping ENOENT to success.
func (s *Store) Remove(path string) error {
	err := os.Remove(path)
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	return fmt.Errorf("tempstore: remove %s: %w", path, err)
}
