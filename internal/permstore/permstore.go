// Package permstore implements the filename-encoded index of committed
// cache artifacts: write, find, list, and delete permanent cache files.
// There is no in-process metadata table — the only source of truth is the
// set of files on disk and what their names parse to.
package permstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adjust/file-cache/internal/config"
	"github.com/adjust/file-cache/internal/logsink"
	"github.com/adjust/file-cache/internal/pathenc"
)

// Entry is one resolved permanent file for an id.
type Entry struct {
	ID          string
	Path        string
	ExpiresAtMS int64
}

// Remover accepts paths for background deletion. The Stale Cleaner
// implements this with a buffered mailbox channel; synchronous callers
// skip it entirely and unlink inline.
type Remover interface {
	ScheduleRemoval(paths []string)
}

// Clock abstracts wall-clock access so tests can control expiry.
type Clock func() time.Time

// Store is the permanent file store for one named cache's permanent
// directory.
type Store struct {
	Dir          string
	UnknownFiles config.UnknownFilesPolicy
	Clock        Clock
	Logger       *logsink.Sink
	Remover      Remover
}

func (s *Store) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Setup ensures the permanent directory exists.
func (s *Store) Setup() error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("permstore: setup %s: %w", s.Dir, err)
	}
	return nil
}

// FilePath composes a fresh target path for id, fixing expires_at at
// now + ttl. The expiration is fixed at the start of the write, not at
// commit, per the writer pipeline's put algorithm.
func (s *Store) FilePath(id string, ttl time.Duration) string {
	expiresAt := s.now().Add(ttl).UnixMilli()
	return pathenc.PermPath(s.Dir, id, expiresAt)
}

// Find returns the freshest valid entry for id, or nil if none exists.
// As a side effect it opportunistically schedules removal of superseded
// or expired siblings for id, same as FindAll.
func (s *Store) Find(id string) (*Entry, error) {
	all, err := s.resolve(id, false)
	if err != nil {
		return nil, err
	}
	entry, ok := all[id]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// FindAll resolves every id matching idFilter ("" for all ids) and
// returns one entry per id found. This is also what the Stale Cleaner
// invokes on every tick with syncClean so deletions happen inline.
func (s *Store) FindAll(idFilter string, syncClean bool) (map[string]Entry, error) {
	return s.resolve(idFilter, syncClean)
}

// Delete synchronously removes every permanent file whose parsed id
// equals id.
func (s *Store) Delete(id string) error {
	matches, err := filepath.Glob(pathenc.PermWildcard(s.Dir, id))
	if err != nil {
		return fmt.Errorf("permstore: glob: %w", err)
	}
	for _, path := range matches {
		parsed, err := pathenc.ParsePerm(filepath.Base(path))
		if err != nil {
			continue
		}
		if parsed.ID != id {
			continue
		}
		if err := removeFile(path); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll synchronously unlinks every permanent file in the cache,
// live or expired, for the clean() operation.
func (s *Store) DeleteAll() error {
	matches, err := filepath.Glob(pathenc.PermWildcard(s.Dir, ""))
	if err != nil {
		return fmt.Errorf("permstore: glob: %w", err)
	}
	for _, path := range matches {
		if err := removeFile(path); err != nil {
			return err
		}
	}
	return nil
}

// CountParseable counts every permanent file whose basename parses,
// regardless of expiry — stats().current matches this, not the deduped
// per-id view FindAll returns.
func (s *Store) CountParseable() (int, error) {
	matches, err := filepath.Glob(pathenc.PermWildcard(s.Dir, ""))
	if err != nil {
		return 0, fmt.Errorf("permstore: glob: %w", err)
	}
	n := 0
	for _, path := range matches {
		if _, err := pathenc.ParsePerm(filepath.Base(path)); err == nil {
			n++
		}
	}
	return n, nil
}

// RemoveFile either unlinks path now (sync) or hands it to the Remover
// for background deletion (fire-and-forget).
func (s *Store) RemoveFile(path string, sync bool) error {
	if sync || s.Remover == nil {
		return removeFile(path)
	}
	s.Remover.ScheduleRemoval([]string{path})
	return nil
}

// resolve implements the find_all resolution algorithm: enumerate the
// wildcard for idFilter, parse each match, and keep only the
// greatest-expires_at file per id, scheduling every loser for removal.
func (s *Store) resolve(idFilter string, syncClean bool) (map[string]Entry, error) {
	matches, err := filepath.Glob(pathenc.PermWildcard(s.Dir, idFilter))
	if err != nil {
		return nil, fmt.Errorf("permstore: glob: %w", err)
	}

	now := s.now().UnixMilli()
	acc := make(map[string]Entry)
	var toRemove []string

	for _, path := range matches {
		parsed, err := pathenc.ParsePerm(filepath.Base(path))
		if err != nil {
			s.maybeRemoveUnknownFile(path, err)
			continue
		}
		if idFilter != "" && parsed.ID != idFilter {
			continue
		}
		if parsed.ExpiresAtMS <= now {
			toRemove = append(toRemove, path)
			continue
		}
		prev, ok := acc[parsed.ID]
		switch {
		case !ok, ok && prev.ExpiresAtMS < parsed.ExpiresAtMS:
			if ok {
				toRemove = append(toRemove, prev.Path)
			}
			acc[parsed.ID] = Entry{ID: parsed.ID, Path: path, ExpiresAtMS: parsed.ExpiresAtMS}
		default:
			toRemove = append(toRemove, path)
		}
	}

	if len(toRemove) > 0 {
		if syncClean {
			for _, path := range toRemove {
				if err := removeFile(path); err != nil && s.Logger != nil {
					s.Logger.Error(err, fmt.Sprintf("failed to remove %s", path))
				}
			}
		} else if s.Remover != nil {
			s.Remover.ScheduleRemoval(toRemove)
		}
	}

	return acc, nil
}

// maybeRemoveUnknownFile applies the unknown_files policy to a file whose
// basename failed to parse.
func (s *Store) maybeRemoveUnknownFile(path string, parseErr error) {
	if s.Logger != nil {
		s.Logger.Warnf("ignoring unparseable permanent file %s: %v", path, parseErr)
	}
	if s.UnknownFiles != config.UnknownFilesRemove {
		return
	}
	if err := removeFile(path); err != nil && s.Logger != nil {
		s.Logger.Error(err, fmt.Sprintf("failed to remove unknown file %s", path))
	}
}

// removeFile unlinks path, mapping ENOENT to success since an already-gone
// file satisfies the caller's intent (another cleaner or writer may have
// raced it).
func removeFile(path string) error {
	err := os.Remove(path)
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	return fmt.Errorf("permstore: remove %s: %w", path, err)
}

// Commit atomically publishes tempPath under permPath via the OS rename
// primitive. renameio is deliberately not used here: it mints its own
// randomized temp basename alongside its target, which would hide the
// pending write from the Temp Cleaner's wildcard scan — the writer
// pipeline's own temp filename (encoding owner and unique tokens) must
// survive until the rename commits so a crash mid-write still leaves an
// attributable, reclaimable orphan.
func Commit(tempPath, permPath string) error {
	if err := os.Rename(tempPath, permPath); err != nil {
		return fmt.Errorf("permstore: rename %s -> %s: %w", tempPath, permPath, err)
	}
	return nil
}
