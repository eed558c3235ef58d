//go:build windows
// +build windows

// Package xos provides the atomic file write primitive used by
// configuration tooling that persists a manifest back to disk. Windows
// cannot rename over an open/existing target the way POSIX can, so the
// existing file is removed first.
package xos

import (
	"os"
	"path/filepath"
)

// WriteFile writes data to a temp file in the same directory and renames
// it onto filename. An existing filename is removed before the rename, so
// the replacement is not atomic: between the two steps filename is
// absent.
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	tempFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tempName, perm); err != nil {
		return err
	}

	if _, err := os.Stat(filename); err == nil {
		if err := os.Remove(filename); err != nil {
			return err
		}
	}
	if err := os.Rename(tempName, filename); err != nil {
		return err
	}

	success = true
	return nil
}
