//go:build !windows
// +build !windows

// Package xos provides the atomic file write primitive used by
// configuration tooling that persists a manifest back to disk.
package xos

import (
	"os"

	"github.com/google/renameio/v2"
)

// WriteFile writes data to filename atomically via rename. If filename
// does not exist it is created with perm; otherwise it is replaced.
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(filename, data, perm)
}
