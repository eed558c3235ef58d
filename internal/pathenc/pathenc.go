// Package pathenc composes and parses the filename-encoded index used by
// the permanent and temp stores. There is no metadata table: a file's
// expiration, owner, and id all live in its basename.
package pathenc

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// Sep is the single-character separator reserved to the cache. It is
// chosen over the more obvious "_" because ids are allowed to contain
// underscores.
const Sep = "$"

const (
	permPrefix = "perm-file-cache"
	tempPrefix = "temp-file-cache"
)

var (
	ErrBadFormat    = errors.New("pathenc: bad format")
	ErrBadPrefix    = errors.New("pathenc: bad prefix")
	ErrBadTimestamp = errors.New("pathenc: bad timestamp")
	ErrBadOwner     = errors.New("pathenc: bad owner")
)

// ParsedPerm is the decoded form of a permanent file's basename.
type ParsedPerm struct {
	ExpiresAtMS int64
	ID          string
}

// ParsedTemp is the decoded form of a temp file's basename.
type ParsedTemp struct {
	Owner  string
	Unique string
	ID     string
}

// PermPath composes the path of a permanent file for id under dir.
func PermPath(dir, id string, expiresAtMS int64) string {
	base := strings.Join([]string{permPrefix, strconv.FormatInt(expiresAtMS, 10), id}, Sep)
	return filepath.Join(dir, base)
}

// TempPath composes the path of a temp file for id under tempDir.
func TempPath(tempDir, id, owner, unique string) string {
	base := strings.Join([]string{tempPrefix, owner, unique, id}, Sep)
	return filepath.Join(tempDir, base)
}

// PermWildcard returns a glob matching every permanent file for id under
// dir. An empty id matches every id.
func PermWildcard(dir, id string) string {
	if id == "" {
		return filepath.Join(dir, permPrefix+Sep+"*")
	}
	return filepath.Join(dir, permPrefix+Sep+"*"+Sep+escapeGlob(id))
}

// TempWildcard returns a glob matching every temp file under tempDir.
func TempWildcard(tempDir string) string {
	return filepath.Join(tempDir, tempPrefix+Sep+"*")
}

// escapeGlob escapes characters that filepath.Match treats specially so an
// id or namespace fragment containing them is matched literally.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '?', '[', ']', '{', '}', '*', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParsePerm decodes a permanent file's basename. Parsing splits on Sep
// with a bounded part count of 3, so an id containing Sep is preserved as
// the trailing part.
func ParsePerm(basename string) (ParsedPerm, error) {
	parts := splitN(basename, Sep, 3)
	if len(parts) != 3 {
		return ParsedPerm{}, fmt.Errorf("%w: %q", ErrBadFormat, basename)
	}
	if parts[0] != permPrefix {
		return ParsedPerm{}, fmt.Errorf("%w: %q", ErrBadPrefix, basename)
	}
	expiresAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return ParsedPerm{}, fmt.Errorf("%w: %q", ErrBadTimestamp, parts[1])
	}
	return ParsedPerm{ExpiresAtMS: expiresAt, ID: parts[2]}, nil
}

// ParseTemp decodes a temp file's basename. Parsing splits on Sep with a
// bounded part count of 4, so an id containing Sep is preserved as the
// trailing part.
func ParseTemp(basename string) (ParsedTemp, error) {
	parts := splitN(basename, Sep, 4)
	if len(parts) != 4 {
		return ParsedTemp{}, fmt.Errorf("%w: %q", ErrBadFormat, basename)
	}
	if parts[0] != tempPrefix {
		return ParsedTemp{}, fmt.Errorf("%w: %q", ErrBadPrefix, basename)
	}
	if parts[1] == "" {
		return ParsedTemp{}, fmt.Errorf("%w: %q", ErrBadOwner, basename)
	}
	return ParsedTemp{Owner: parts[1], Unique: parts[2], ID: parts[3]}, nil
}

// splitN splits s on sep into at most n parts, keeping the remainder
// (including further occurrences of sep) in the final part.
func splitN(s, sep string, n int) []string {
	parts := make([]string, 0, n)
	rest := s
	for i := 0; i < n-1; i++ {
		idx := strings.Index(rest, sep)
		if idx < 0 {
			break
		}
		parts = append(parts, rest[:idx])
		rest = rest[idx+len(sep):]
	}
	parts = append(parts, rest)
	return parts
}

// ValidID reports whether id is acceptable for put/get/delete: non-empty
// and free of the path separator. Ids are permitted to contain Sep — the
// bounded split above keeps them intact — and the permanent store's
// lookups and deletes compare the full parsed id, so an id that is a
// Sep-joined suffix of another id only matches its own files.
func ValidID(id string) bool {
	return id != "" && !strings.ContainsRune(id, filepath.Separator) && !strings.Contains(id, "/")
}
