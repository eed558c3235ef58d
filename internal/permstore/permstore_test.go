package permstore

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adjust/file-cache/internal/config"
	"github.com/adjust/file-cache/internal/pathenc"
)

type fakeRemover struct{ removed []string }

func (f *fakeRemover) ScheduleRemoval(paths []string) { f.removed = append(f.removed, paths...) }

func newStore(t *testing.T, now time.Time) (*Store, *fakeRemover) {
	dir := t.TempDir()
	rem := &fakeRemover{}
	s := &Store{
		Dir:          dir,
		UnknownFiles: config.UnknownFilesKeep,
		Clock:        func() time.Time { return now },
		Remover:      rem,
	}
	require.NoError(t, s.Setup())
	return s, rem
}

func writePerm(t *testing.T, dir, id string, expiresAt int64) string {
	p := pathenc.PermPath(dir, id, expiresAt)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	return p
}

func TestFindReturnsFreshestGeneration(t *testing.T) {
	now := time.Now()
	s, _ := newStore(t, now)

	writePerm(t, s.Dir, "k", now.Add(time.Hour).UnixMilli())
	newest := writePerm(t, s.Dir, "k", now.Add(2*time.Hour).UnixMilli())

	entry, err := s.Find("k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, newest, entry.Path)
}

func TestFindSchedulesSupersededRemoval(t *testing.T) {
	now := time.Now()
	s, rem := newStore(t, now)

	older := writePerm(t, s.Dir, "k", now.Add(time.Hour).UnixMilli())
	writePerm(t, s.Dir, "k", now.Add(2*time.Hour).UnixMilli())

	_, err := s.Find("k")
	require.NoError(t, err)
	assert.Contains(t, rem.removed, older)
}

func TestFindSchedulesExpiredRemoval(t *testing.T) {
	now := time.Now()
	s, rem := newStore(t, now)

	expired := writePerm(t, s.Dir, "k", now.Add(-time.Minute).UnixMilli())

	entry, err := s.Find("k")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.Contains(t, rem.removed, expired)
}

func TestFindAllSyncCleanUnlinksInline(t *testing.T) {
	now := time.Now()
	s, rem := newStore(t, now)

	expired := writePerm(t, s.Dir, "k", now.Add(-time.Minute).UnixMilli())

	_, err := s.FindAll("", true)
	require.NoError(t, err)
	assert.Empty(t, rem.removed)
	_, statErr := os.Stat(expired)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFindAllReturnsOneEntryPerID(t *testing.T) {
	now := time.Now()
	s, _ := newStore(t, now)

	writePerm(t, s.Dir, "a", now.Add(time.Hour).UnixMilli())
	writePerm(t, s.Dir, "b", now.Add(time.Hour).UnixMilli())

	all, err := s.FindAll("", false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteRemovesAllGenerations(t *testing.T) {
	now := time.Now()
	s, _ := newStore(t, now)

	writePerm(t, s.Dir, "k", now.Add(time.Hour).UnixMilli())
	writePerm(t, s.Dir, "k", now.Add(2*time.Hour).UnixMilli())

	require.NoError(t, s.Delete("k"))

	entry, err := s.Find("k")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestUnknownFilesRemovePolicyUnlinksUnparseable(t *testing.T) {
	now := time.Now()
	s, _ := newStore(t, now)
	s.UnknownFiles = config.UnknownFilesRemove

	bogus := filepath.Join(s.Dir, "perm-file-cache$not-a-number$k")
	require.NoError(t, os.WriteFile(bogus, []byte("x"), 0644))

	_, err := s.FindAll("", true)
	require.NoError(t, err)

	_, statErr := os.Stat(bogus)
	assert.True(t, os.IsNotExist(statErr))
}

func TestUnknownFilesKeepPolicyPreservesUnparseable(t *testing.T) {
	now := time.Now()
	s, _ := newStore(t, now)

	bogus := filepath.Join(s.Dir, "perm-file-cache$not-a-number$k")
	require.NoError(t, os.WriteFile(bogus, []byte("x"), 0644))

	_, err := s.FindAll("", true)
	require.NoError(t, err)

	_, statErr := os.Stat(bogus)
	assert.NoError(t, statErr)
}

func TestFilePathUsesTTLFromNow(t *testing.T) {
	now := time.Now()
	s, _ := newStore(t, now)

	p := s.FilePath("k", time.Hour)
	parsed, err := pathenc.ParsePerm(filepath.Base(p))
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour).UnixMilli(), parsed.ExpiresAtMS)
}

func TestCommitRenamesAtomically(t *testing.T) {
	dir := t.TempDir()
	tempPath := filepath.Join(dir, "temp-file-cache$owner$uniq$k")
	require.NoError(t, os.WriteFile(tempPath, []byte("hello"), 0644))

	permPath := pathenc.PermPath(dir, "k", time.Now().Add(time.Hour).UnixMilli())
	require.NoError(t, Commit(tempPath, permPath))

	data, err := os.ReadFile(permPath)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, statErr := os.Stat(tempPath)
	assert.True(t, os.IsNotExist(statErr))
}
