package pathenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermPathRoundTrip(t *testing.T) {
	p := PermPath("/tmp/cache", "report-1", 1700000000000)
	parsed, err := ParsePerm(basename(p))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), parsed.ExpiresAtMS)
	assert.Equal(t, "report-1", parsed.ID)
}

func TestTempPathRoundTrip(t *testing.T) {
	p := TempPath("/tmp/cache-tmp", "my-id", "owner-1", "unique-1")
	parsed, err := ParseTemp(basename(p))
	require.NoError(t, err)
	assert.Equal(t, "owner-1", parsed.Owner)
	assert.Equal(t, "unique-1", parsed.Unique)
	assert.Equal(t, "my-id", parsed.ID)
}

func TestParsePermBoundedSplitKeepsSepInID(t *testing.T) {
	base := permPrefix + Sep + "123" + Sep + "a$b$c"
	parsed, err := ParsePerm(base)
	require.NoError(t, err)
	assert.Equal(t, "a$b$c", parsed.ID)
}

func TestParseTempBoundedSplitKeepsSepInID(t *testing.T) {
	base := tempPrefix + Sep + "owner" + Sep + "uniq" + Sep + "a$b$c"
	parsed, err := ParseTemp(base)
	require.NoError(t, err)
	assert.Equal(t, "a$b$c", parsed.ID)
}

func TestParsePermRejectsForeignPrefix(t *testing.T) {
	_, err := ParsePerm("something-else$123$id")
	assert.ErrorIs(t, err, ErrBadPrefix)
}

func TestParsePermRejectsBadTimestamp(t *testing.T) {
	_, err := ParsePerm(permPrefix + Sep + "not-a-number" + Sep + "id")
	assert.ErrorIs(t, err, ErrBadTimestamp)
}

func TestParseTempRejectsEmptyOwner(t *testing.T) {
	_, err := ParseTemp(tempPrefix + Sep + Sep + "uniq" + Sep + "id")
	assert.ErrorIs(t, err, ErrBadOwner)
}

func TestParseRejectsShortBasename(t *testing.T) {
	_, err := ParsePerm("too-short")
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestPermWildcardEscapesGlobMetacharacters(t *testing.T) {
	w := PermWildcard("/tmp/cache", "weird[id]")
	assert.Contains(t, w, `weird\[id\]`)
}

func TestPermWildcardAllIDs(t *testing.T) {
	w := PermWildcard("/tmp/cache", "")
	assert.Contains(t, w, permPrefix+Sep+"*")
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("report-1"))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID("a/b"))
}

func basename(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' {
			return p[i+1:]
		}
	}
	return p
}
