package filecache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, name string, opts Options) *Cache {
	t.Helper()
	opts.Cache = name
	opts.Dir = t.TempDir()
	opts.TempDir = t.TempDir()
	c, err := Start(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Stop(context.Background()) })
	return c
}

func TestPutThenGetRoundTrips(t *testing.T) {
	c := newTestCache(t, "t-put-get", Options{TTL: time.Minute})

	_, err := c.Put(context.Background(), "greeting", Bytes("hello"))
	require.NoError(t, err)

	stream, err := c.Get(context.Background(), "greeting")
	require.NoError(t, err)
	require.NotNil(t, stream)
	defer stream.Close()

	got, err := Concat(streamAsProducer(t, stream))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestGetMissReturnsNil(t *testing.T) {
	c := newTestCache(t, "t-get-miss", Options{TTL: time.Minute})

	stream, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, stream)
}

func TestExistsReflectsPresence(t *testing.T) {
	c := newTestCache(t, "t-exists", Options{TTL: time.Minute})

	ok, err := c.Exists(context.Background(), "id1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.Put(context.Background(), "id1", Bytes("x"))
	require.NoError(t, err)

	ok, err = c.Exists(context.Background(), "id1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetRecordMetadata(t *testing.T) {
	c := newTestCache(t, "t-record", Options{TTL: time.Minute})

	_, err := c.Put(context.Background(), "id1", Bytes("x"))
	require.NoError(t, err)

	rec, err := c.GetRecord(context.Background(), "id1")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "id1", rec.ID)
	assert.True(t, rec.ExpiresAt.After(time.Now()))
	assert.Greater(t, rec.TTLRemaining(), time.Duration(0))
}

func TestPutSupersedesPreviousGeneration(t *testing.T) {
	c := newTestCache(t, "t-supersede", Options{TTL: time.Minute})

	_, err := c.Put(context.Background(), "id1", Bytes("first"))
	require.NoError(t, err)
	_, err = c.Put(context.Background(), "id1", Bytes("second"))
	require.NoError(t, err)

	stream, err := c.Get(context.Background(), "id1")
	require.NoError(t, err)
	got, err := Concat(streamAsProducer(t, stream))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	// The superseded generation is removed by the Stale Cleaner from its
	// mailbox, asynchronously with respect to Put and Get.
	require.Eventually(t, func() bool {
		stats, err := c.Stats(context.Background())
		return err == nil && stats.Current == 1
	}, time.Second, 10*time.Millisecond)
}

func TestDeleteRemovesEntry(t *testing.T) {
	c := newTestCache(t, "t-delete", Options{TTL: time.Minute})

	_, err := c.Put(context.Background(), "id1", Bytes("x"))
	require.NoError(t, err)
	require.NoError(t, c.Delete(context.Background(), "id1"))

	ok, err := c.Exists(context.Background(), "id1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCleanWipesEverything(t *testing.T) {
	c := newTestCache(t, "t-clean", Options{TTL: time.Minute})

	_, err := c.Put(context.Background(), "id1", Bytes("x"))
	require.NoError(t, err)
	_, err = c.Put(context.Background(), "id2", Bytes("y"))
	require.NoError(t, err)

	require.NoError(t, c.Clean(context.Background()))

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Current)
}

func TestExecuteSkipsProducerOnHit(t *testing.T) {
	c := newTestCache(t, "t-execute-hit", Options{TTL: time.Minute})

	_, err := c.Put(context.Background(), "id1", Bytes("cached"))
	require.NoError(t, err)

	called := false
	producer := Thunk(func() (Producer, error) {
		called = true
		return Bytes("fresh"), nil
	})

	stream, err := c.Execute(context.Background(), "id1", producer)
	require.NoError(t, err)
	got, err := Concat(streamAsProducer(t, stream))
	require.NoError(t, err)
	assert.Equal(t, "cached", string(got))
	assert.False(t, called)
}

func TestExecuteInvokesProducerOnMiss(t *testing.T) {
	c := newTestCache(t, "t-execute-miss", Options{TTL: time.Minute})

	called := false
	producer := Thunk(func() (Producer, error) {
		called = true
		return Bytes("fresh"), nil
	})

	stream, err := c.Execute(context.Background(), "id1", producer)
	require.NoError(t, err)
	got, err := Concat(streamAsProducer(t, stream))
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(got))
	assert.True(t, called)
}

func TestStaleEntryAutoSwept(t *testing.T) {
	c := newTestCache(t, "t-stale-sweep", Options{
		TTL:                10 * time.Millisecond,
		StaleCleanInterval: 20 * time.Millisecond,
	})

	_, err := c.Put(context.Background(), "id1", Bytes("x"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		stats, err := c.Stats(context.Background())
		return err == nil && stats.Current == 0
	}, time.Second, 10*time.Millisecond)
}

func TestPutRejectsBadID(t *testing.T) {
	c := newTestCache(t, "t-bad-id", Options{TTL: time.Minute})

	_, err := c.Put(context.Background(), "bad/id", Bytes("x"))
	assert.ErrorIs(t, err, ErrBadID)
}

func TestPutRejectsNilProducer(t *testing.T) {
	c := newTestCache(t, "t-nil-producer", Options{TTL: time.Minute})

	_, err := c.Put(context.Background(), "id1", nil)
	assert.ErrorIs(t, err, ErrBadProducer)
}

func TestPutRollsBackTempFileOnProducerError(t *testing.T) {
	c := newTestCache(t, "t-producer-fail", Options{TTL: time.Minute})

	boom := errors.New("boom")
	producer := ChunkIter(func(yield func([]byte) bool) error {
		if !yield([]byte("partial")) {
			return nil
		}
		return boom
	})

	_, err := c.Put(context.Background(), "id1", producer)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	stream, err := c.Get(context.Background(), "id1")
	require.NoError(t, err)
	assert.Nil(t, stream)

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.InProgress)
}

func TestPutRollsBackTempFileOnRenameError(t *testing.T) {
	c := newTestCache(t, "t-rename-fail", Options{TTL: time.Minute})

	// Strip write permission from the permanent directory so the commit
	// rename fails after the temp file has already been fully written.
	permDir := c.Config().Dir
	require.NoError(t, os.Chmod(permDir, 0555))
	defer os.Chmod(permDir, 0755)

	_, err := c.Put(context.Background(), "id1", Bytes("hello"))
	require.Error(t, err)
	var renameErr *RenameError
	assert.ErrorAs(t, err, &renameErr)

	require.NoError(t, os.Chmod(permDir, 0755))

	stream, err := c.Get(context.Background(), "id1")
	require.NoError(t, err)
	assert.Nil(t, stream)

	stats, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.InProgress)
}

func TestListEnumeratesLiveEntries(t *testing.T) {
	c := newTestCache(t, "t-list", Options{TTL: time.Minute})

	_, err := c.Put(context.Background(), "id1", Bytes("a"))
	require.NoError(t, err)
	_, err = c.Put(context.Background(), "id2", Bytes("b"))
	require.NoError(t, err)

	records, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

// streamAsProducer adapts a ReadStream into a Producer for Concat, reading
// it fully into memory up front.
func streamAsProducer(t *testing.T, s *ReadStream) Producer {
	t.Helper()
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, err := s.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}
	return Bytes(buf)
}
