package filecache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/adjust/file-cache/internal/config"
	"github.com/adjust/file-cache/internal/pathenc"
	"github.com/adjust/file-cache/internal/permstore"
	"github.com/adjust/file-cache/internal/supervisor"
)

// Cache is a handle to one running named cache.
type Cache struct {
	handle *supervisor.Handle
}

// Record is the result of GetRecord: a resolved entry plus its stream.
type Record struct {
	ID        string
	Path      string
	ExpiresAt time.Time
	Stream    *ReadStream
}

// TTLRemaining is the time until this record expires, measured against
// the current wall clock.
func (r *Record) TTLRemaining() time.Duration {
	return time.Until(r.ExpiresAt)
}

// Stats reports the cache's current file counts.
type Stats struct {
	Current    int
	InProgress int
}

// Start validates opts, publishes the resulting config, creates the
// cache's directories, and launches its two cleaners.
func Start(ctx context.Context, opts Options) (*Cache, error) {
	cfg, err := opts.toConfig()
	if err != nil {
		return nil, err
	}
	h, err := supervisor.Start(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Cache{handle: h}, nil
}

// FromConfig starts a cache from an already-resolved internal/config.Config,
// bypassing Options' namespace resolution and schema validation. This is
// what the CLI uses when loading a caches.yaml manifest, whose entries are
// already fully resolved scalars with no dynamic namespace parts.
func FromConfig(ctx context.Context, cfg config.Config) (*Cache, error) {
	h, err := supervisor.Start(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Cache{handle: h}, nil
}

// Stop cancels both of the cache's cleaners. In-flight writers are not
// interrupted.
func (c *Cache) Stop(ctx context.Context) error {
	return c.handle.Stop(ctx)
}

// Config returns the cache's effective, published configuration.
func (c *Cache) Config() config.Config {
	return c.handle.Config
}

// Put unconditionally writes p under id, returning a lazily-opened stream
// over the committed permanent file.
func (c *Cache) Put(ctx context.Context, id string, p Producer, opts ...PutOption) (*ReadStream, error) {
	path, err := c.put(ctx, id, p, opts, true)
	if err != nil {
		return nil, err
	}
	return newReadStream(path), nil
}

// Execute is read-through: if a valid entry for id already exists, its
// stream is returned without invoking p; otherwise Execute behaves like
// Put, with preclean disabled since Find already swept.
func (c *Cache) Execute(ctx context.Context, id string, p Producer, opts ...PutOption) (*ReadStream, error) {
	entry, err := c.handle.Perm.Find(id)
	if err != nil {
		return nil, err
	}
	if entry != nil {
		return newReadStream(entry.Path), nil
	}
	path, err := c.put(ctx, id, p, append(opts, withPreclean(false)), false)
	if err != nil {
		return nil, err
	}
	return newReadStream(path), nil
}

// Get looks up id and returns its stream, or nil if no valid entry
// exists.
func (c *Cache) Get(ctx context.Context, id string) (*ReadStream, error) {
	rec, err := c.GetRecord(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.Stream, nil
}

// GetRecord is Get plus the resolved entry's metadata.
func (c *Cache) GetRecord(ctx context.Context, id string) (*Record, error) {
	if !pathenc.ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrBadID, id)
	}
	entry, err := c.handle.Perm.Find(id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	return &Record{
		ID:        entry.ID,
		Path:      entry.Path,
		ExpiresAt: time.UnixMilli(entry.ExpiresAtMS),
		Stream:    newReadStream(entry.Path),
	}, nil
}

// Exists reports whether id currently resolves to a valid entry.
func (c *Cache) Exists(ctx context.Context, id string) (bool, error) {
	if !pathenc.ValidID(id) {
		return false, fmt.Errorf("%w: %q", ErrBadID, id)
	}
	entry, err := c.handle.Perm.Find(id)
	if err != nil {
		return false, err
	}
	return entry != nil, nil
}

// Delete synchronously removes every generation of id. It does not
// interrupt an in-flight producer writing id; a write that commits after
// Delete returns will republish the id.
func (c *Cache) Delete(ctx context.Context, id string) error {
	if !pathenc.ValidID(id) {
		return fmt.Errorf("%w: %q", ErrBadID, id)
	}
	return c.handle.Perm.Delete(id)
}

// Clean forces a full sweep and unlinks every permanent file in the
// cache, live or expired.
func (c *Cache) Clean(ctx context.Context) error {
	return c.handle.Perm.DeleteAll()
}

// Stats reports the cache's current file counts: current counts every
// parseable permanent file regardless of expiry; in_progress counts
// every temp file on disk.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	current, err := c.handle.Perm.CountParseable()
	if err != nil {
		return Stats{}, err
	}
	inProgress, err := c.handle.Temp.Count()
	if err != nil {
		return Stats{}, err
	}
	return Stats{Current: current, InProgress: inProgress}, nil
}

// List enumerates every currently live entry without being the thing
// responsible for scheduling any deletions that its read happens to
// surface — that bookkeeping is owned by the permanent store's ordinary
// resolution algorithm, same as any other read.
func (c *Cache) List(ctx context.Context) ([]Record, error) {
	all, err := c.handle.Perm.FindAll("", false)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(all))
	for _, entry := range all {
		records = append(records, Record{
			ID:        entry.ID,
			Path:      entry.Path,
			ExpiresAt: time.UnixMilli(entry.ExpiresAtMS),
			Stream:    newReadStream(entry.Path),
		})
	}
	return records, nil
}

// put implements the writer pipeline's put algorithm.
func (c *Cache) put(ctx context.Context, id string, p Producer, opts []PutOption, defaultPreclean bool) (string, error) {
	if !pathenc.ValidID(id) {
		return "", fmt.Errorf("%w: %q", ErrBadID, id)
	}
	if p == nil {
		return "", ErrBadProducer
	}

	cfg := c.handle.Config
	po := resolvePutOptions(opts, cfg.TTL)
	preclean := defaultPreclean
	if po.preclean != nil {
		preclean = *po.preclean
	}

	if preclean {
		c.handle.Stale.Clean(id)
	}

	owner := c.handle.Owners.Mint()
	tempPath := c.handle.Temp.FilePath(id, owner.String())
	permPath := c.handle.Perm.FilePath(id, po.ttl)

	if err := writeToTemp(tempPath, p); err != nil {
		_ = c.handle.Temp.Remove(tempPath)
		c.handle.Owners.Retire(owner)
		return "", err
	}

	if err := permstore.Commit(tempPath, permPath); err != nil {
		_ = c.handle.Temp.Remove(tempPath)
		c.handle.Owners.Retire(owner)
		return "", &RenameError{Path: permPath, Err: err}
	}
	c.handle.Owners.Retire(owner)

	c.handle.Stale.Clean(id)

	return permPath, nil
}

// writeToTemp resolves p's bytes into tempPath. On any failure the
// caller is responsible for unlinking tempPath.
func writeToTemp(tempPath string, p Producer) error {
	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return &IOError{Op: "create", Path: tempPath, Err: err}
	}
	if err := writeProducer(f, p); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return &IOError{Op: "close", Path: tempPath, Err: err}
	}
	return nil
}
