// Package cleaner implements the two background sweepers every named
// cache runs: the Stale Cleaner (expired/superseded permanent files) and
// the Temp Cleaner (orphaned temp files). Each is a goroutine owning a
// timer and a small mailbox channel, grounded on the donor's file
// watcher — a select loop over a ticker, a done channel, and an inbound
// event channel, generalized here from filesystem events to cleanup
// requests.
package cleaner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adjust/file-cache/internal/config"
	"github.com/adjust/file-cache/internal/logsink"
	"github.com/adjust/file-cache/internal/ownertoken"
	"github.com/adjust/file-cache/internal/permstore"
	"github.com/adjust/file-cache/internal/tempstore"
)

// mailboxSize bounds the Stale Cleaner's inbound request channel.
// Fire-and-forget writers already tolerate a dropped hint — a future
// tick's full sweep covers anything a dropped message would have caught —
// so overflow simply drops the newest message rather than blocking the
// sender.
const mailboxSize = 256

type cleanMsg struct {
	removeFiles []string
	cleanID     string
}

// StaleCleaner periodically sweeps a cache's permanent directory and
// also services on-demand removal/clean hints from writers.
type StaleCleaner struct {
	cache    string
	store    *permstore.Store
	interval time.Duration
	verbose  bool
	logger   *logsink.Sink

	mailbox chan cleanMsg

	// OnCrash, if set, is invoked (not under the cleaner's lock) after a
	// panic in the sweep loop is recovered and the loop has exited. It
	// runs on the crashed goroutine, from its deferred recovery.
	// The supervisor uses it to restart this cleaner without touching
	// the other one.
	OnCrash func(recovered any)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewStaleCleaner creates a Stale Cleaner for store, ticking every
// interval.
func NewStaleCleaner(cache string, store *permstore.Store, interval time.Duration, verbose bool, logger *logsink.Sink) *StaleCleaner {
	return &StaleCleaner{
		cache:    cache,
		store:    store,
		interval: interval,
		verbose:  verbose,
		logger:   logger,
		mailbox:  make(chan cleanMsg, mailboxSize),
	}
}

// ScheduleRemoval implements permstore.Remover: writers and the
// resolution algorithm hand off paths here instead of blocking on an
// inline unlink.
func (c *StaleCleaner) ScheduleRemoval(paths []string) {
	select {
	case c.mailbox <- cleanMsg{removeFiles: paths}:
	default:
		if c.logger != nil {
			c.logger.Warnf("mailbox full, dropping removal of %d file(s)", len(paths))
		}
	}
}

// Clean requests an immediate, synchronous-from-the-cleaner's-perspective
// sweep of a single id (the post-commit hint in the put algorithm).
func (c *StaleCleaner) Clean(id string) {
	select {
	case c.mailbox <- cleanMsg{cleanID: id}:
	default:
		if c.logger != nil {
			c.logger.Warnf("mailbox full, dropping clean hint for %q", id)
		}
	}
}

// Start launches the cleaner's goroutine. It returns once the goroutine
// is running.
func (c *StaleCleaner) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	go c.run(runCtx)
}

// Stop cancels the cleaner's timer. In-flight writers are not
// interrupted; their temp files are cleaned on their own failure paths
// or swept later.
func (c *StaleCleaner) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	running := c.running
	c.running = false
	c.mu.Unlock()

	if !running {
		return
	}
	cancel()
	<-done
}

func (c *StaleCleaner) run(ctx context.Context) {
	defer close(c.done)
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		if r := recover(); r != nil && c.OnCrash != nil {
			c.OnCrash(r)
		}
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.mailbox:
			c.handleMessage(msg)
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *StaleCleaner) handleMessage(msg cleanMsg) {
	if msg.cleanID != "" {
		if _, err := c.store.FindAll(msg.cleanID, true); err != nil && c.logger != nil {
			c.logger.Error(err, fmt.Sprintf("clean(%s) failed", msg.cleanID))
		}
		return
	}
	for _, path := range msg.removeFiles {
		if err := c.store.RemoveFile(path, true); err != nil && c.logger != nil {
			c.logger.Error(err, fmt.Sprintf("failed to remove %s", path))
		}
	}
}

func (c *StaleCleaner) sweep() {
	if c.verbose && c.logger != nil {
		c.logger.Info(fmt.Sprintf("Starting stale cleanup for %s", c.cache))
	}
	if _, err := c.store.FindAll("", true); err != nil && c.logger != nil {
		c.logger.Error(err, "stale sweep failed")
	}
}

// TempCleaner periodically removes temp files whose owner is no longer
// alive.
type TempCleaner struct {
	cache    string
	store    *tempstore.Store
	owners   *ownertoken.Registry
	interval time.Duration
	unknown  config.UnknownFilesPolicy
	verbose  bool
	logger   *logsink.Sink

	// OnCrash, if set, is invoked after a panic in the sweep loop is
	// recovered and the loop has exited. It runs on the crashed
	// goroutine, from its deferred recovery.
	OnCrash func(recovered any)

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTempCleaner creates a Temp Cleaner for store, ticking every
// interval, consulting owners for liveness.
func NewTempCleaner(cache string, store *tempstore.Store, owners *ownertoken.Registry, interval time.Duration, unknown config.UnknownFilesPolicy, verbose bool, logger *logsink.Sink) *TempCleaner {
	return &TempCleaner{
		cache:    cache,
		store:    store,
		owners:   owners,
		interval: interval,
		unknown:  unknown,
		verbose:  verbose,
		logger:   logger,
	}
}

// Start launches the cleaner's goroutine.
func (c *TempCleaner) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.running = true
	go c.run(runCtx)
}

// Stop cancels the cleaner's timer.
func (c *TempCleaner) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	running := c.running
	c.running = false
	c.mu.Unlock()

	if !running {
		return
	}
	cancel()
	<-done
}

func (c *TempCleaner) run(ctx context.Context) {
	defer close(c.done)
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		if r := recover(); r != nil && c.OnCrash != nil {
			c.OnCrash(r)
		}
	}()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *TempCleaner) sweep() {
	if c.verbose && c.logger != nil {
		c.logger.Info(fmt.Sprintf("Starting temp cleanup for %s", c.cache))
	}

	parsed, unparseable, err := c.store.List()
	if err != nil {
		if c.logger != nil {
			c.logger.Error(err, "temp sweep failed to list files")
		}
		return
	}

	for _, path := range unparseable {
		if c.logger != nil {
			c.logger.Warnf("ignoring unparseable temp file %s", path)
		}
		if c.unknown == config.UnknownFilesRemove {
			if err := c.store.Remove(path); err != nil && c.logger != nil {
				c.logger.Error(err, fmt.Sprintf("failed to remove unknown file %s", path))
			}
		}
	}

	for _, p := range parsed {
		if c.owners.IsAlive(p.Owner) {
			continue
		}
		if err := c.store.Remove(p.Path); err != nil && c.logger != nil {
			c.logger.Error(err, fmt.Sprintf("failed to remove orphaned temp file %s", p.Path))
		}
	}
}
