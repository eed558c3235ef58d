// Package supervisor starts and stops a named cache: it validates
// options, publishes the resulting config, creates directories, and
// launches both cleaners with one-for-one restart — a cleaner crash
// restarts only that cleaner, grounded on the donor daemon's
// Start/Stop lifecycle pair, generalized here from one gRPC server plus
// one file watcher to two independent cleaner goroutines.
package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adjust/file-cache/internal/cleaner"
	"github.com/adjust/file-cache/internal/config"
	"github.com/adjust/file-cache/internal/logsink"
	"github.com/adjust/file-cache/internal/ownertoken"
	"github.com/adjust/file-cache/internal/permstore"
	"github.com/adjust/file-cache/internal/registry"
	"github.com/adjust/file-cache/internal/tempstore"
)

// Handle is a running named cache's supervised state: its stores,
// cleaners, and owner registry.
type Handle struct {
	Config  config.Config
	Perm    *permstore.Store
	Temp    *tempstore.Store
	Owners  *ownertoken.Registry
	Logger  *logsink.Sink
	Stale   *cleaner.StaleCleaner
	TempCln *cleaner.TempCleaner

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	stopped bool
}

// Start validates cfg, publishes it to the config registry, creates both
// directories, and launches the two cleaners. If either cleaner fails to
// start, the cache fails to start.
func Start(ctx context.Context, cfg config.Config) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("supervisor: %w", err)
	}

	registry.Store(cfg.Cache, cfg)

	logger := logsink.New(cfg.Cache, nil, cfg.Verbose)
	owners := ownertoken.NewRegistry()

	perm := &permstore.Store{
		Dir:          cfg.Dir,
		UnknownFiles: cfg.UnknownFiles,
		Logger:       logger,
	}
	temp := &tempstore.Store{Dir: cfg.TempDir}

	if err := temp.Setup(); err != nil {
		registry.Remove(cfg.Cache)
		return nil, err
	}
	if err := perm.Setup(); err != nil {
		registry.Remove(cfg.Cache)
		return nil, err
	}

	staleInterval := cfg.StaleCleanInterval
	if staleInterval <= 0 {
		staleInterval = time.Minute
	}
	tempInterval := cfg.TempCleanInterval
	if tempInterval <= 0 {
		tempInterval = time.Minute
	}

	stale := cleaner.NewStaleCleaner(cfg.Cache, perm, staleInterval, cfg.Verbose, logger)
	perm.Remover = stale
	tempCln := cleaner.NewTempCleaner(cfg.Cache, temp, owners, tempInterval, cfg.UnknownFiles, cfg.Verbose, logger)

	runCtx, cancel := context.WithCancel(ctx)

	h := &Handle{
		Config:  cfg,
		Perm:    perm,
		Temp:    temp,
		Owners:  owners,
		Logger:  logger,
		Stale:   stale,
		TempCln: tempCln,
		ctx:     runCtx,
		cancel:  cancel,
	}

	stale.OnCrash = func(recovered any) {
		h.mu.Lock()
		stopped := h.stopped
		h.mu.Unlock()
		if stopped {
			return
		}
		logger.Errorf(fmt.Errorf("%v", recovered), "stale cleaner crashed, restarting")
		stale.Start(runCtx)
	}
	tempCln.OnCrash = func(recovered any) {
		h.mu.Lock()
		stopped := h.stopped
		h.mu.Unlock()
		if stopped {
			return
		}
		logger.Errorf(fmt.Errorf("%v", recovered), "temp cleaner crashed, restarting")
		tempCln.Start(runCtx)
	}

	stale.Start(runCtx)
	tempCln.Start(runCtx)

	return h, nil
}

// Stop cancels both cleaners' timers. In-flight writers are not
// interrupted; their temp files are cleaned on their own failure paths
// or swept by a later process start.
func (h *Handle) Stop(ctx context.Context) error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	h.mu.Unlock()

	h.cancel()
	h.Stale.Stop()
	h.TempCln.Stop()
	registry.Remove(h.Config.Cache)
	return nil
}
