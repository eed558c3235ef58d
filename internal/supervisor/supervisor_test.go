package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adjust/file-cache/internal/config"
	"github.com/adjust/file-cache/internal/registry"
)

func TestStartCreatesDirectoriesAndRegisters(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults("t-sup-start")
	cfg.Dir = filepath.Join(dir, "perm")
	cfg.TempDir = filepath.Join(dir, "temp")

	h, err := Start(context.Background(), cfg)
	require.NoError(t, err)
	defer h.Stop(context.Background())

	assert.DirExists(t, cfg.Dir)
	assert.DirExists(t, cfg.TempDir)

	got, err := registry.Get("t-sup-start")
	require.NoError(t, err)
	assert.Equal(t, cfg.Cache, got.Cache)
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	_, err := Start(context.Background(), config.Config{})
	assert.Error(t, err)
}

func TestStopUnregistersCache(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults("t-sup-stop")
	cfg.Dir = filepath.Join(dir, "perm")
	cfg.TempDir = filepath.Join(dir, "temp")

	h, err := Start(context.Background(), cfg)
	require.NoError(t, err)

	require.NoError(t, h.Stop(context.Background()))
	_, err = registry.Get("t-sup-stop")
	assert.Error(t, err)

	// Idempotent.
	require.NoError(t, h.Stop(context.Background()))
}

func TestStaleCleanerRunsOnInterval(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults("t-sup-cleaner")
	cfg.Dir = filepath.Join(dir, "perm")
	cfg.TempDir = filepath.Join(dir, "temp")
	cfg.StaleCleanInterval = 20 * time.Millisecond
	cfg.TempCleanInterval = 20 * time.Millisecond

	h, err := Start(context.Background(), cfg)
	require.NoError(t, err)
	defer h.Stop(context.Background())

	path := h.Perm.FilePath("k", -time.Minute)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)
}
