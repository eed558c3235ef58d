package cmd

import (
	"context"
	"fmt"

	"github.com/adjust/file-cache/internal/config"
	"github.com/adjust/file-cache/pkg/filecache"
)

// findCacheConfig loads the manifest at configPath and returns the entry
// named cacheName.
func findCacheConfig(configPath, cacheName string) (config.Config, error) {
	manifest, err := config.LoadManifest(configPath)
	if err != nil {
		return config.Config{}, err
	}
	for _, c := range manifest.Caches {
		if c.Cache == cacheName {
			return c, nil
		}
	}
	return config.Config{}, fmt.Errorf("cache %q not found in %s", cacheName, configPath)
}

// openCache loads cacheName's config from configPath and starts it,
// for the lifetime of a single CLI invocation.
func openCache(ctx context.Context, configPath, cacheName string) (*filecache.Cache, error) {
	cfg, err := findCacheConfig(configPath, cacheName)
	if err != nil {
		return nil, err
	}
	return filecache.FromConfig(ctx, cfg)
}

// findManifest loads and returns the manifest at configPath.
func findManifest(configPath string) (*config.Manifest, error) {
	return config.LoadManifest(configPath)
}
