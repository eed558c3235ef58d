package filecache

import (
	"errors"
	"fmt"

	"github.com/adjust/file-cache/internal/config"
	"github.com/adjust/file-cache/internal/registry"
)

// Lookup returns the published configuration for an already-started
// cache by name — the Config Registry's get(name) -> config operation
// (§4.3). It fails with ErrUnknownCache if no cache by that name has
// been Start-ed (and not yet Stop-ped) in this process.
func Lookup(name string) (config.Config, error) {
	cfg, err := registry.Get(name)
	if err != nil {
		return config.Config{}, wrapUnknownCache(name, err)
	}
	return cfg, nil
}

// LookupField returns a single field of the published configuration for
// an already-started cache by name — the Config Registry's
// get(name, key) -> field operation (§4.3). It fails with
// ErrUnknownCache or ErrUnknownConfigKey.
func LookupField(name, key string) (any, error) {
	v, err := registry.GetField(name, key)
	if err != nil {
		if errors.Is(err, config.ErrUnknownConfigKey) {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigKey, err)
		}
		return nil, wrapUnknownCache(name, err)
	}
	return v, nil
}

func wrapUnknownCache(name string, err error) error {
	if errors.Is(err, registry.ErrUnknownCache) {
		return fmt.Errorf("%w: %s", ErrUnknownCache, name)
	}
	return err
}
