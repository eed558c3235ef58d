// Package config defines a named cache's validated, published
// configuration and the on-disk manifest format the CLI's serve command
// loads to start several named caches in one process.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adjust/file-cache/pkg/xos"
)

// UnknownFilesPolicy controls what a cleaner does with a file whose name
// does not parse as a permanent or temp filename.
type UnknownFilesPolicy string

const (
	UnknownFilesKeep   UnknownFilesPolicy = "keep"
	UnknownFilesRemove UnknownFilesPolicy = "remove"
)

// Config is the effective, validated configuration of one named cache —
// the recognized configuration options table.
type Config struct {
	Cache string `yaml:"cache"`

	Dir     string `yaml:"dir"`
	TempDir string `yaml:"temp_dir"`

	TTL time.Duration `yaml:"ttl"`

	Namespace     []string `yaml:"namespace,omitempty"`
	TempNamespace []string `yaml:"temp_namespace,omitempty"`

	StaleCleanInterval time.Duration `yaml:"stale_clean_interval"`
	TempCleanInterval  time.Duration `yaml:"temp_clean_interval"`

	UnknownFiles UnknownFilesPolicy `yaml:"unknown_files"`
	Verbose      bool               `yaml:"verbose"`
}

var cacheNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ErrBadCacheName is returned when a cache name fails cacheNamePattern.
var ErrBadCacheName = fmt.Errorf("config: bad cache name")

// ErrUnknownConfigKey is returned by Field for a key outside the
// recognized configuration options table.
var ErrUnknownConfigKey = fmt.Errorf("config: unknown config key")

// Defaults returns the baseline configuration applied before user options
// are overlaid.
func Defaults(cache string) Config {
	return Config{
		Cache:              cache,
		TTL:                time.Hour,
		StaleCleanInterval: 5 * time.Minute,
		TempCleanInterval:  time.Minute,
		UnknownFiles:       UnknownFilesKeep,
	}
}

// Validate checks that a Config is a legal, startable cache configuration.
func (c Config) Validate() error {
	if c.Cache == "" || !cacheNamePattern.MatchString(c.Cache) {
		return fmt.Errorf("%w: %q", ErrBadCacheName, c.Cache)
	}
	if c.Dir == "" {
		return fmt.Errorf("config: dir is required")
	}
	if c.TempDir == "" {
		return fmt.Errorf("config: temp_dir is required")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("config: ttl must be positive")
	}
	if c.StaleCleanInterval <= 0 {
		return fmt.Errorf("config: stale_clean_interval must be positive")
	}
	if c.TempCleanInterval <= 0 {
		return fmt.Errorf("config: temp_clean_interval must be positive")
	}
	switch c.UnknownFiles {
	case UnknownFilesKeep, UnknownFilesRemove, "":
	default:
		return fmt.Errorf("config: unknown_files must be %q or %q", UnknownFilesKeep, UnknownFilesRemove)
	}
	return nil
}

// Field returns the value of a single recognized option by name, for the
// Config Registry's get(name, key) operation.
func (c Config) Field(key string) (any, error) {
	switch key {
	case "cache":
		return c.Cache, nil
	case "dir":
		return c.Dir, nil
	case "temp_dir":
		return c.TempDir, nil
	case "ttl":
		return c.TTL, nil
	case "namespace":
		return c.Namespace, nil
	case "temp_namespace":
		return c.TempNamespace, nil
	case "stale_clean_interval":
		return c.StaleCleanInterval, nil
	case "temp_clean_interval":
		return c.TempCleanInterval, nil
	case "unknown_files":
		return c.UnknownFiles, nil
	case "verbose":
		return c.Verbose, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownConfigKey, key)
	}
}

// Manifest lists every named cache the serve command should start.
type Manifest struct {
	Caches []Config `yaml:"-"`
}

// rawCache is caches.yaml's on-disk shape: durations are strings
// (time.ParseDuration-compatible, e.g. "1h") rather than Config's
// time.Duration, which yaml.v3 would otherwise round-trip as bare
// nanosecond integers.
type rawCache struct {
	Cache              string   `yaml:"cache"`
	Dir                string   `yaml:"dir"`
	TempDir            string   `yaml:"temp_dir"`
	TTL                string   `yaml:"ttl,omitempty"`
	Namespace          []string `yaml:"namespace,omitempty"`
	TempNamespace      []string `yaml:"temp_namespace,omitempty"`
	StaleCleanInterval string   `yaml:"stale_clean_interval,omitempty"`
	TempCleanInterval  string   `yaml:"temp_clean_interval,omitempty"`
	UnknownFiles       string   `yaml:"unknown_files,omitempty"`
	Verbose            bool     `yaml:"verbose,omitempty"`
}

type rawManifest struct {
	Caches []rawCache `yaml:"caches"`
}

// LoadManifest reads and parses a caches.yaml file, applying defaults and
// validating each entry.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read manifest: %w", err)
	}

	var raw rawManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse manifest: %w", err)
	}

	m := &Manifest{}
	for _, rc := range raw.Caches {
		cfg := Defaults(rc.Cache)
		cfg.Dir = rc.Dir
		cfg.TempDir = rc.TempDir
		cfg.Namespace = rc.Namespace
		cfg.TempNamespace = rc.TempNamespace
		cfg.Verbose = rc.Verbose
		if rc.UnknownFiles != "" {
			cfg.UnknownFiles = UnknownFilesPolicy(rc.UnknownFiles)
		}
		if rc.TTL != "" {
			d, err := time.ParseDuration(rc.TTL)
			if err != nil {
				return nil, fmt.Errorf("config: cache %s: bad ttl: %w", rc.Cache, err)
			}
			cfg.TTL = d
		}
		if rc.StaleCleanInterval != "" {
			d, err := time.ParseDuration(rc.StaleCleanInterval)
			if err != nil {
				return nil, fmt.Errorf("config: cache %s: bad stale_clean_interval: %w", rc.Cache, err)
			}
			cfg.StaleCleanInterval = d
		}
		if rc.TempCleanInterval != "" {
			d, err := time.ParseDuration(rc.TempCleanInterval)
			if err != nil {
				return nil, fmt.Errorf("config: cache %s: bad temp_clean_interval: %w", rc.Cache, err)
			}
			cfg.TempCleanInterval = d
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config: cache %s: %w", rc.Cache, err)
		}
		m.Caches = append(m.Caches, cfg)
	}
	return m, nil
}

// Save writes the manifest back to path, mainly useful for tooling that
// generates a caches.yaml from discovered defaults.
func (m *Manifest) Save(path string) error {
	raw := rawManifest{Caches: make([]rawCache, 0, len(m.Caches))}
	for _, cfg := range m.Caches {
		raw.Caches = append(raw.Caches, rawCache{
			Cache:              cfg.Cache,
			Dir:                cfg.Dir,
			TempDir:            cfg.TempDir,
			TTL:                cfg.TTL.String(),
			Namespace:          cfg.Namespace,
			TempNamespace:      cfg.TempNamespace,
			StaleCleanInterval: cfg.StaleCleanInterval.String(),
			TempCleanInterval:  cfg.TempCleanInterval.String(),
			UnknownFiles:       string(cfg.UnknownFiles),
			Verbose:            cfg.Verbose,
		})
	}

	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("config: marshal manifest: %w", err)
	}
	if err := xos.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write manifest: %w", err)
	}
	return nil
}
