// Package filecache is the public library surface: Start a named cache,
// then Put/Execute/Get/GetRecord/Exists/Delete/Clean/Stats/Config against
// the returned handle.
package filecache

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/adjust/file-cache/internal/config"
	"github.com/adjust/file-cache/internal/namespace"
)

//go:embed options.schema.json
var schemaFS embed.FS

// Options configures a named cache at Start. Only Cache, Dir, and TempDir
// are required; everything else defaults the way the recognized
// configuration options table describes.
type Options struct {
	Cache   string
	Dir     string
	TempDir string

	TTL time.Duration

	Namespace     []namespace.Part
	TempNamespace []namespace.Part

	StaleCleanInterval time.Duration
	TempCleanInterval  time.Duration

	UnknownFiles config.UnknownFilesPolicy
	Verbose      bool
}

// schemaDoc is the JSON-schema-validatable subset of Options: scalar
// fields only. Namespace specs carry Go function values and are
// validated separately by namespace.Resolve, the way the donor's
// validate command schema-checks forge.json's static fields while
// leaving genuinely dynamic values to runtime checks.
type schemaDoc struct {
	Cache                string `json:"cache"`
	Dir                  string `json:"dir"`
	TempDir              string `json:"temp_dir"`
	TTLMS                int64  `json:"ttl_ms,omitempty"`
	StaleCleanIntervalMS int64  `json:"stale_clean_interval_ms,omitempty"`
	TempCleanIntervalMS  int64  `json:"temp_clean_interval_ms,omitempty"`
	UnknownFiles         string `json:"unknown_files,omitempty"`
	Verbose              bool   `json:"verbose,omitempty"`
}

// validate schema-checks o's scalar fields against options.schema.json
// and resolves its namespace specs to catch bad parts early.
func (o Options) validate() (namespaceFrag, tempNamespaceFrag string, err error) {
	schemaBytes, err := schemaFS.ReadFile("options.schema.json")
	if err != nil {
		return "", "", fmt.Errorf("filecache: load options schema: %w", err)
	}

	doc := schemaDoc{
		Cache:                o.Cache,
		Dir:                  o.Dir,
		TempDir:              o.TempDir,
		TTLMS:                int64(o.TTL / time.Millisecond),
		StaleCleanIntervalMS: int64(o.StaleCleanInterval / time.Millisecond),
		TempCleanIntervalMS:  int64(o.TempCleanInterval / time.Millisecond),
		UnknownFiles:         string(o.UnknownFiles),
		Verbose:              o.Verbose,
	}
	docBytes, err := json.Marshal(doc)
	if err != nil {
		return "", "", fmt.Errorf("filecache: marshal options: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaBytes),
		gojsonschema.NewBytesLoader(docBytes),
	)
	if err != nil {
		return "", "", fmt.Errorf("filecache: validate options: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return "", "", fmt.Errorf("filecache: invalid options: %s", strings.Join(msgs, "; "))
	}

	namespaceFrag, err = namespace.Resolve(o.Namespace...)
	if err != nil {
		return "", "", wrapBadNamespacePart(err)
	}
	tempNamespaceFrag, err = namespace.Resolve(o.TempNamespace...)
	if err != nil {
		return "", "", wrapBadNamespacePart(err)
	}
	return namespaceFrag, tempNamespaceFrag, nil
}

// wrapBadNamespacePart maps namespace.Resolve's own *namespace.ErrBadNamespacePart
// onto the public ErrBadNamespacePart sentinel so callers can
// errors.Is(err, filecache.ErrBadNamespacePart) without reaching into
// internal/namespace.
func wrapBadNamespacePart(err error) error {
	var badPart *namespace.ErrBadNamespacePart
	if errors.As(err, &badPart) {
		return fmt.Errorf("%w: %v", ErrBadNamespacePart, badPart)
	}
	return err
}

// toConfig resolves Options into the effective internal/config.Config,
// namespacing Dir and TempDir with the resolved fragments and cache name.
func (o Options) toConfig() (config.Config, error) {
	namespaceFrag, tempNamespaceFrag, err := o.validate()
	if err != nil {
		return config.Config{}, err
	}

	cfg := config.Defaults(o.Cache)
	cfg.Dir = joinNamespaced(o.Dir, namespaceFrag, o.Cache)
	cfg.TempDir = joinNamespaced(o.TempDir, tempNamespaceFrag, o.Cache)
	if o.TTL > 0 {
		cfg.TTL = o.TTL
	}
	if o.StaleCleanInterval > 0 {
		cfg.StaleCleanInterval = o.StaleCleanInterval
	}
	if o.TempCleanInterval > 0 {
		cfg.TempCleanInterval = o.TempCleanInterval
	}
	if o.UnknownFiles != "" {
		cfg.UnknownFiles = o.UnknownFiles
	}
	cfg.Verbose = o.Verbose
	cfg.Namespace = splitFrag(namespaceFrag)
	cfg.TempNamespace = splitFrag(tempNamespaceFrag)

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrBadCacheName) {
			return config.Config{}, fmt.Errorf("%w: %v", ErrBadCacheName, err)
		}
		return config.Config{}, err
	}
	return cfg, nil
}

func joinNamespaced(root, frag, cache string) string {
	parts := []string{root}
	if frag != "" {
		parts = append(parts, frag)
	}
	parts = append(parts, cache)
	return strings.Join(parts, "/")
}

func splitFrag(frag string) []string {
	if frag == "" {
		return nil
	}
	return strings.Split(frag, "/")
}

// PutOption customizes a single Put or Execute call. GetRecord takes no
// options.
type PutOption func(*putOptions)

type putOptions struct {
	ttl      time.Duration
	preclean *bool
}

// WithTTL overrides the cache's default TTL for this call.
func WithTTL(ttl time.Duration) PutOption {
	return func(o *putOptions) { o.ttl = ttl }
}

// withPreclean is unexported: it is only ever set internally by Execute,
// which runs put with preclean disabled because get already swept.
func withPreclean(v bool) PutOption {
	return func(o *putOptions) { o.preclean = &v }
}

func resolvePutOptions(opts []PutOption, defaultTTL time.Duration) putOptions {
	p := putOptions{ttl: defaultTTL}
	enabled := true
	p.preclean = &enabled
	for _, opt := range opts {
		opt(&p)
	}
	if p.ttl <= 0 {
		p.ttl = defaultTTL
	}
	return p
}
