// Package fetcher is the top-level entry point for resolving references.
//
// A fetch consults the in-memory cache, then the disk cache, then parses
// the identifier and dispatches to the source owning its prefix. Successful
// results land in both caches; failures are never cached, so the next call
// retries the providers.
package fetcher

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strings"

	"github.com/citewell/refcheck/internal/cache"
	"github.com/citewell/refcheck/internal/config"
	"github.com/citewell/refcheck/internal/reference"
	"github.com/citewell/refcheck/internal/sources"
)

var prefixedIDPattern = regexp.MustCompile(`^([A-Za-z_]+)[:\s]+(.+)$`)

// ReferenceFetcher resolves and caches references. Not safe for concurrent
// use; fetching is sequential by design.
type ReferenceFetcher struct {
	cfg      *config.ValidationConfig
	registry *sources.Registry
	disk     *cache.Cache
	mem      map[string]*reference.Content
}

// Option configures a ReferenceFetcher.
type Option func(*ReferenceFetcher)

// WithRegistry swaps in a custom source registry.
func WithRegistry(r *sources.Registry) Option {
	return func(f *ReferenceFetcher) {
		f.registry = r
	}
}

// WithDiskCache swaps in a custom disk cache.
func WithDiskCache(c *cache.Cache) Option {
	return func(f *ReferenceFetcher) {
		f.disk = c
	}
}

// New builds a fetcher over the default source registry and the configured
// cache directory.
func New(cfg *config.ValidationConfig, opts ...Option) *ReferenceFetcher {
	f := &ReferenceFetcher{
		cfg:      cfg,
		registry: sources.DefaultRegistry(cfg),
		disk:     cache.New(cfg.CacheDir),
		mem:      make(map[string]*reference.Content),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ParseReferenceID splits a raw reference id into a canonical prefix and
// the identifier proper.
//
// Explicit "PREFIX:value" and "PREFIX value" forms are recognized first
// (prefix uppercased, aliases applied); bare http(s) addresses map to URL
// with the address untouched; bare digit strings map to PMID; anything
// else is UNKNOWN.
func ParseReferenceID(cfg *config.ValidationConfig, referenceID string) (string, string) {
	trimmed := strings.TrimSpace(referenceID)

	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return "URL", trimmed
	}
	if m := prefixedIDPattern.FindStringSubmatch(trimmed); m != nil {
		return cfg.CanonicalPrefix(m[1]), strings.TrimSpace(m[2])
	}
	if trimmed != "" && isDigits(trimmed) {
		return "PMID", trimmed
	}
	return "UNKNOWN", trimmed
}

func isDigits(v string) bool {
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return v != ""
}

// Fetch resolves a reference id, consulting the caches first. forceRefresh
// bypasses both caches and overwrites them on success. Returns nil when
// the reference cannot be resolved; nil is never cached.
func (f *ReferenceFetcher) Fetch(ctx context.Context, referenceID string, forceRefresh bool) *reference.Content {
	prefix, identifier := ParseReferenceID(f.cfg, referenceID)

	var src sources.Source
	if prefix != "UNKNOWN" {
		src = f.registry.Resolve(prefix)
	}
	if src == nil {
		// Bare identifiers with a recognizable shape (NCT01234567)
		// carry no prefix; let the sources claim them.
		if src = f.registry.Match(identifier); src != nil {
			prefix = src.Prefix()
		}
	}
	if src == nil {
		log.Printf("warning: unsupported reference type %q in %q", prefix, referenceID)
		return nil
	}

	// Trial ids come in several spellings (NCT:nct01234567, NCT:01234567);
	// canonicalize so the cache key matches the ReferenceID the source
	// stores.
	if prefix == "NCT" {
		identifier = sources.NormalizeNCT(identifier)
	}

	// The cache key is the canonical form, so "pmid:123" and "PMID:123"
	// share one entry.
	key := prefix + ":" + identifier

	if !forceRefresh {
		if ref, ok := f.mem[key]; ok {
			return ref
		}
		ref, err := f.disk.Load(key)
		if err == nil {
			f.mem[key] = ref
			return ref
		}
		if !errors.Is(err, cache.ErrNotCached) {
			log.Printf("warning: unreadable cache entry for %s: %v", key, err)
		}
	}

	content := src.Fetch(ctx, identifier)
	if content == nil {
		return nil
	}

	f.mem[key] = content
	if err := f.disk.Save(content); err != nil {
		log.Printf("warning: failed to cache %s: %v", key, err)
	}
	return content
}
