package sources

import (
	"github.com/citewell/refcheck/internal/config"
)

// Registry maps canonical identifier prefixes to the Source owning each
// namespace. Lookup resolves configured aliases first, so "pubmed" can be
// routed to the PMID source without the source knowing about aliases.
type Registry struct {
	cfg      *config.ValidationConfig
	ordered  []Source
	byPrefix map[string]Source
}

// NewRegistry builds a registry over the given sources. Registration order
// is preserved for shape-based matching.
func NewRegistry(cfg *config.ValidationConfig, srcs ...Source) *Registry {
	r := &Registry{
		cfg:      cfg,
		byPrefix: make(map[string]Source, len(srcs)),
	}
	for _, s := range srcs {
		r.ordered = append(r.ordered, s)
		r.byPrefix[s.Prefix()] = s
	}
	return r
}

// DefaultRegistry wires up every production source.
func DefaultRegistry(cfg *config.ValidationConfig) *Registry {
	return NewRegistry(cfg,
		NewPMIDSource(cfg),
		NewDOISource(cfg),
		NewClinicalTrialsSource(cfg),
		NewURLSource(cfg),
		NewFileSource(),
	)
}

// Resolve returns the source for a prefix, applying alias resolution and
// case-folding. nil when no source owns the prefix.
func (r *Registry) Resolve(prefix string) Source {
	return r.byPrefix[r.cfg.CanonicalPrefix(prefix)]
}

// Match scans sources in registration order for one whose CanHandle accepts
// the raw reference id. Used for bare identifiers that carry no prefix
// (e.g. "NCT01234567").
func (r *Registry) Match(referenceID string) Source {
	for _, s := range r.ordered {
		if s.CanHandle(referenceID) {
			return s
		}
	}
	return nil
}

// Prefixes lists the registered canonical prefixes in registration order.
func (r *Registry) Prefixes() []string {
	out := make([]string, 0, len(r.ordered))
	for _, s := range r.ordered {
		out = append(out, s.Prefix())
	}
	return out
}
