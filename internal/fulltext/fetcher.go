package fulltext

import (
	"context"
	"log"

	"github.com/citewell/refcheck/internal/config"
	"github.com/citewell/refcheck/internal/idconv"
)

// converter is the identifier-conversion capability the fetcher needs to
// bridge between DOI and PMID namespaces.
type converter interface {
	DOIToPMID(ctx context.Context, doi string) string
	PMCIDToPMID(ctx context.Context, pmcid string) string
}

// Fetcher orchestrates fulltext strategies with fallback.
//
// PMID path: BioC first, then Europe PMC; first strategy that returns
// success with content wins. DOI path: convert to a PMID and reuse the PMID
// path; otherwise consult Unpaywall, chasing a PMC-harvested copy back into
// the PMID path when one is advertised. Unpaywall runs last because it
// usually yields only a link, not text.
type Fetcher struct {
	converter      converter
	pmidStrategies []Strategy
	unpaywall      Strategy
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithConverter replaces the identifier converter (for testing).
func WithConverter(c converter) FetcherOption {
	return func(f *Fetcher) {
		f.converter = c
	}
}

// WithPMIDStrategies replaces the PMID strategy chain (for testing).
func WithPMIDStrategies(strategies ...Strategy) FetcherOption {
	return func(f *Fetcher) {
		f.pmidStrategies = strategies
	}
}

// WithUnpaywall replaces the Unpaywall strategy (for testing).
func WithUnpaywall(s Strategy) FetcherOption {
	return func(f *Fetcher) {
		f.unpaywall = s
	}
}

// NewFetcher builds a Fetcher with the production strategy chain.
func NewFetcher(cfg *config.ValidationConfig, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		converter: idconv.New(cfg),
		pmidStrategies: []Strategy{
			NewBioCStrategy(cfg),
			NewEuropePMCStrategy(cfg),
		},
		unpaywall: NewUnpaywallStrategy(cfg),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchForPMID tries the PMID strategies in priority order and returns the
// first qualifying success. All-failed yields a terminal result tagged
// source "none".
func (f *Fetcher) FetchForPMID(ctx context.Context, pmid string) Result {
	for _, strategy := range f.pmidStrategies {
		result := strategy.Fetch(ctx, pmid)
		if result.Success && result.Content != "" {
			log.Printf("fetched fulltext for PMID:%s via %s", pmid, strategy.Name())
			return result
		}
	}
	return failure("none", "no fulltext available from any source")
}

// FetchForDOI resolves fulltext for a DOI.
//
// A successful PMID-path result ends the chain even when it carries only an
// abstract; Unpaywall is consulted only when the DOI cannot be bridged to a
// productive PMID.
func (f *Fetcher) FetchForDOI(ctx context.Context, doi string) Result {
	if pmid := f.converter.DOIToPMID(ctx, doi); pmid != "" {
		if result := f.FetchForPMID(ctx, pmid); result.Success {
			return result
		}
	}

	oaResult := f.unpaywall.Fetch(ctx, doi)
	if oaResult.Success {
		if pmcid := oaResult.Metadata["pmcid"]; pmcid != "" {
			if pmid := f.converter.PMCIDToPMID(ctx, pmcid); pmid != "" {
				if result := f.FetchForPMID(ctx, pmid); result.Success {
					return result
				}
			}
		}
		// Link-only partial success: better than nothing for callers
		// that can chase the PDF themselves.
		return oaResult
	}

	return failure("none", "no fulltext available from any source")
}
