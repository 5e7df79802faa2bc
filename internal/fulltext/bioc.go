package fulltext

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/citewell/refcheck/internal/config"
	"github.com/citewell/refcheck/internal/reference"
	"github.com/citewell/refcheck/internal/xmltext"
)

// DefaultBioCURL is the NCBI BioNLP BioC endpoint.
const DefaultBioCURL = "https://www.ncbi.nlm.nih.gov/research/bionlp/RESTful/pmcoa.cgi"

// BioCStrategy fetches structured fulltext from the NCBI BioC XML API.
// BioC serves the PMC open-access subset and is usually the cleanest text
// source, so it runs first.
type BioCStrategy struct {
	providerClient
}

// NewBioCStrategy creates the strategy from the run configuration.
func NewBioCStrategy(cfg *config.ValidationConfig, opts ...Option) *BioCStrategy {
	return &BioCStrategy{newProviderClient(cfg, DefaultBioCURL, opts)}
}

// Name implements Strategy.
func (s *BioCStrategy) Name() string { return "bioc" }

// buildURL returns the BioC request URL for a bare PMID.
func (s *BioCStrategy) buildURL(pmid string) string {
	return fmt.Sprintf("%s/BioC_xml/%s/ascii", s.baseURL, pmid)
}

// Fetch implements Strategy for a PMID.
func (s *BioCStrategy) Fetch(ctx context.Context, identifier string) Result {
	pmid := barePMID(identifier)

	resp, err := s.get(ctx, s.buildURL(pmid))
	if err != nil {
		log.Printf("warning: BioC request failed for PMID:%s: %v", pmid, err)
		return failure(s.Name(), err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("BioC not available for PMID:%s (status %d)", pmid, resp.StatusCode)
		return failure(s.Name(), fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	sections := xmltext.Collect(resp.Body, "text")
	if len(sections) == 0 {
		return failure(s.Name(), "no text sections found in BioC response")
	}

	text := strings.TrimSpace(strings.Join(sections, "\n\n"))
	if len(text) < MinContentLength {
		return failure(s.Name(), "BioC response too short")
	}

	return Result{
		Content:     text,
		Source:      s.Name(),
		ContentType: reference.ContentTypeFullTextBioC,
		Success:     true,
	}
}

// barePMID strips any "PMID:" style prefix from an identifier.
func barePMID(identifier string) string {
	pmid := strings.TrimSpace(identifier)
	if i := strings.LastIndex(pmid, ":"); i >= 0 {
		pmid = pmid[i+1:]
	}
	return pmid
}
