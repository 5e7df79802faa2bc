package fulltext

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/citewell/refcheck/internal/config"
	"github.com/citewell/refcheck/internal/reference"
)

// DefaultUnpaywallURL is the Unpaywall API base.
const DefaultUnpaywallURL = "https://api.unpaywall.org/v2"

// UnpaywallStrategy looks up legal open-access locations for a DOI. It does
// not return content itself; a success carries the best OA location (PDF
// URL, license, version) and, when one of the locations is a PubMed Central
// harvest, the inferred PMCID, so callers can chain back into the PMC-backed
// strategies.
type UnpaywallStrategy struct {
	providerClient
	email string
}

// NewUnpaywallStrategy creates the strategy from the run configuration.
// Unpaywall rejects requests without an email.
func NewUnpaywallStrategy(cfg *config.ValidationConfig, opts ...Option) *UnpaywallStrategy {
	return &UnpaywallStrategy{
		providerClient: newProviderClient(cfg, DefaultUnpaywallURL, opts),
		email:          cfg.Email,
	}
}

// Name implements Strategy.
func (s *UnpaywallStrategy) Name() string { return "unpaywall" }

func (s *UnpaywallStrategy) buildURL(doi string) string {
	return fmt.Sprintf("%s/%s?email=%s", s.baseURL, doi, url.QueryEscape(s.email))
}

// Fetch implements Strategy for a DOI.
func (s *UnpaywallStrategy) Fetch(ctx context.Context, identifier string) Result {
	doi := strings.TrimSpace(identifier)
	if strings.HasPrefix(strings.ToLower(doi), "doi:") {
		doi = doi[4:]
	}

	resp, err := s.get(ctx, s.buildURL(doi))
	if err != nil {
		log.Printf("warning: Unpaywall request failed for DOI:%s: %v", doi, err)
		return failure(s.Name(), err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failure(s.Name(), fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	var payload struct {
		IsOA           bool `json:"is_oa"`
		BestOALocation *struct {
			URL       string `json:"url"`
			URLForPDF string `json:"url_for_pdf"`
			License   string `json:"license"`
			Version   string `json:"version"`
		} `json:"best_oa_location"`
		OALocations []struct {
			PmhID string `json:"pmh_id"`
		} `json:"oa_locations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return failure(s.Name(), fmt.Sprintf("decoding response: %v", err))
	}

	if !payload.IsOA {
		return failure(s.Name(), "article is not open access")
	}

	metadata := map[string]string{"is_oa": "true"}
	if best := payload.BestOALocation; best != nil {
		pdfURL := best.URLForPDF
		if pdfURL == "" {
			pdfURL = best.URL
		}
		if pdfURL != "" {
			metadata["pdf_url"] = pdfURL
		}
		if best.License != "" {
			metadata["license"] = best.License
		}
		if best.Version != "" {
			metadata["version"] = best.Version
		}
	}
	if pmcid := inferPMCID(payload.OALocations); pmcid != "" {
		metadata["pmcid"] = pmcid
	}

	return Result{
		Source:      s.Name(),
		ContentType: reference.ContentTypeOALocation,
		Success:     true,
		Metadata:    metadata,
	}
}

// inferPMCID scans OA locations for a PubMed Central harvest record and
// extracts the PMCID from its OAI-PMH id, e.g.
// "oai:pubmedcentral.nih.gov:123456" -> "PMC123456".
func inferPMCID(locations []struct {
	PmhID string `json:"pmh_id"`
}) string {
	for _, loc := range locations {
		if !strings.Contains(strings.ToLower(loc.PmhID), "pubmedcentral") {
			continue
		}
		parts := strings.Split(loc.PmhID, ":")
		if len(parts) >= 3 {
			return "PMC" + parts[len(parts)-1]
		}
		return ""
	}
	return ""
}
