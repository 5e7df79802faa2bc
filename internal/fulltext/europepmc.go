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
	"github.com/citewell/refcheck/internal/xmltext"
)

// DefaultEuropePMCURL is the Europe PMC REST base.
const DefaultEuropePMCURL = "https://www.ebi.ac.uk/europepmc/webservices/rest"

// EuropePMCStrategy fetches fulltext from Europe PMC, which carries some
// open-access articles absent from US PubMed Central. Retrieval is
// two-step: a search by external id discovers the PMCID and open-access
// flag, then the fulltext XML is fetched by PMCID.
type EuropePMCStrategy struct {
	providerClient
}

// NewEuropePMCStrategy creates the strategy from the run configuration.
func NewEuropePMCStrategy(cfg *config.ValidationConfig, opts ...Option) *EuropePMCStrategy {
	return &EuropePMCStrategy{newProviderClient(cfg, DefaultEuropePMCURL, opts)}
}

// Name implements Strategy.
func (s *EuropePMCStrategy) Name() string { return "europepmc" }

func (s *EuropePMCStrategy) searchURL(pmid string) string {
	return fmt.Sprintf("%s/search?query=%s&format=json", s.baseURL, url.QueryEscape("ext_id:"+pmid))
}

func (s *EuropePMCStrategy) fulltextURL(pmcid string) string {
	return fmt.Sprintf("%s/PMC/%s/fullTextXML", s.baseURL, strings.TrimPrefix(pmcid, "PMC"))
}

// Fetch implements Strategy for a PMID.
func (s *EuropePMCStrategy) Fetch(ctx context.Context, identifier string) Result {
	pmid := barePMID(identifier)

	resp, err := s.get(ctx, s.searchURL(pmid))
	if err != nil {
		log.Printf("warning: Europe PMC search failed for PMID:%s: %v", pmid, err)
		return failure(s.Name(), err.Error())
	}

	var payload struct {
		ResultList struct {
			Result []struct {
				PMCID        string `json:"pmcid"`
				IsOpenAccess string `json:"isOpenAccess"`
			} `json:"result"`
		} `json:"resultList"`
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return failure(s.Name(), fmt.Sprintf("search HTTP %d", resp.StatusCode))
	}
	err = json.NewDecoder(resp.Body).Decode(&payload)
	resp.Body.Close()
	if err != nil {
		return failure(s.Name(), fmt.Sprintf("decoding search response: %v", err))
	}

	if len(payload.ResultList.Result) == 0 {
		return failure(s.Name(), "article not found in Europe PMC")
	}

	article := payload.ResultList.Result[0]
	if article.PMCID == "" || article.IsOpenAccess != "Y" {
		return failure(s.Name(), "article not open access or no PMC ID")
	}

	ftResp, err := s.get(ctx, s.fulltextURL(article.PMCID))
	if err != nil {
		log.Printf("warning: Europe PMC fulltext fetch failed: %v", err)
		return failure(s.Name(), err.Error())
	}
	defer ftResp.Body.Close()

	if ftResp.StatusCode != http.StatusOK {
		return failure(s.Name(), fmt.Sprintf("fulltext HTTP %d", ftResp.StatusCode))
	}

	paragraphs := xmltext.CollectWithin(ftResp.Body, "body", "p")
	text := strings.Join(paragraphs, "\n\n")
	if len(text) <= MinContentLength {
		return failure(s.Name(), "could not extract text from Europe PMC XML")
	}

	return Result{
		Content:     text,
		Source:      s.Name(),
		ContentType: reference.ContentTypeFullTextEuropePMC,
		Success:     true,
		Metadata:    map[string]string{"pmcid": article.PMCID},
	}
}
