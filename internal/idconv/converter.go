// Package idconv converts between DOI, PMID and PMCID identifiers using the
// NCBI ID Converter and esummary services.
//
// Conversion is unreliable and asymmetric: a DOI may have no PubMed record,
// a PMID may have no PMC deposit. Every conversion therefore returns the
// empty string, never an error, when the mapping is unknown, so callers can
// treat "no mapping" as normal flow.
package idconv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/citewell/refcheck/internal/config"
)

const (
	// DefaultIDConvURL is the NCBI ID Converter endpoint.
	DefaultIDConvURL = "https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0/"

	// DefaultESummaryURL is the NCBI esummary endpoint.
	DefaultESummaryURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esummary.fcgi"
)

// Converter performs identifier conversions. Each conversion is a single
// rate-limited HTTP call.
type Converter struct {
	client      *http.Client
	limiter     *rate.Limiter
	email       string
	idconvURL   string
	esummaryURL string
}

// Option configures a Converter.
type Option func(*Converter)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Converter) {
		c.client = hc
	}
}

// WithIDConvURL sets a custom ID Converter endpoint (for testing).
func WithIDConvURL(u string) Option {
	return func(c *Converter) {
		c.idconvURL = u
	}
}

// WithESummaryURL sets a custom esummary endpoint (for testing).
func WithESummaryURL(u string) Option {
	return func(c *Converter) {
		c.esummaryURL = u
	}
}

// New creates a Converter from the run configuration.
func New(cfg *config.ValidationConfig, opts ...Option) *Converter {
	c := &Converter{
		client:      &http.Client{Timeout: config.RequestTimeout},
		limiter:     cfg.NewLimiter(),
		email:       cfg.Email,
		idconvURL:   DefaultIDConvURL,
		esummaryURL: DefaultESummaryURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DOIToPMID converts a DOI to a PMID. Returns "" if no mapping exists.
func (c *Converter) DOIToPMID(ctx context.Context, doi string) string {
	doi = stripPrefix(doi, "doi:")
	rec := c.idconvRecord(ctx, doi)
	if rec == nil {
		return ""
	}
	return rec.PMID
}

// PMIDToPMCID converts a PMID to a PMCID. Returns "" if the article has no
// PMC deposit.
func (c *Converter) PMIDToPMCID(ctx context.Context, pmid string) string {
	pmid = afterColon(pmid)
	rec := c.idconvRecord(ctx, pmid)
	if rec == nil {
		return ""
	}
	return rec.PMCID
}

// PMIDToDOI converts a PMID to a DOI via esummary article ids, falling back
// to the elocationid field when it looks like a DOI.
func (c *Converter) PMIDToDOI(ctx context.Context, pmid string) string {
	pmid = afterColon(pmid)

	body, err := c.get(ctx, c.esummaryURL+"?"+url.Values{
		"db":      {"pubmed"},
		"id":      {pmid},
		"retmode": {"json"},
		"email":   {c.email},
	}.Encode())
	if err != nil {
		log.Printf("warning: PMID to DOI conversion failed for %s: %v", pmid, err)
		return ""
	}

	var payload struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	rec := summaryRecord(payload.Result, pmid)
	if rec == nil {
		return ""
	}
	for _, aid := range rec.ArticleIDs {
		if aid.IDType == "doi" {
			return aid.Value
		}
	}
	if strings.HasPrefix(rec.ELocationID, "10.") {
		return rec.ELocationID
	}
	return ""
}

// PMCIDToPMID converts a PMCID (with or without the PMC prefix) to a PMID.
func (c *Converter) PMCIDToPMID(ctx context.Context, pmcid string) string {
	id := strings.NewReplacer("PMC", "", "pmc", "").Replace(pmcid)
	id = afterColon(id)

	body, err := c.get(ctx, c.esummaryURL+"?"+url.Values{
		"db":      {"pmc"},
		"id":      {id},
		"retmode": {"json"},
		"email":   {c.email},
	}.Encode())
	if err != nil {
		log.Printf("warning: PMCID to PMID conversion failed for %s: %v", pmcid, err)
		return ""
	}

	var payload struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	var uids []string
	if raw, ok := payload.Result["uids"]; ok {
		_ = json.Unmarshal(raw, &uids)
	}
	if len(uids) == 0 {
		return ""
	}

	rec := summaryRecord(payload.Result, uids[0])
	if rec == nil {
		return ""
	}
	for _, aid := range rec.ArticleIDs {
		if aid.IDType == "pmid" {
			return aid.Value
		}
	}
	return ""
}

// idconvRecord calls the ID Converter for a single identifier.
func (c *Converter) idconvRecord(ctx context.Context, id string) *idconvRecord {
	body, err := c.get(ctx, c.idconvURL+"?"+url.Values{
		"ids":    {id},
		"format": {"json"},
		"email":  {c.email},
	}.Encode())
	if err != nil {
		log.Printf("warning: id conversion failed for %s: %v", id, err)
		return nil
	}

	var payload struct {
		Records []idconvRecord `json:"records"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	if len(payload.Records) == 0 {
		return nil
	}
	return &payload.Records[0]
}

// get waits on the rate limiter, issues a GET and returns the body on 200.
func (c *Converter) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

type idconvRecord struct {
	PMID  string `json:"pmid"`
	PMCID string `json:"pmcid"`
	DOI   string `json:"doi"`
}

type esummaryArticle struct {
	ArticleIDs []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
	ELocationID string `json:"elocationid"`
}

// summaryRecord unmarshals the per-uid record from an esummary result map.
func summaryRecord(result map[string]json.RawMessage, uid string) *esummaryArticle {
	raw, ok := result[uid]
	if !ok {
		return nil
	}
	var rec esummaryArticle
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil
	}
	return &rec
}

// stripPrefix removes a case-insensitive prefix such as "doi:".
func stripPrefix(s, prefix string) string {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):]
	}
	return s
}

// afterColon returns the part after the last colon, for inputs like
// "PMID:12345678".
func afterColon(s string) string {
	if i := strings.LastIndex(s, ":"); i >= 0 {
		return s[i+1:]
	}
	return s
}
