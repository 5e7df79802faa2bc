package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/citewell/refcheck/internal/config"
	"github.com/citewell/refcheck/internal/reference"
	"github.com/citewell/refcheck/internal/xmltext"
)

// NCBI endpoints used by the PMID source.
const (
	DefaultEutilsURL      = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	DefaultPMCArticlesURL = "https://www.ncbi.nlm.nih.gov/pmc/articles"
)

// PMC fulltext shorter than this is an access stub, not an article.
const minPMCFulltextLength = 1000

// Abstracts at or under this length are boilerplate ("No abstract
// available." style), not usable text.
const minAbstractLength = 50

// PMIDSource resolves PubMed identifiers through the NCBI eutils services.
//
// A single fetch issues up to six sequential calls: esummary for metadata,
// efetch for the abstract, elink to discover a PMC id, PMC XML then PMC
// HTML for fulltext, and efetch XML for MeSH terms. Every step past the
// summary is optional; partial results (title-only, abstract-only) are
// still successes.
type PMIDSource struct {
	apiClient
	email          string
	eutilsURL      string
	pmcArticlesURL string
}

// PMIDOption configures a PMIDSource.
type PMIDOption func(*PMIDSource)

// WithPMIDHTTPClient sets a custom HTTP client.
func WithPMIDHTTPClient(hc *http.Client) PMIDOption {
	return func(s *PMIDSource) {
		s.client = hc
	}
}

// WithEutilsURL points the source at a custom eutils endpoint (for testing).
func WithEutilsURL(u string) PMIDOption {
	return func(s *PMIDSource) {
		s.eutilsURL = u
	}
}

// WithPMCArticlesURL points the HTML fallback at a custom endpoint.
func WithPMCArticlesURL(u string) PMIDOption {
	return func(s *PMIDSource) {
		s.pmcArticlesURL = u
	}
}

// NewPMIDSource builds a PMID source from the run configuration.
func NewPMIDSource(cfg *config.ValidationConfig, opts ...PMIDOption) *PMIDSource {
	s := &PMIDSource{
		apiClient:      newAPIClient(cfg),
		email:          cfg.Email,
		eutilsURL:      DefaultEutilsURL,
		pmcArticlesURL: DefaultPMCArticlesURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PMIDSource) Prefix() string { return "PMID" }

// CanHandle accepts "PMID:..." / "PMID ..." and bare digit strings.
func (s *PMIDSource) CanHandle(referenceID string) bool {
	referenceID = strings.TrimSpace(referenceID)
	if HasPrefix(referenceID, "PMID") {
		return true
	}
	return isDigits(referenceID)
}

func isDigits(v string) bool {
	if v == "" {
		return false
	}
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return false
		}
	}
	return true
}

// Fetch resolves one PMID. Returns nil only when the summary record itself
// cannot be retrieved; missing abstract or fulltext degrades the
// content_type instead.
func (s *PMIDSource) Fetch(ctx context.Context, identifier string) *reference.Content {
	pmid := strings.TrimSpace(identifier)

	summary := s.fetchSummary(ctx, pmid)
	if summary == nil {
		return nil
	}

	abstract := s.fetchAbstract(ctx, pmid)
	fullText, contentType := s.fetchPMCFulltext(ctx, pmid)
	keywords := s.fetchMeSHTerms(ctx, pmid)

	var content string
	switch {
	case fullText != "" && abstract != "":
		content = abstract + "\n\n" + fullText
	case fullText != "":
		content = fullText
	default:
		content = abstract
		if abstract != "" {
			contentType = reference.ContentTypeAbstractOnly
		} else {
			contentType = reference.ContentTypeUnavailable
		}
	}

	year := ""
	if len(summary.PubDate) >= 4 {
		year = summary.PubDate[:4]
	}

	return &reference.Content{
		ReferenceID: "PMID:" + pmid,
		Title:       summary.Title,
		Authors:     summary.authorNames(),
		Journal:     summary.Source,
		Year:        year,
		DOI:         summary.doi(),
		Content:     content,
		ContentType: contentType,
		Keywords:    keywords,
	}
}

// pubmedSummary is the per-record shape inside an esummary JSON response.
type pubmedSummary struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	PubDate string `json:"pubdate"`
	Authors []struct {
		Name string `json:"name"`
	} `json:"authors"`
	ELocationID string `json:"elocationid"`
	ArticleIDs  []struct {
		IDType string `json:"idtype"`
		Value  string `json:"value"`
	} `json:"articleids"`
}

func (r *pubmedSummary) authorNames() []string {
	var names []string
	for _, a := range r.Authors {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

// doi scans articleids for an explicit DOI, falling back to elocationid
// when it looks like one.
func (r *pubmedSummary) doi() string {
	for _, id := range r.ArticleIDs {
		if id.IDType == "doi" && id.Value != "" {
			return id.Value
		}
	}
	if strings.HasPrefix(r.ELocationID, "10.") {
		return r.ELocationID
	}
	return ""
}

func (s *PMIDSource) fetchSummary(ctx context.Context, pmid string) *pubmedSummary {
	u := fmt.Sprintf("%s/esummary.fcgi?db=pubmed&id=%s&retmode=json&email=%s",
		s.eutilsURL, url.QueryEscape(pmid), url.QueryEscape(s.email))

	body, status, err := s.get(ctx, u, nil)
	if err != nil {
		log.Printf("warning: failed to fetch PMID:%s from NCBI: %v", pmid, err)
		return nil
	}
	if status != http.StatusOK {
		log.Printf("warning: NCBI esummary returned %d for PMID:%s", status, pmid)
		return nil
	}

	var envelope struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Printf("warning: unparseable esummary response for PMID:%s: %v", pmid, err)
		return nil
	}
	raw, ok := envelope.Result[pmid]
	if !ok {
		log.Printf("warning: no records found for PMID:%s", pmid)
		return nil
	}
	var record pubmedSummary
	if err := json.Unmarshal(raw, &record); err != nil {
		log.Printf("warning: unparseable summary record for PMID:%s: %v", pmid, err)
		return nil
	}
	return &record
}

func (s *PMIDSource) fetchAbstract(ctx context.Context, pmid string) string {
	u := fmt.Sprintf("%s/efetch.fcgi?db=pubmed&id=%s&rettype=abstract&retmode=text&email=%s",
		s.eutilsURL, url.QueryEscape(pmid), url.QueryEscape(s.email))

	body, status, err := s.get(ctx, u, nil)
	if err != nil || status != http.StatusOK {
		return ""
	}
	text := strings.TrimSpace(string(body))
	if len(text) <= minAbstractLength {
		return ""
	}
	return text
}

// fetchPMCFulltext tries the PMC XML rendering, then the article HTML page.
// Returns empty text when neither clears the length gate.
func (s *PMIDSource) fetchPMCFulltext(ctx context.Context, pmid string) (string, string) {
	pmcid := s.linkPMC(ctx, pmid)
	if pmcid == "" {
		return "", ""
	}

	if text := s.fetchPMCXML(ctx, pmcid); len(text) > minPMCFulltextLength {
		return text, reference.ContentTypeFullTextXML
	}
	if text := s.fetchPMCHTML(ctx, pmcid); len(text) > minPMCFulltextLength {
		return text, reference.ContentTypeFullTextHTML
	}
	return "", ""
}

// flexID tolerates NCBI link ids arriving as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	*f = flexID(strings.Trim(string(b), `"`))
	return nil
}

func (s *PMIDSource) linkPMC(ctx context.Context, pmid string) string {
	u := fmt.Sprintf("%s/elink.fcgi?dbfrom=pubmed&db=pmc&id=%s&linkname=pubmed_pmc&retmode=json&email=%s",
		s.eutilsURL, url.QueryEscape(pmid), url.QueryEscape(s.email))

	body, status, err := s.get(ctx, u, nil)
	if err != nil {
		log.Printf("warning: failed to link PMID:%s to PMC: %v", pmid, err)
		return ""
	}
	if status != http.StatusOK {
		return ""
	}

	var envelope struct {
		LinkSets []struct {
			LinkSetDBs []struct {
				Links []flexID `json:"links"`
			} `json:"linksetdbs"`
		} `json:"linksets"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Printf("warning: unparseable elink response for PMID:%s: %v", pmid, err)
		return ""
	}
	if len(envelope.LinkSets) == 0 || len(envelope.LinkSets[0].LinkSetDBs) == 0 {
		return ""
	}
	links := envelope.LinkSets[0].LinkSetDBs[0].Links
	if len(links) == 0 {
		return ""
	}
	return string(links[0])
}

func (s *PMIDSource) fetchPMCXML(ctx context.Context, pmcid string) string {
	u := fmt.Sprintf("%s/efetch.fcgi?db=pmc&id=%s&rettype=xml&retmode=xml&email=%s",
		s.eutilsURL, url.QueryEscape(pmcid), url.QueryEscape(s.email))

	body, status, err := s.get(ctx, u, nil)
	if err != nil || status != http.StatusOK {
		return ""
	}

	// PMC serves a stub article for restricted content; the markers live
	// in the body text rather than the status code.
	lower := strings.ToLower(string(body))
	if strings.Contains(lower, "cannot be obtained") || strings.Contains(lower, "restricted") {
		return ""
	}

	paragraphs := xmltext.CollectWithin(bytes.NewReader(body), "body", "p")
	return strings.Join(paragraphs, "\n\n")
}

func (s *PMIDSource) fetchPMCHTML(ctx context.Context, pmcid string) string {
	u := fmt.Sprintf("%s/PMC%s/", s.pmcArticlesURL, pmcid)

	body, status, err := s.get(ctx, u, nil)
	if err != nil || status != http.StatusOK {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	articleBody := doc.Find("div.article-body")
	if articleBody.Length() == 0 {
		articleBody = doc.Find("div.tsec")
	}

	var paragraphs []string
	articleBody.Find("p").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n\n")
}

// fetchMeSHTerms pulls MeSH descriptors from the article XML. Qualifiers
// fold into the descriptor as "Descriptor/qual1, qual2".
func (s *PMIDSource) fetchMeSHTerms(ctx context.Context, pmid string) []string {
	u := fmt.Sprintf("%s/efetch.fcgi?db=pubmed&id=%s&rettype=xml&retmode=xml&email=%s",
		s.eutilsURL, url.QueryEscape(pmid), url.QueryEscape(s.email))

	body, status, err := s.get(ctx, u, nil)
	if err != nil || status != http.StatusOK {
		return nil
	}

	var doc struct {
		Headings []struct {
			Descriptor string   `xml:"DescriptorName"`
			Qualifiers []string `xml:"QualifierName"`
		} `xml:"PubmedArticle>MedlineCitation>MeshHeadingList>MeshHeading"`
	}
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil
	}

	var terms []string
	for _, h := range doc.Headings {
		if h.Descriptor == "" {
			continue
		}
		term := h.Descriptor
		if len(h.Qualifiers) > 0 {
			term += "/" + strings.Join(h.Qualifiers, ", ")
		}
		terms = append(terms, term)
	}
	return terms
}
