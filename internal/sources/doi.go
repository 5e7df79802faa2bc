package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/citewell/refcheck/internal/config"
	"github.com/citewell/refcheck/internal/reference"
)

// Registry endpoints used by the DOI source.
const (
	DefaultCrossrefURL = "https://api.crossref.org"
	DefaultDataCiteURL = "https://api.datacite.org"
	DefaultZenodoURL   = "https://zenodo.org/api"
)

// zenodoDOIPrefix marks DOIs minted by Zenodo, whose record API exposes the
// deposited files.
const zenodoDOIPrefix = "10.5281/zenodo."

// DOISource resolves DOIs through Crossref, falling back to DataCite for
// DOIs Crossref does not index (Zenodo, Figshare, Dryad). DataCite-resolved
// Zenodo DOIs additionally get their file manifest from the Zenodo API.
type DOISource struct {
	apiClient
	userAgent   string
	crossrefURL string
	dataciteURL string
	zenodoURL   string
}

// DOIOption configures a DOISource.
type DOIOption func(*DOISource)

// WithDOIHTTPClient sets a custom HTTP client.
func WithDOIHTTPClient(hc *http.Client) DOIOption {
	return func(s *DOISource) {
		s.client = hc
	}
}

// WithCrossrefURL points the source at a custom Crossref endpoint.
func WithCrossrefURL(u string) DOIOption {
	return func(s *DOISource) {
		s.crossrefURL = u
	}
}

// WithDataCiteURL points the fallback at a custom DataCite endpoint.
func WithDataCiteURL(u string) DOIOption {
	return func(s *DOISource) {
		s.dataciteURL = u
	}
}

// WithZenodoURL points the file-manifest lookup at a custom endpoint.
func WithZenodoURL(u string) DOIOption {
	return func(s *DOISource) {
		s.zenodoURL = u
	}
}

// NewDOISource builds a DOI source from the run configuration.
func NewDOISource(cfg *config.ValidationConfig, opts ...DOIOption) *DOISource {
	s := &DOISource{
		apiClient:   newAPIClient(cfg),
		userAgent:   cfg.MailtoUserAgent(),
		crossrefURL: DefaultCrossrefURL,
		dataciteURL: DefaultDataCiteURL,
		zenodoURL:   DefaultZenodoURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DOISource) Prefix() string { return "DOI" }

func (s *DOISource) CanHandle(referenceID string) bool {
	return HasPrefix(strings.TrimSpace(referenceID), "DOI")
}

// Fetch resolves one DOI. Crossref first; any non-ok answer falls through
// to DataCite exactly once.
func (s *DOISource) Fetch(ctx context.Context, identifier string) *reference.Content {
	doi := strings.TrimSpace(identifier)

	if content := s.fetchCrossref(ctx, doi); content != nil {
		return content
	}
	return s.fetchDataCite(ctx, doi)
}

func (s *DOISource) header() http.Header {
	h := http.Header{}
	h.Set("User-Agent", s.userAgent)
	h.Set("Accept", "application/json")
	return h
}

func (s *DOISource) fetchCrossref(ctx context.Context, doi string) *reference.Content {
	u := fmt.Sprintf("%s/works/%s", s.crossrefURL, doi)

	body, status, err := s.get(ctx, u, s.header())
	if err != nil {
		log.Printf("warning: Crossref request failed for DOI:%s: %v", doi, err)
		return nil
	}
	if status != http.StatusOK {
		log.Printf("Crossref returned %d for DOI:%s, will try DataCite", status, doi)
		return nil
	}

	var envelope struct {
		Status  string `json:"status"`
		Message struct {
			Title          []string `json:"title"`
			ContainerTitle []string `json:"container-title"`
			Abstract       string   `json:"abstract"`
			Subject        []string `json:"subject"`
			Author         []struct {
				Given  string `json:"given"`
				Family string `json:"family"`
			} `json:"author"`
			PublishedPrint  crossrefDate `json:"published-print"`
			PublishedOnline crossrefDate `json:"published-online"`
			Created         crossrefDate `json:"created"`
			Issued          crossrefDate `json:"issued"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Printf("warning: unparseable Crossref response for DOI:%s: %v", doi, err)
		return nil
	}
	if envelope.Status != "ok" {
		log.Printf("Crossref API error for DOI:%s, will try DataCite", doi)
		return nil
	}

	msg := &envelope.Message

	title := ""
	if len(msg.Title) > 0 {
		title = msg.Title[0]
	}
	journal := ""
	if len(msg.ContainerTitle) > 0 {
		journal = msg.ContainerTitle[0]
	}

	var authors []string
	for _, a := range msg.Author {
		if name := joinName(a.Given, a.Family); name != "" {
			authors = append(authors, name)
		}
	}

	// First populated date field wins, in decreasing order of authority.
	year := ""
	for _, d := range []crossrefDate{msg.PublishedPrint, msg.PublishedOnline, msg.Created, msg.Issued} {
		if y := d.year(); y != "" {
			year = y
			break
		}
	}

	abstract := stripJATS(msg.Abstract)

	contentType := reference.ContentTypeAbstractOnly
	if abstract == "" {
		contentType = reference.ContentTypeUnavailable
	}

	return &reference.Content{
		ReferenceID: "DOI:" + doi,
		Title:       title,
		Authors:     authors,
		Journal:     journal,
		Year:        year,
		DOI:         doi,
		Content:     abstract,
		ContentType: contentType,
		Keywords:    msg.Subject,
	}
}

// crossrefDate is the nested date-parts shape Crossref uses everywhere.
type crossrefDate struct {
	DateParts [][]int `json:"date-parts"`
}

func (d crossrefDate) year() string {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return ""
	}
	return strconv.Itoa(d.DateParts[0][0])
}

// stripJATS flattens JATS/XML markup in Crossref abstracts to plain text.
func stripJATS(abstract string) string {
	if abstract == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(abstract))
	if err != nil {
		return strings.TrimSpace(abstract)
	}
	return strings.TrimSpace(doc.Text())
}

func joinName(given, family string) string {
	switch {
	case given != "" && family != "":
		return given + " " + family
	case family != "":
		return family
	default:
		return given
	}
}

func (s *DOISource) fetchDataCite(ctx context.Context, doi string) *reference.Content {
	u := fmt.Sprintf("%s/dois/%s", s.dataciteURL, doi)

	body, status, err := s.get(ctx, u, s.header())
	if err != nil {
		log.Printf("warning: DataCite request failed for DOI:%s: %v", doi, err)
		return nil
	}
	if status != http.StatusOK {
		log.Printf("warning: failed to fetch DOI:%s from both Crossref and DataCite", doi)
		return nil
	}

	var envelope struct {
		Data struct {
			Attributes struct {
				Titles []struct {
					Title string `json:"title"`
				} `json:"titles"`
				Creators []struct {
					Name       string `json:"name"`
					GivenName  string `json:"givenName"`
					FamilyName string `json:"familyName"`
				} `json:"creators"`
				PublicationYear int    `json:"publicationYear"`
				Publisher       string `json:"publisher"`
				Descriptions    []struct {
					Description     string `json:"description"`
					DescriptionType string `json:"descriptionType"`
				} `json:"descriptions"`
				Subjects []struct {
					Subject string `json:"subject"`
				} `json:"subjects"`
			} `json:"attributes"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Printf("warning: unparseable DataCite response for DOI:%s: %v", doi, err)
		return nil
	}
	attrs := &envelope.Data.Attributes

	title := ""
	if len(attrs.Titles) > 0 {
		title = attrs.Titles[0].Title
	}

	var authors []string
	for _, c := range attrs.Creators {
		name := c.Name
		if name == "" {
			name = joinName(c.GivenName, c.FamilyName)
		}
		if name != "" {
			authors = append(authors, name)
		}
	}

	year := ""
	if attrs.PublicationYear != 0 {
		year = strconv.Itoa(attrs.PublicationYear)
	}

	abstract := ""
	for _, d := range attrs.Descriptions {
		if d.DescriptionType == "Abstract" {
			abstract = d.Description
			break
		}
	}

	var keywords []string
	for _, subj := range attrs.Subjects {
		if subj.Subject != "" {
			keywords = append(keywords, subj.Subject)
		}
	}

	contentType := reference.ContentTypeAbstractOnly
	if abstract == "" {
		contentType = reference.ContentTypeUnavailable
	}

	return &reference.Content{
		ReferenceID:        "DOI:" + doi,
		Title:              title,
		Authors:            authors,
		Journal:            attrs.Publisher,
		Year:               year,
		DOI:                doi,
		Content:            abstract,
		ContentType:        contentType,
		Keywords:           keywords,
		SupplementaryFiles: s.fetchRepositoryFiles(ctx, doi),
	}
}

// fetchRepositoryFiles returns the file manifest for repository DOIs we
// know how to query. Currently Zenodo only.
func (s *DOISource) fetchRepositoryFiles(ctx context.Context, doi string) []reference.SupplementaryFile {
	if !strings.HasPrefix(doi, zenodoDOIPrefix) {
		return nil
	}
	recordID := strings.TrimPrefix(doi, zenodoDOIPrefix)
	if recordID == "" {
		return nil
	}
	return s.fetchZenodoFiles(ctx, recordID)
}

func (s *DOISource) fetchZenodoFiles(ctx context.Context, recordID string) []reference.SupplementaryFile {
	u := fmt.Sprintf("%s/records/%s", s.zenodoURL, recordID)

	body, status, err := s.get(ctx, u, s.header())
	if err != nil || status != http.StatusOK {
		log.Printf("failed to fetch Zenodo files for record %s", recordID)
		return nil
	}

	var record struct {
		Files []struct {
			Key      string `json:"key"`
			Size     int64  `json:"size"`
			Checksum string `json:"checksum"`
			Links    struct {
				Self string `json:"self"`
			} `json:"links"`
		} `json:"files"`
	}
	if err := json.Unmarshal(body, &record); err != nil {
		log.Printf("unparseable Zenodo record %s: %v", recordID, err)
		return nil
	}

	var files []reference.SupplementaryFile
	for _, f := range record.Files {
		files = append(files, reference.SupplementaryFile{
			Filename:    f.Key,
			DownloadURL: f.Links.Self,
			SizeBytes:   f.Size,
			Checksum:    f.Checksum,
		})
	}
	return files
}
