package sources

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/citewell/refcheck/internal/config"
	"github.com/citewell/refcheck/internal/reference"
)

// URLSource resolves plain web pages: the <title> tag becomes the title and
// the visible body text becomes the content.
type URLSource struct {
	apiClient
}

// URLOption configures a URLSource.
type URLOption func(*URLSource)

// WithURLHTTPClient sets a custom HTTP client.
func WithURLHTTPClient(hc *http.Client) URLOption {
	return func(s *URLSource) {
		s.client = hc
	}
}

// NewURLSource builds a URL source from the run configuration.
func NewURLSource(cfg *config.ValidationConfig, opts ...URLOption) *URLSource {
	s := &URLSource{apiClient: newAPIClient(cfg)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *URLSource) Prefix() string { return "URL" }

// CanHandle accepts "url:..." and bare http(s) addresses.
func (s *URLSource) CanHandle(referenceID string) bool {
	referenceID = strings.TrimSpace(referenceID)
	if HasPrefix(referenceID, "URL") {
		return true
	}
	return strings.HasPrefix(referenceID, "http://") || strings.HasPrefix(referenceID, "https://")
}

// Fetch downloads the page and extracts its title and visible text.
// Script and style elements are dropped before text extraction.
func (s *URLSource) Fetch(ctx context.Context, identifier string) *reference.Content {
	target := strings.TrimSpace(identifier)

	body, status, err := s.get(ctx, target, nil)
	if err != nil {
		log.Printf("warning: failed to fetch URL %s: %v", target, err)
		return nil
	}
	if status != http.StatusOK {
		log.Printf("warning: URL %s returned %d", target, status)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		log.Printf("warning: unparseable HTML from %s: %v", target, err)
		return nil
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("script, style, noscript").Remove()
	text := visibleText(doc.Find("body").Text())

	contentType := reference.ContentTypeURL
	if text == "" {
		contentType = reference.ContentTypeUnavailable
	}

	return &reference.Content{
		ReferenceID: "URL:" + target,
		Title:       title,
		Content:     text,
		ContentType: contentType,
	}
}

// visibleText squeezes the whitespace soup left after tag removal into
// trimmed non-empty lines.
func visibleText(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
