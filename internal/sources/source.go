// Package sources resolves reference identifiers against their home
// providers.
//
// Each Source owns exactly one identifier namespace (PMID, DOI, NCT, URL,
// FILE) and knows how to turn an identifier into a normalized
// reference.Content. A Registry maps canonical prefixes to sources so the
// fetcher can dispatch without knowing any provider details.
//
// Sources never return errors for expected failure modes. A network fault,
// a non-200 status, or an unparseable payload is logged and reported as a
// nil Content, so callers treat "not found" as normal flow.
package sources

import (
	"context"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/citewell/refcheck/internal/config"
	"github.com/citewell/refcheck/internal/reference"
)

// Source fetches references from one identifier namespace.
type Source interface {
	// Prefix is the canonical namespace tag, e.g. "PMID".
	Prefix() string

	// CanHandle reports whether the raw reference id belongs to this
	// source. The usual shape is "<prefix>:" case-insensitively at the
	// start; sources also accept bare forms unambiguous to their
	// namespace (an 11-character NCT id, a plain digit string).
	CanHandle(referenceID string) bool

	// Fetch resolves the identifier (already stripped of its prefix).
	// Returns nil on any unrecoverable failure.
	Fetch(ctx context.Context, identifier string) *reference.Content
}

// HasPrefix reports whether referenceID starts with "<prefix>:" or
// "<prefix> ", case-insensitively. The default CanHandle check.
func HasPrefix(referenceID, prefix string) bool {
	if len(referenceID) <= len(prefix) {
		return false
	}
	if !strings.EqualFold(referenceID[:len(prefix)], prefix) {
		return false
	}
	sep := referenceID[len(prefix)]
	return sep == ':' || sep == ' ' || sep == '\t'
}

// apiClient is the transport state shared by the concrete sources: a
// timeout-bound HTTP client plus the request throttle. Every outbound call
// waits on the limiter first.
type apiClient struct {
	client  *http.Client
	limiter *rate.Limiter
}

func newAPIClient(cfg *config.ValidationConfig) apiClient {
	return apiClient{
		client:  &http.Client{Timeout: config.RequestTimeout},
		limiter: cfg.NewLimiter(),
	}
}

// get issues a throttled GET and returns the body and status code. The
// error covers transport failures only; non-200 statuses come back with a
// nil error so callers can branch on the code.
func (c *apiClient) get(ctx context.Context, url string, header http.Header) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
