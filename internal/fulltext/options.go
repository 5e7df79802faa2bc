package fulltext

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/citewell/refcheck/internal/config"
)

// providerClient is the shared transport state of a concrete strategy: a
// timeout-bound HTTP client, the request throttle, and the provider
// endpoint.
type providerClient struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
}

// Option configures a strategy's provider client.
type Option func(*providerClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(p *providerClient) {
		p.client = hc
	}
}

// WithBaseURL points the strategy at a custom endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(p *providerClient) {
		p.baseURL = u
	}
}

// get waits on the throttle and issues a context-bound GET. The caller owns
// the response body.
func (p *providerClient) get(ctx context.Context, rawURL string) (*http.Response, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return p.client.Do(req)
}

func newProviderClient(cfg *config.ValidationConfig, defaultURL string, opts []Option) providerClient {
	p := providerClient{
		client:  &http.Client{Timeout: config.RequestTimeout},
		limiter: cfg.NewLimiter(),
		baseURL: defaultURL,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}
