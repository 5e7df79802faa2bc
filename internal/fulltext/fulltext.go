// Package fulltext retrieves article fulltext through an ordered fallback
// of external providers.
//
// No single provider reliably serves fulltext for a given identifier, so the
// Fetcher tries each capable strategy in priority order and returns the
// first result that actually carries text. Providers routinely answer
// HTTP 200 with error pages or stub bodies, so strategies also apply a
// minimum-length quality gate before declaring success.
package fulltext

import "context"

// Minimum number of characters for a provider body to count as fulltext
// rather than an error page that returned 200.
const MinContentLength = 500

// Result is the outcome of one fulltext retrieval attempt. It is never
// persisted; successful content flows into a reference.Content instead.
type Result struct {
	Content      string
	Source       string // provider tag: "bioc", "europepmc", "unpaywall", "none"
	ContentType  string
	Success      bool
	ErrorMessage string // set iff not Success
	Metadata     map[string]string
}

// failure builds an unsuccessful result for a source.
func failure(source, msg string) Result {
	return Result{
		Source:       source,
		ContentType:  "unavailable",
		Success:      false,
		ErrorMessage: msg,
	}
}

// Strategy fetches fulltext from exactly one provider.
type Strategy interface {
	// Name identifies the strategy in logs and Result.Source.
	Name() string

	// Fetch attempts retrieval for the identifier. Expected failures
	// (not found, not open access, too short) come back as an
	// unsuccessful Result, never as a panic or crash.
	Fetch(ctx context.Context, identifier string) Result
}
