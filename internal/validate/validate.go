// Package validate defines the contract between the reference pipeline and
// the supporting-text validator, plus a literal-match baseline
// implementation. Fuzzy matching lives behind the Validator interface.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/citewell/refcheck/internal/config"
	"github.com/citewell/refcheck/internal/reference"
)

// Severity grades a validation finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Result is the outcome of checking one supporting-text quote against one
// resolved reference.
type Result struct {
	ReferenceID    string
	SupportingText string
	Found          bool
	Severity       Severity
	Message        string
}

// Report accumulates results across a validation run.
type Report struct {
	Results []Result
}

func (r *Report) Add(res Result) {
	r.Results = append(r.Results, res)
}

// Counts returns the number of findings per severity.
func (r *Report) Counts() (errors, warnings, infos int) {
	for _, res := range r.Results {
		switch res.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		default:
			infos++
		}
	}
	return
}

func (r *Report) HasErrors() bool {
	for _, res := range r.Results {
		if res.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validator checks whether a supporting-text quote appears in a reference.
type Validator interface {
	Validate(supportingText string, ref *reference.Content) Result
}

// SubstringValidator is the baseline: case-insensitive,
// whitespace-normalized containment.
type SubstringValidator struct{}

func (SubstringValidator) Validate(supportingText string, ref *reference.Content) Result {
	res := Result{
		SupportingText: supportingText,
	}
	if ref != nil {
		res.ReferenceID = ref.ReferenceID
	}

	if ref == nil || ref.ContentType == reference.ContentTypeUnavailable {
		res.Severity = SeverityWarning
		res.Message = "reference content unavailable"
		return res
	}

	haystack := normalize(ref.Content)
	needle := normalize(supportingText)
	if needle == "" {
		res.Severity = SeverityInfo
		res.Message = "empty supporting text"
		return res
	}

	if strings.Contains(haystack, needle) {
		res.Found = true
		res.Severity = SeverityInfo
		res.Message = "supporting text found"
		return res
	}

	res.Severity = SeverityError
	res.Message = fmt.Sprintf("supporting text not found in %s", res.ReferenceID)
	return res
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func normalize(s string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), " ")
}

// Quote pairs a supporting-text excerpt with the reference it cites.
type Quote struct {
	Text        string
	ReferenceID string
}

// ParseQuote splits an annotated supporting-text value using the
// configured pattern, e.g. `"some quote" [PMID:12345678]`. Returns the
// whole input as Text when the pattern does not match.
func ParseQuote(cfg *config.ValidationConfig, value string) Quote {
	if cfg.SupportingTextRegex == "" {
		return Quote{Text: strings.TrimSpace(value)}
	}
	pattern, err := regexp.Compile(cfg.SupportingTextRegex)
	if err != nil {
		return Quote{Text: strings.TrimSpace(value)}
	}
	m := pattern.FindStringSubmatch(value)
	if m == nil {
		return Quote{Text: strings.TrimSpace(value)}
	}
	q := Quote{}
	if cfg.TextGroup > 0 && cfg.TextGroup < len(m) {
		q.Text = strings.TrimSpace(m[cfg.TextGroup])
	}
	if cfg.RefGroup > 0 && cfg.RefGroup < len(m) {
		q.ReferenceID = strings.TrimSpace(m[cfg.RefGroup])
	}
	return q
}
