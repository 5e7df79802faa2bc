package validate

import (
	"testing"

	"github.com/citewell/refcheck/internal/config"
	"github.com/citewell/refcheck/internal/reference"
)

func TestSubstringValidator(t *testing.T) {
	ref := &reference.Content{
		ReferenceID: "PMID:123",
		Content:     "The toxin binds   the receptor\nwith high affinity.",
		ContentType: reference.ContentTypeAbstractOnly,
	}

	tests := []struct {
		name     string
		text     string
		ref      *reference.Content
		found    bool
		severity Severity
	}{
		{"exact", "toxin binds the receptor", ref, true, SeverityInfo},
		{"case and whitespace folded", "TOXIN  BINDS the receptor WITH high", ref, true, SeverityInfo},
		{"absent", "completely different claim", ref, false, SeverityError},
		{"empty text", "   ", ref, false, SeverityInfo},
		{"nil reference", "anything", nil, false, SeverityWarning},
		{"unavailable content", "anything", &reference.Content{
			ReferenceID: "PMID:9",
			ContentType: reference.ContentTypeUnavailable,
		}, false, SeverityWarning},
	}

	var v SubstringValidator
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := v.Validate(tt.text, tt.ref)
			if res.Found != tt.found || res.Severity != tt.severity {
				t.Errorf("Validate = found %v severity %q, want %v %q",
					res.Found, res.Severity, tt.found, tt.severity)
			}
		})
	}
}

func TestReportCounts(t *testing.T) {
	var r Report
	r.Add(Result{Severity: SeverityError})
	r.Add(Result{Severity: SeverityWarning})
	r.Add(Result{Severity: SeverityInfo})
	r.Add(Result{Severity: SeverityError})

	errs, warns, infos := r.Counts()
	if errs != 2 || warns != 1 || infos != 1 {
		t.Errorf("Counts = %d/%d/%d", errs, warns, infos)
	}
	if !r.HasErrors() {
		t.Error("HasErrors = false")
	}
}

func TestParseQuote(t *testing.T) {
	cfg := config.Default()
	cfg.SupportingTextRegex = `^"(.+)"\s*\[(.+)\]$`
	cfg.TextGroup = 1
	cfg.RefGroup = 2

	q := ParseQuote(cfg, `"the toxin binds" [PMID:12345678]`)
	if q.Text != "the toxin binds" || q.ReferenceID != "PMID:12345678" {
		t.Errorf("ParseQuote = %+v", q)
	}

	q = ParseQuote(cfg, "unannotated text")
	if q.Text != "unannotated text" || q.ReferenceID != "" {
		t.Errorf("ParseQuote fallback = %+v", q)
	}

	cfg.SupportingTextRegex = ""
	q = ParseQuote(cfg, "  plain  ")
	if q.Text != "plain" {
		t.Errorf("ParseQuote no pattern = %+v", q)
	}
}
