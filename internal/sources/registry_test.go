package sources

import (
	"testing"
)

func TestRegistryResolve(t *testing.T) {
	cfg := testCfg()
	cfg.PrefixAliases = map[string]string{"pubmed": "PMID"}
	r := DefaultRegistry(cfg)

	tests := []struct {
		prefix string
		want   string
	}{
		{"PMID", "PMID"},
		{"pmid", "PMID"},
		{"pubmed", "PMID"},
		{"PubMed", "PMID"},
		{"doi", "DOI"},
		{"nct", "NCT"},
		{"url", "URL"},
		{"file", "FILE"},
	}
	for _, tt := range tests {
		src := r.Resolve(tt.prefix)
		if src == nil {
			t.Errorf("Resolve(%q) = nil", tt.prefix)
			continue
		}
		if src.Prefix() != tt.want {
			t.Errorf("Resolve(%q).Prefix() = %q, want %q", tt.prefix, src.Prefix(), tt.want)
		}
	}

	if src := r.Resolve("GEO"); src != nil {
		t.Errorf("Resolve(GEO) = %v, want nil", src.Prefix())
	}
}

func TestRegistryMatch(t *testing.T) {
	r := DefaultRegistry(testCfg())

	tests := []struct {
		in   string
		want string
	}{
		{"12345678", "PMID"},
		{"NCT01234567", "NCT"},
		{"https://example.org", "URL"},
	}
	for _, tt := range tests {
		src := r.Match(tt.in)
		if src == nil {
			t.Errorf("Match(%q) = nil", tt.in)
			continue
		}
		if src.Prefix() != tt.want {
			t.Errorf("Match(%q).Prefix() = %q, want %q", tt.in, src.Prefix(), tt.want)
		}
	}

	if src := r.Match("not-an-identifier"); src != nil {
		t.Errorf("Match(junk) = %v, want nil", src.Prefix())
	}
}

func TestHasPrefix(t *testing.T) {
	tests := []struct {
		id, prefix string
		want       bool
	}{
		{"PMID:123", "PMID", true},
		{"pmid:123", "PMID", true},
		{"PMID 123", "PMID", true},
		{"PMID", "PMID", false},
		{"PMIDX:123", "PMID", false},
		{"DOI:10.1/x", "PMID", false},
	}
	for _, tt := range tests {
		if got := HasPrefix(tt.id, tt.prefix); got != tt.want {
			t.Errorf("HasPrefix(%q, %q) = %v, want %v", tt.id, tt.prefix, got, tt.want)
		}
	}
}
