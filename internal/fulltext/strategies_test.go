package fulltext

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/citewell/refcheck/internal/reference"
)

func longBody() string {
	return strings.Repeat("The toxin binds the receptor with high affinity. ", 20)
}

func TestBioCFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/BioC_xml/12345678/ascii") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, "<collection><document><passage><text>%s</text><text>%s</text></passage></document></collection>",
			longBody(), longBody())
	}))
	defer srv.Close()

	s := NewBioCStrategy(testConfig(), WithBaseURL(srv.URL))
	result := s.Fetch(context.Background(), "PMID:12345678")
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if result.Source != "bioc" || result.ContentType != reference.ContentTypeFullTextBioC {
		t.Errorf("Source/ContentType = %q/%q", result.Source, result.ContentType)
	}
	if !strings.Contains(result.Content, "\n\n") {
		t.Error("sections should be joined by blank lines")
	}
}

func TestBioCFetch_RejectsShortBodyOn200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<collection><document><passage><text>too short</text></passage></document></collection>")
	}))
	defer srv.Close()

	s := NewBioCStrategy(testConfig(), WithBaseURL(srv.URL))
	result := s.Fetch(context.Background(), "12345678")
	if result.Success {
		t.Fatalf("result = %+v, want rejection of short body", result)
	}
	if result.ErrorMessage == "" {
		t.Error("rejection should carry an error message")
	}
}

func TestBioCFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	s := NewBioCStrategy(testConfig(), WithBaseURL(srv.URL))
	if result := s.Fetch(context.Background(), "12345678"); result.Success {
		t.Fatalf("result = %+v, want failure on 404", result)
	}
}

func TestBioCFetch_CanceledContext(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewBioCStrategy(testConfig(), WithBaseURL(srv.URL))
	if result := s.Fetch(ctx, "12345678"); result.Success {
		t.Fatalf("result = %+v, want failure with canceled context", result)
	}
	if hits != 0 {
		t.Errorf("server hit %d times, want 0", hits)
	}
}

func europePMCServer(t *testing.T, searchJSON, fulltextXML string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchJSON)
	})
	mux.HandleFunc("/PMC/999/fullTextXML", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fulltextXML)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestEuropePMCFetch(t *testing.T) {
	srv := europePMCServer(t,
		`{"resultList": {"result": [{"pmcid": "PMC999", "isOpenAccess": "Y"}]}}`,
		fmt.Sprintf("<article><body><p>%s</p><p>%s</p></body></article>", longBody(), longBody()),
	)

	s := NewEuropePMCStrategy(testConfig(), WithBaseURL(srv.URL))
	result := s.Fetch(context.Background(), "12345678")
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if result.ContentType != reference.ContentTypeFullTextEuropePMC {
		t.Errorf("ContentType = %q", result.ContentType)
	}
	if result.Metadata["pmcid"] != "PMC999" {
		t.Errorf("Metadata = %v", result.Metadata)
	}
}

func TestEuropePMCFetch_NotOpenAccess(t *testing.T) {
	srv := europePMCServer(t,
		`{"resultList": {"result": [{"pmcid": "PMC999", "isOpenAccess": "N"}]}}`, "")

	s := NewEuropePMCStrategy(testConfig(), WithBaseURL(srv.URL))
	if result := s.Fetch(context.Background(), "12345678"); result.Success {
		t.Fatalf("result = %+v, want rejection", result)
	}
}

func TestEuropePMCFetch_RejectsShortBodyOn200(t *testing.T) {
	srv := europePMCServer(t,
		`{"resultList": {"result": [{"pmcid": "PMC999", "isOpenAccess": "Y"}]}}`,
		"<article><body><p>tiny</p></body></article>")

	s := NewEuropePMCStrategy(testConfig(), WithBaseURL(srv.URL))
	if result := s.Fetch(context.Background(), "12345678"); result.Success {
		t.Fatalf("result = %+v, want rejection of short body", result)
	}
}

func TestUnpaywallFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") == "" {
			t.Error("email query parameter missing")
		}
		fmt.Fprint(w, `{
			"is_oa": true,
			"best_oa_location": {"url": "https://repo.example/landing", "url_for_pdf": "https://repo.example/a.pdf", "license": "cc-by", "version": "publishedVersion"},
			"oa_locations": [{"pmh_id": "oai:arXiv.org:2101.0001"}, {"pmh_id": "oai:pubmedcentral.nih.gov:4242"}]
		}`)
	}))
	defer srv.Close()

	s := NewUnpaywallStrategy(testConfig(), WithBaseURL(srv.URL))
	result := s.Fetch(context.Background(), "doi:10.1038/test")
	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if result.Content != "" {
		t.Error("Unpaywall should carry no content")
	}
	if result.Metadata["pdf_url"] != "https://repo.example/a.pdf" {
		t.Errorf("pdf_url = %q", result.Metadata["pdf_url"])
	}
	if result.Metadata["license"] != "cc-by" || result.Metadata["version"] != "publishedVersion" {
		t.Errorf("Metadata = %v", result.Metadata)
	}
	if result.Metadata["pmcid"] != "PMC4242" {
		t.Errorf("pmcid = %q, want inferred PMC4242", result.Metadata["pmcid"])
	}
}

func TestUnpaywallFetch_NotOA(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"is_oa": false}`)
	}))
	defer srv.Close()

	s := NewUnpaywallStrategy(testConfig(), WithBaseURL(srv.URL))
	if result := s.Fetch(context.Background(), "10.1038/test"); result.Success {
		t.Fatalf("result = %+v, want rejection", result)
	}
}
