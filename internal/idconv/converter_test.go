package idconv

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/citewell/refcheck/internal/config"
)

func testConfig() *config.ValidationConfig {
	cfg := config.Default()
	cfg.RateLimitDelay = 0
	return cfg
}

func TestDOIToPMID(t *testing.T) {
	var gotIDs string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIDs = r.URL.Query().Get("ids")
		fmt.Fprint(w, `{"records":[{"pmid":"12345678","pmcid":"PMC999","doi":"10.1234/test"}]}`)
	}))
	defer srv.Close()

	conv := New(testConfig(), WithIDConvURL(srv.URL))

	if got := conv.DOIToPMID(context.Background(), "DOI:10.1234/test"); got != "12345678" {
		t.Errorf("DOIToPMID() = %q, want 12345678", got)
	}
	if gotIDs != "10.1234/test" {
		t.Errorf("ids param = %q, want prefix stripped", gotIDs)
	}
}

func TestDOIToPMID_NoRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"records":[]}`)
	}))
	defer srv.Close()

	conv := New(testConfig(), WithIDConvURL(srv.URL))
	if got := conv.DOIToPMID(context.Background(), "10.1234/missing"); got != "" {
		t.Errorf("DOIToPMID() = %q, want empty", got)
	}
}

func TestDOIToPMID_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	conv := New(testConfig(), WithIDConvURL(srv.URL))
	if got := conv.DOIToPMID(context.Background(), "10.1234/test"); got != "" {
		t.Errorf("DOIToPMID() = %q, want empty on server error", got)
	}
}

func TestPMIDToPMCID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"records":[{"pmid":"12345678","pmcid":"PMC7654321"}]}`)
	}))
	defer srv.Close()

	conv := New(testConfig(), WithIDConvURL(srv.URL))
	if got := conv.PMIDToPMCID(context.Background(), "PMID:12345678"); got != "PMC7654321" {
		t.Errorf("PMIDToPMCID() = %q, want PMC7654321", got)
	}
}

func TestPMIDToDOI_ArticleIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"uids":["12345678"],"12345678":{
			"articleids":[{"idtype":"pubmed","value":"12345678"},{"idtype":"doi","value":"10.1038/nature"}],
			"elocationid":""}}}`)
	}))
	defer srv.Close()

	conv := New(testConfig(), WithESummaryURL(srv.URL))
	if got := conv.PMIDToDOI(context.Background(), "12345678"); got != "10.1038/nature" {
		t.Errorf("PMIDToDOI() = %q, want 10.1038/nature", got)
	}
}

func TestPMIDToDOI_ELocationFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"uids":["99"],"99":{
			"articleids":[{"idtype":"pubmed","value":"99"}],
			"elocationid":"10.7554/eLife.00001"}}}`)
	}))
	defer srv.Close()

	conv := New(testConfig(), WithESummaryURL(srv.URL))
	if got := conv.PMIDToDOI(context.Background(), "99"); got != "10.7554/eLife.00001" {
		t.Errorf("PMIDToDOI() = %q, want elocationid fallback", got)
	}
}

func TestPMIDToDOI_NonDOIELocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"uids":["99"],"99":{
			"articleids":[],"elocationid":"e00001"}}}`)
	}))
	defer srv.Close()

	conv := New(testConfig(), WithESummaryURL(srv.URL))
	if got := conv.PMIDToDOI(context.Background(), "99"); got != "" {
		t.Errorf("PMIDToDOI() = %q, want empty for non-DOI elocationid", got)
	}
}

func TestPMCIDToPMID(t *testing.T) {
	var gotDB, gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDB = r.URL.Query().Get("db")
		gotID = r.URL.Query().Get("id")
		fmt.Fprint(w, `{"result":{"uids":["7654321"],"7654321":{
			"articleids":[{"idtype":"pmid","value":"12345678"},{"idtype":"doi","value":"10.1/x"}]}}}`)
	}))
	defer srv.Close()

	conv := New(testConfig(), WithESummaryURL(srv.URL))
	if got := conv.PMCIDToPMID(context.Background(), "PMC7654321"); got != "12345678" {
		t.Errorf("PMCIDToPMID() = %q, want 12345678", got)
	}
	if gotDB != "pmc" {
		t.Errorf("db param = %q, want pmc", gotDB)
	}
	if gotID != "7654321" {
		t.Errorf("id param = %q, want PMC prefix stripped", gotID)
	}
}

func TestPMCIDToPMID_EmptyUIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":{"uids":[]}}`)
	}))
	defer srv.Close()

	conv := New(testConfig(), WithESummaryURL(srv.URL))
	if got := conv.PMCIDToPMID(context.Background(), "PMC1"); got != "" {
		t.Errorf("PMCIDToPMID() = %q, want empty", got)
	}
}

func TestStripHelpers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PMID:123", "123"},
		{"123", "123"},
		{"pmid:123", "123"},
	}
	for _, tt := range tests {
		if got := afterColon(tt.in); got != tt.want {
			t.Errorf("afterColon(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if got := stripPrefix("DOI:10.1/x", "doi:"); got != "10.1/x" {
		t.Errorf("stripPrefix() = %q", got)
	}
	if got := stripPrefix("10.1/x", "doi:"); got != "10.1/x" {
		t.Errorf("stripPrefix() = %q", got)
	}
}
