package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/citewell/refcheck/internal/reference"
)

const crossrefOK = `{
  "status": "ok",
  "message": {
    "title": ["Reference resolution at scale"],
    "container-title": ["J Test Biol"],
    "author": [{"given": "John", "family": "Smith"}, {"family": "Doe"}],
    "published-print": {"date-parts": [[2024, 1, 15]]},
    "abstract": "<jats:p>Structured abstract text.</jats:p>",
    "subject": ["Biochemistry"]
  }
}`

const dataciteOK = `{
  "data": {
    "attributes": {
      "titles": [{"title": "Validation dataset"}],
      "creators": [{"name": "Mungall, Christopher"}, {"givenName": "Jane", "familyName": "Roe"}],
      "publicationYear": 2023,
      "publisher": "Zenodo",
      "descriptions": [{"descriptionType": "Abstract", "description": "Deposited data."}],
      "subjects": [{"subject": "ontology"}]
    }
  }
}`

const zenodoRecord = `{
  "files": [
    {"key": "data.tsv", "size": 2048, "checksum": "md5:abc123", "links": {"self": "https://zenodo.example/data.tsv"}}
  ]
}`

// doiServer counts calls per backend so fallback ordering is observable.
type doiServer struct {
	crossrefStatus int
	crossrefBody   string

	crossrefCalls int
	dataciteCalls int
	zenodoCalls   int

	srv *httptest.Server
}

func newDOIServer(t *testing.T, crossrefStatus int, crossrefBody string) *doiServer {
	t.Helper()
	ds := &doiServer{crossrefStatus: crossrefStatus, crossrefBody: crossrefBody}
	mux := http.NewServeMux()
	mux.HandleFunc("/crossref/works/", func(w http.ResponseWriter, r *http.Request) {
		ds.crossrefCalls++
		w.WriteHeader(ds.crossrefStatus)
		fmt.Fprint(w, ds.crossrefBody)
	})
	mux.HandleFunc("/datacite/dois/", func(w http.ResponseWriter, r *http.Request) {
		ds.dataciteCalls++
		fmt.Fprint(w, dataciteOK)
	})
	mux.HandleFunc("/zenodo/records/", func(w http.ResponseWriter, r *http.Request) {
		ds.zenodoCalls++
		fmt.Fprint(w, zenodoRecord)
	})
	ds.srv = httptest.NewServer(mux)
	t.Cleanup(ds.srv.Close)
	return ds
}

func (ds *doiServer) source(t *testing.T) *DOISource {
	t.Helper()
	return NewDOISource(testCfg(),
		WithCrossrefURL(ds.srv.URL+"/crossref"),
		WithDataCiteURL(ds.srv.URL+"/datacite"),
		WithZenodoURL(ds.srv.URL+"/zenodo"),
	)
}

func TestDOIFetch_CrossrefSuccessSkipsDataCite(t *testing.T) {
	ds := newDOIServer(t, http.StatusOK, crossrefOK)
	got := ds.source(t).Fetch(context.Background(), "10.1038/test")
	if got == nil {
		t.Fatal("Fetch returned nil")
	}

	if got.Title != "Reference resolution at scale" {
		t.Errorf("Title = %q", got.Title)
	}
	if len(got.Authors) != 2 || got.Authors[0] != "John Smith" || got.Authors[1] != "Doe" {
		t.Errorf("Authors = %v", got.Authors)
	}
	if got.Journal != "J Test Biol" || got.Year != "2024" {
		t.Errorf("Journal/Year = %q/%q", got.Journal, got.Year)
	}
	if got.Content != "Structured abstract text." {
		t.Errorf("Content = %q, want JATS stripped", got.Content)
	}
	if got.ContentType != reference.ContentTypeAbstractOnly {
		t.Errorf("ContentType = %q", got.ContentType)
	}
	if ds.dataciteCalls != 0 {
		t.Errorf("DataCite called %d times, want 0", ds.dataciteCalls)
	}
}

func TestDOIFetch_DataCiteFallbackOnce(t *testing.T) {
	ds := newDOIServer(t, http.StatusNotFound, "")
	got := ds.source(t).Fetch(context.Background(), "10.7777/other")
	if got == nil {
		t.Fatal("Fetch returned nil")
	}

	if ds.crossrefCalls != 1 || ds.dataciteCalls != 1 {
		t.Fatalf("crossref/datacite calls = %d/%d, want 1/1", ds.crossrefCalls, ds.dataciteCalls)
	}
	if got.Title != "Validation dataset" {
		t.Errorf("Title = %q", got.Title)
	}
	if len(got.Authors) != 2 || got.Authors[0] != "Mungall, Christopher" || got.Authors[1] != "Jane Roe" {
		t.Errorf("Authors = %v", got.Authors)
	}
	if got.Journal != "Zenodo" || got.Year != "2023" {
		t.Errorf("Journal/Year = %q/%q", got.Journal, got.Year)
	}
	if got.Content != "Deposited data." {
		t.Errorf("Content = %q", got.Content)
	}
	// Not a Zenodo-prefixed DOI: no file lookup.
	if ds.zenodoCalls != 0 {
		t.Errorf("Zenodo called %d times, want 0", ds.zenodoCalls)
	}
}

func TestDOIFetch_ZenodoFilesLookup(t *testing.T) {
	ds := newDOIServer(t, http.StatusNotFound, "")
	got := ds.source(t).Fetch(context.Background(), "10.5281/zenodo.7961621")
	if got == nil {
		t.Fatal("Fetch returned nil")
	}

	if ds.zenodoCalls != 1 {
		t.Fatalf("Zenodo called %d times, want 1", ds.zenodoCalls)
	}
	if len(got.SupplementaryFiles) != 1 {
		t.Fatalf("SupplementaryFiles = %v", got.SupplementaryFiles)
	}
	f := got.SupplementaryFiles[0]
	if f.Filename != "data.tsv" || f.SizeBytes != 2048 || f.Checksum != "md5:abc123" {
		t.Errorf("file = %+v", f)
	}
	if f.DownloadURL != "https://zenodo.example/data.tsv" {
		t.Errorf("DownloadURL = %q", f.DownloadURL)
	}
}

func TestDOIFetch_CrossrefStatusNotOK(t *testing.T) {
	// HTTP 200 but an API-level error still falls through to DataCite.
	ds := newDOIServer(t, http.StatusOK, `{"status": "error"}`)
	got := ds.source(t).Fetch(context.Background(), "10.7777/other")
	if got == nil {
		t.Fatal("Fetch returned nil")
	}
	if ds.dataciteCalls != 1 {
		t.Errorf("DataCite called %d times, want 1", ds.dataciteCalls)
	}
}

func TestDOIFetch_BothBackendsFail(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	src := NewDOISource(testCfg(),
		WithCrossrefURL(srv.URL+"/crossref"),
		WithDataCiteURL(srv.URL+"/datacite"),
	)
	if got := src.Fetch(context.Background(), "10.9999/missing"); got != nil {
		t.Errorf("Fetch = %+v, want nil", got)
	}
}

func TestCrossrefYearPreference(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"print first", `{"status":"ok","message":{"published-print":{"date-parts":[[2020]]},"created":{"date-parts":[[2019]]}}}`, "2020"},
		{"online fallback", `{"status":"ok","message":{"published-online":{"date-parts":[[2021]]}}}`, "2021"},
		{"issued last", `{"status":"ok","message":{"issued":{"date-parts":[[2018]]}}}`, "2018"},
		{"none", `{"status":"ok","message":{}}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := newDOIServer(t, http.StatusOK, tt.body)
			got := ds.source(t).Fetch(context.Background(), "10.1/x")
			if got == nil {
				t.Fatal("Fetch returned nil")
			}
			if got.Year != tt.want {
				t.Errorf("Year = %q, want %q", got.Year, tt.want)
			}
		})
	}
}
