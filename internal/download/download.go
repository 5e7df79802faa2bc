// Package download retrieves supplementary files and extracts text from
// remote PDFs. This is the explicit follow-up step after a fetch; nothing
// here runs at resolution time.
package download

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/time/rate"

	"github.com/citewell/refcheck/internal/config"
	"github.com/citewell/refcheck/internal/reference"
)

// doiPattern matches DOIs embedded in extracted PDF text.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// Downloader fetches files advertised by repository sources.
type Downloader struct {
	client  *http.Client
	limiter *rate.Limiter
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(d *Downloader) {
		d.client = hc
	}
}

// New builds a downloader from the run configuration.
func New(cfg *config.ValidationConfig, opts ...Option) *Downloader {
	d := &Downloader{
		client:  &http.Client{Timeout: config.RequestTimeout},
		limiter: cfg.NewLimiter(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Downloader) get(ctx context.Context, url string) ([]byte, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// DownloadSupplementary fetches one supplementary file into destDir,
// verifies its md5 checksum when the manifest carries one, and records the
// local path on the file entry.
func (d *Downloader) DownloadSupplementary(ctx context.Context, f *reference.SupplementaryFile, destDir string) error {
	if f.DownloadURL == "" {
		return fmt.Errorf("no download URL for %s", f.Filename)
	}

	data, err := d.get(ctx, f.DownloadURL)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", f.Filename, err)
	}

	if sum, ok := strings.CutPrefix(f.Checksum, "md5:"); ok {
		got := fmt.Sprintf("%x", md5.Sum(data))
		if got != sum {
			return fmt.Errorf("checksum mismatch for %s: got md5:%s, want md5:%s", f.Filename, got, sum)
		}
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("creating download dir: %w", err)
	}
	path := filepath.Join(destDir, filepath.Base(f.Filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", f.Filename, err)
	}

	f.LocalPath = path
	return nil
}

// FetchPDFText downloads a PDF and extracts plain text from its first
// maxPages pages (all pages when maxPages <= 0).
func (d *Downloader) FetchPDFText(ctx context.Context, url string, maxPages int) (string, error) {
	data, err := d.get(ctx, url)
	if err != nil {
		return "", fmt.Errorf("fetching PDF: %w", err)
	}
	return ExtractText(data, maxPages)
}

// ExtractText pulls plain text from an in-memory PDF.
func ExtractText(data []byte, maxPages int) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}

	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	var b strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// ExtractDOI scans extracted PDF text for the first DOI-shaped token.
// Returns "" when none is present.
func ExtractDOI(text string) string {
	doi := doiPattern.FindString(text)
	return strings.TrimRight(doi, ".,;")
}
