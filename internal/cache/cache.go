// Package cache persists resolved references as one markdown file per
// identifier.
//
// The write format is YAML frontmatter followed by a readable markdown
// body; the content proper sits after a "## Content" marker so readers can
// recover it exactly. Files written before the markdown format existed use
// a plain "Key: value" header instead and may carry a .txt extension; the
// loader still reads those, but nothing ever writes them again.
package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/citewell/refcheck/internal/reference"
)

// ErrNotCached reports a cache miss.
var ErrNotCached = errors.New("reference not cached")

// contentMarker separates the human-readable header from the content body.
const contentMarker = "## Content"

// Cache is a flat directory of per-reference markdown files. The directory
// listing itself is the catalog; there is no index.
type Cache struct {
	dir string
}

// New returns a cache rooted at dir.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Path derives the cache file path for a reference id: ":" and "/" become
// "_", suffixed ".md".
func (c *Cache) Path(referenceID string) string {
	safe := strings.NewReplacer(":", "_", "/", "_").Replace(referenceID)
	return filepath.Join(c.dir, safe+".md")
}

// legacyPath is the pre-markdown location of the same entry.
func (c *Cache) legacyPath(referenceID string) string {
	p := c.Path(referenceID)
	return strings.TrimSuffix(p, ".md") + ".txt"
}

// Save writes the reference to disk, replacing any existing entry.
func (c *Cache) Save(ref *reference.Content) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "reference_id: %s\n", ref.ReferenceID)
	if ref.Title != "" {
		fmt.Fprintf(&b, "title: %s\n", QuoteYAMLValue(ref.Title))
	}
	if len(ref.Authors) > 0 {
		b.WriteString("authors:\n")
		for _, a := range ref.Authors {
			fmt.Fprintf(&b, "- %s\n", QuoteYAMLValue(a))
		}
	}
	if ref.Journal != "" {
		fmt.Fprintf(&b, "journal: %s\n", QuoteYAMLValue(ref.Journal))
	}
	if ref.Year != "" {
		fmt.Fprintf(&b, "year: '%s'\n", ref.Year)
	}
	if ref.DOI != "" {
		fmt.Fprintf(&b, "doi: %s\n", ref.DOI)
	}
	fmt.Fprintf(&b, "content_type: %s\n", ref.ContentType)
	if len(ref.Keywords) > 0 {
		b.WriteString("keywords:\n")
		for _, k := range ref.Keywords {
			fmt.Fprintf(&b, "- %s\n", QuoteYAMLValue(k))
		}
	}
	if len(ref.SupplementaryFiles) > 0 {
		b.WriteString("supplementary_files:\n")
		for _, f := range ref.SupplementaryFiles {
			fmt.Fprintf(&b, "- filename: %s\n", QuoteYAMLValue(f.Filename))
			if f.DownloadURL != "" {
				fmt.Fprintf(&b, "  download_url: %s\n", QuoteYAMLValue(f.DownloadURL))
			}
			if f.ContentType != "" {
				fmt.Fprintf(&b, "  content_type: %s\n", QuoteYAMLValue(f.ContentType))
			}
			if f.SizeBytes > 0 {
				fmt.Fprintf(&b, "  size_bytes: %s\n", strconv.FormatInt(f.SizeBytes, 10))
			}
			if f.Checksum != "" {
				fmt.Fprintf(&b, "  checksum: %s\n", QuoteYAMLValue(f.Checksum))
			}
			if f.LocalPath != "" {
				fmt.Fprintf(&b, "  local_path: %s\n", QuoteYAMLValue(f.LocalPath))
			}
		}
	}
	b.WriteString("---\n\n")

	if ref.Title != "" {
		fmt.Fprintf(&b, "# %s\n", ref.Title)
		if len(ref.Authors) > 0 {
			fmt.Fprintf(&b, "**Authors:** %s\n", strings.Join(ref.Authors, ", "))
		}
		if ref.Journal != "" {
			journal := ref.Journal
			if ref.Year != "" {
				journal += fmt.Sprintf(" (%s)", ref.Year)
			}
			fmt.Fprintf(&b, "**Journal:** %s\n", journal)
		}
		if ref.DOI != "" {
			fmt.Fprintf(&b, "**DOI:** [%s](https://doi.org/%s)\n", ref.DOI, ref.DOI)
		}
		b.WriteString("\n" + contentMarker + "\n\n")
	}

	if ref.Content != "" {
		b.WriteString(ref.Content)
		b.WriteString("\n")
	}

	path := c.Path(ref.ReferenceID)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// QuoteYAMLValue wraps a scalar in double quotes when YAML would otherwise
// misparse it: special characters, leading or trailing whitespace, or a
// value that reads as a boolean or null.
func QuoteYAMLValue(value string) string {
	needsQuote := strings.ContainsAny(value, "[]{}:,#&*?|<>=!%@`\"'\\")
	if value != strings.TrimSpace(value) {
		needsQuote = true
	}
	switch strings.ToLower(value) {
	case "true", "false", "yes", "no", "on", "off", "null", "~":
		needsQuote = true
	}
	if !needsQuote {
		return value
	}
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}

// Load reads a cached reference. Returns ErrNotCached when neither the
// current nor the legacy file exists.
func (c *Cache) Load(referenceID string) (*reference.Content, error) {
	path := c.Path(referenceID)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		data, err = os.ReadFile(c.legacyPath(referenceID))
		if os.IsNotExist(err) {
			return nil, ErrNotCached
		}
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	text := string(data)
	if strings.HasPrefix(text, "---") {
		return parseMarkdown(text, referenceID)
	}
	return parseLegacy(text, referenceID), nil
}

// frontmatter mirrors the YAML header of a current-format entry.
type frontmatter struct {
	ReferenceID        string   `yaml:"reference_id"`
	Title              string   `yaml:"title"`
	Authors            []string `yaml:"authors"`
	Journal            string   `yaml:"journal"`
	Year               string   `yaml:"year"`
	DOI                string   `yaml:"doi"`
	ContentType        string   `yaml:"content_type"`
	Keywords           []string `yaml:"keywords"`
	SupplementaryFiles []struct {
		Filename    string `yaml:"filename"`
		DownloadURL string `yaml:"download_url"`
		ContentType string `yaml:"content_type"`
		SizeBytes   int64  `yaml:"size_bytes"`
		Checksum    string `yaml:"checksum"`
		LocalPath   string `yaml:"local_path"`
	} `yaml:"supplementary_files"`
}

func parseMarkdown(text, referenceID string) (*reference.Content, error) {
	parts := strings.SplitN(text, "---", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("malformed cache entry for %s", referenceID)
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(parts[1]), &fm); err != nil {
		return nil, fmt.Errorf("parsing frontmatter for %s: %w", referenceID, err)
	}

	ref := &reference.Content{
		ReferenceID: fm.ReferenceID,
		Title:       fm.Title,
		Authors:     fm.Authors,
		Journal:     fm.Journal,
		Year:        fm.Year,
		DOI:         fm.DOI,
		Content:     extractContent(strings.TrimSpace(parts[2])),
		ContentType: fm.ContentType,
		Keywords:    fm.Keywords,
	}
	if ref.ReferenceID == "" {
		ref.ReferenceID = referenceID
	}
	for _, f := range fm.SupplementaryFiles {
		ref.SupplementaryFiles = append(ref.SupplementaryFiles, reference.SupplementaryFile{
			Filename:    f.Filename,
			DownloadURL: f.DownloadURL,
			ContentType: f.ContentType,
			SizeBytes:   f.SizeBytes,
			Checksum:    f.Checksum,
			LocalPath:   f.LocalPath,
		})
	}
	return ref, nil
}

// extractContent returns everything after the content marker, skipping
// leading blank lines. Bodies without a marker (title-less entries) are the
// content in full.
func extractContent(body string) string {
	lines := strings.Split(body, "\n")
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), contentMarker) {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return body
	}
	content := lines[start:]
	for len(content) > 0 && strings.TrimSpace(content[0]) == "" {
		content = content[1:]
	}
	return strings.Join(content, "\n")
}

// parseLegacy reads the frozen pre-markdown format: "Key: value" header
// lines up to the first blank line, then the raw content.
func parseLegacy(text, referenceID string) *reference.Content {
	lines := strings.Split(text, "\n")

	header := map[string]string{}
	contentStart := len(lines)
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			contentStart = i + 1
			break
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			header[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}

	content := ""
	if contentStart < len(lines) {
		content = strings.TrimSpace(strings.Join(lines[contentStart:], "\n"))
	}

	var authors []string
	if header["Authors"] != "" {
		authors = strings.Split(header["Authors"], ", ")
	}

	contentType := header["ContentType"]
	if contentType == "" {
		contentType = "unknown"
	}

	ref := &reference.Content{
		ReferenceID: header["ID"],
		Title:       header["Title"],
		Authors:     authors,
		Journal:     header["Journal"],
		Year:        header["Year"],
		DOI:         header["DOI"],
		Content:     content,
		ContentType: contentType,
	}
	if ref.ReferenceID == "" {
		ref.ReferenceID = referenceID
	}
	return ref
}
