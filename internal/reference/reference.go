// Package reference defines the core domain types for resolved references.
package reference

// Content type tags for ReferenceContent.ContentType.
const (
	ContentTypeFullTextBioC      = "full_text_bioc"
	ContentTypeFullTextEuropePMC = "full_text_europepmc"
	ContentTypeFullTextXML       = "full_text_xml"
	ContentTypeFullTextHTML      = "full_text_html"
	ContentTypeFullTextPDF       = "full_text_pdf"
	ContentTypeAbstractOnly      = "abstract_only"
	ContentTypeSummary           = "summary"
	ContentTypeLocalFile         = "local_file"
	ContentTypeURL               = "url"
	ContentTypeOALocation        = "oa_location"
	ContentTypeUnavailable       = "unavailable"
)

// Content represents the normalized result of resolving any identifier.
//
// ReferenceID is the canonical "<PREFIX>:<value>" form and is never changed
// after construction. A Content with ContentType "unavailable" carries no
// content text, and vice versa.
type Content struct {
	// Identity
	ReferenceID string `json:"reference_id"`

	// Metadata
	Title   string   `json:"title,omitempty"`
	Authors []string `json:"authors,omitempty"`
	Journal string   `json:"journal,omitempty"` // publisher for non-journal sources
	Year    string   `json:"year,omitempty"`    // 4-digit string
	DOI     string   `json:"doi,omitempty"`

	// Retrieved text: abstract, fulltext, or summary. When both an abstract
	// and a fulltext exist they are joined with a blank line.
	Content     string `json:"content,omitempty"`
	ContentType string `json:"content_type"`

	// MeSH terms or subject tags.
	Keywords []string `json:"keywords,omitempty"`

	// Files advertised by repository sources (Zenodo etc.).
	SupplementaryFiles []SupplementaryFile `json:"supplementary_files,omitempty"`

	// Source-specific extras (OA location, trial status, ...).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HasContent reports whether any text was retrieved.
func (c *Content) HasContent() bool {
	return c.Content != ""
}

// SupplementaryFile describes a file attached to a reference.
// LocalPath is populated only by an explicit download step, never at fetch
// time.
type SupplementaryFile struct {
	Filename    string `json:"filename"`
	DownloadURL string `json:"download_url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes,omitempty"`
	Checksum    string `json:"checksum,omitempty"` // typically "md5:<hex>"
	LocalPath   string `json:"local_path,omitempty"`
}
