package sources

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/citewell/refcheck/internal/reference"
)

// FileSource resolves "file:" references against the local filesystem.
// The first markdown heading, if any, becomes the title.
type FileSource struct{}

// NewFileSource builds a local-file source. It needs no configuration;
// there is no network call to throttle.
func NewFileSource() *FileSource {
	return &FileSource{}
}

func (s *FileSource) Prefix() string { return "FILE" }

func (s *FileSource) CanHandle(referenceID string) bool {
	return HasPrefix(strings.TrimSpace(referenceID), "FILE")
}

// Fetch reads the file at the given path.
func (s *FileSource) Fetch(ctx context.Context, identifier string) *reference.Content {
	path := strings.TrimSpace(identifier)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("warning: failed to read local reference %s: %v", path, err)
		return nil
	}
	text := string(data)

	contentType := reference.ContentTypeLocalFile
	if strings.TrimSpace(text) == "" {
		text = ""
		contentType = reference.ContentTypeUnavailable
	}

	return &reference.Content{
		ReferenceID: "FILE:" + path,
		Title:       firstHeading(text),
		Content:     text,
		ContentType: contentType,
	}
}

// firstHeading returns the text of the first "#" heading, or "".
func firstHeading(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	return ""
}
