// Package xmltext extracts plain text from provider XML payloads.
//
// BioC, JATS and eutils responses all wrap article text in markup (italics,
// cross-references, section tags) that has to be flattened before the text
// can be matched against quotations.
package xmltext

import (
	"encoding/xml"
	"io"
	"strings"
)

// Collect returns the flattened text of every element with the given local
// name, in document order. Nested markup inside a matched element is
// discarded; its character data is kept.
func Collect(r io.Reader, element string) []string {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	var out []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == element {
			text, err := flatten(dec)
			if err != nil {
				return out
			}
			if text != "" {
				out = append(out, text)
			}
		}
	}
}

// CollectWithin returns the flattened text of every child element found
// anywhere under the first parent element, e.g. all <p> under <body>.
func CollectWithin(r io.Reader, parent, child string) []string {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	// Skip ahead to the parent element.
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == parent {
			break
		}
	}

	var out []string
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == child {
				text, err := flatten(dec)
				if err != nil {
					return out
				}
				if text != "" {
					out = append(out, text)
				}
			} else {
				depth++
			}
		case xml.EndElement:
			depth--
		}
	}
	return out
}

// flatten consumes tokens until the matching end element, concatenating all
// character data at any depth.
func flatten(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(t)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
