package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/citewell/refcheck/internal/config"
	"github.com/citewell/refcheck/internal/reference"
)

// DefaultClinicalTrialsURL is the ClinicalTrials.gov API v2 base.
const DefaultClinicalTrialsURL = "https://clinicaltrials.gov/api/v2"

var bareNCTPattern = regexp.MustCompile(`(?i)^NCT\d{8}$`)

// ClinicalTrialsSource resolves NCT identifiers against ClinicalTrials.gov.
type ClinicalTrialsSource struct {
	apiClient
	baseURL string
}

// TrialsOption configures a ClinicalTrialsSource.
type TrialsOption func(*ClinicalTrialsSource)

// WithTrialsHTTPClient sets a custom HTTP client.
func WithTrialsHTTPClient(hc *http.Client) TrialsOption {
	return func(s *ClinicalTrialsSource) {
		s.client = hc
	}
}

// WithTrialsURL points the source at a custom endpoint.
func WithTrialsURL(u string) TrialsOption {
	return func(s *ClinicalTrialsSource) {
		s.baseURL = u
	}
}

// NewClinicalTrialsSource builds an NCT source from the run configuration.
func NewClinicalTrialsSource(cfg *config.ValidationConfig, opts ...TrialsOption) *ClinicalTrialsSource {
	s := &ClinicalTrialsSource{
		apiClient: newAPIClient(cfg),
		baseURL:   DefaultClinicalTrialsURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeNCT returns the canonical upper-case form of a trial id,
// prepending "NCT" when the input is the bare 8-digit number. All caching
// and API calls use the canonical form.
func NormalizeNCT(id string) string {
	id = strings.ToUpper(strings.TrimSpace(id))
	if !strings.HasPrefix(id, "NCT") {
		id = "NCT" + id
	}
	return id
}

func (s *ClinicalTrialsSource) Prefix() string { return "NCT" }

// CanHandle accepts "NCT:..." and bare trial ids like "NCT01234567".
func (s *ClinicalTrialsSource) CanHandle(referenceID string) bool {
	referenceID = strings.TrimSpace(referenceID)
	if HasPrefix(referenceID, "NCT") {
		return true
	}
	return bareNCTPattern.MatchString(referenceID)
}

// Fetch retrieves one study record. Title prefers the official title, the
// summary prefers the brief summary; trial status and lead sponsor land in
// Metadata.
func (s *ClinicalTrialsSource) Fetch(ctx context.Context, identifier string) *reference.Content {
	nctID := NormalizeNCT(identifier)

	u := fmt.Sprintf("%s/studies/%s", s.baseURL, nctID)

	body, status, err := s.get(ctx, u, nil)
	if err != nil {
		log.Printf("warning: failed to fetch clinical trial %s: %v", nctID, err)
		return nil
	}
	if status != http.StatusOK {
		log.Printf("warning: ClinicalTrials.gov returned %d for %s", status, nctID)
		return nil
	}

	var study struct {
		ProtocolSection struct {
			Identification struct {
				OfficialTitle string `json:"officialTitle"`
				BriefTitle    string `json:"briefTitle"`
			} `json:"identificationModule"`
			Description struct {
				BriefSummary        string `json:"briefSummary"`
				DetailedDescription string `json:"detailedDescription"`
			} `json:"descriptionModule"`
			Status struct {
				OverallStatus string `json:"overallStatus"`
			} `json:"statusModule"`
			Sponsor struct {
				LeadSponsor struct {
					Name string `json:"name"`
				} `json:"leadSponsor"`
			} `json:"sponsorCollaboratorsModule"`
		} `json:"protocolSection"`
	}
	if err := json.Unmarshal(body, &study); err != nil {
		log.Printf("warning: unparseable study record for %s: %v", nctID, err)
		return nil
	}
	proto := &study.ProtocolSection

	title := proto.Identification.OfficialTitle
	if title == "" {
		title = proto.Identification.BriefTitle
	}
	content := proto.Description.BriefSummary
	if content == "" {
		content = proto.Description.DetailedDescription
	}

	metadata := map[string]string{}
	if proto.Status.OverallStatus != "" {
		metadata["status"] = proto.Status.OverallStatus
	}
	if proto.Sponsor.LeadSponsor.Name != "" {
		metadata["sponsor"] = proto.Sponsor.LeadSponsor.Name
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	contentType := reference.ContentTypeSummary
	if content == "" {
		contentType = reference.ContentTypeUnavailable
	}

	return &reference.Content{
		ReferenceID: "NCT:" + nctID,
		Title:       title,
		Content:     content,
		ContentType: contentType,
		Metadata:    metadata,
	}
}
