package types

import "fmt"

// DocumentType identifies one generation flow
type DocumentType string

const (
	DocumentTypeHIRA              DocumentType = "hira"
	DocumentTypeSHEPlan           DocumentType = "she_plan"
	DocumentTypeMethodStatement   DocumentType = "method_statement"
	DocumentTypeSafeWorkProcedure DocumentType = "safe_work_procedure"
	DocumentTypeRiskAssessment    DocumentType = "risk_assessment"
	DocumentTypeHazardSuggestion  DocumentType = "hazard_suggestion"
	DocumentTypeArticleScrape     DocumentType = "article_scrape"
)

// AllDocumentTypes returns all document types in display order
func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeHIRA,
		DocumentTypeSHEPlan,
		DocumentTypeMethodStatement,
		DocumentTypeSafeWorkProcedure,
		DocumentTypeRiskAssessment,
		DocumentTypeHazardSuggestion,
		DocumentTypeArticleScrape,
	}
}

// IsValid checks if the document type is known
func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentTypeHIRA,
		DocumentTypeSHEPlan,
		DocumentTypeMethodStatement,
		DocumentTypeSafeWorkProcedure,
		DocumentTypeRiskAssessment,
		DocumentTypeHazardSuggestion,
		DocumentTypeArticleScrape:
		return true
	default:
		return false
	}
}

// ProducesDocument reports whether the flow yields a Markdown document that
// can be stored in the document library. Hazard suggestions are intermediate
// form data and are never stored.
func (d DocumentType) ProducesDocument() bool {
	return d.IsValid() && d != DocumentTypeHazardSuggestion
}

// Label returns a human readable name
func (d DocumentType) Label() string {
	switch d {
	case DocumentTypeHIRA:
		return "Hazard Identification and Risk Assessment"
	case DocumentTypeSHEPlan:
		return "SHE Plan"
	case DocumentTypeMethodStatement:
		return "Method Statement"
	case DocumentTypeSafeWorkProcedure:
		return "Safe Work Procedure"
	case DocumentTypeRiskAssessment:
		return "Risk Assessment"
	case DocumentTypeHazardSuggestion:
		return "Hazard Suggestion"
	case DocumentTypeArticleScrape:
		return "Article Summary"
	default:
		return string(d)
	}
}

// String returns the string representation of the document type
func (d DocumentType) String() string {
	return string(d)
}

// ParseDocumentType parses a string into a DocumentType. Hyphenated forms
// such as "she-plan" are accepted as used in URLs.
func ParseDocumentType(s string) (DocumentType, error) {
	normalized := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '-' {
			normalized[i] = '_'
		} else {
			normalized[i] = s[i]
		}
	}

	d := DocumentType(normalized)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid document type: %s", s)
	}
	return d, nil
}
