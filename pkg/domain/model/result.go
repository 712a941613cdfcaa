package model

import "github.com/secmon-lab/safetydocs/pkg/domain/types"

// GenerationResult is a validated generated document. Field names the
// output schema field the document was read from, e.g. "hiraDocument".
type GenerationResult struct {
	DocumentType types.DocumentType `json:"documentType"`
	Field        string             `json:"field"`
	Document     string             `json:"document"`
}

// HazardSuggestionResult is the validated output of the hazard suggestion
// flow
type HazardSuggestionResult struct {
	Hazards []HazardSuggestion `json:"hazards"`
}
