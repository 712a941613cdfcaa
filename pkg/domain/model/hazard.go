package model

import "github.com/m-mizutani/goerr/v2"

// HazardRecord is one identified hazard as supplied by the caller. Risk
// ratings are never part of the input; see RatedHazard.
type HazardRecord struct {
	Hazard              string `json:"hazard"`
	PersonsAffected     string `json:"personsAffected"`
	InitialLikelihood   int    `json:"initialLikelihood"`
	InitialConsequence  int    `json:"initialConsequence"`
	ControlMeasures     string `json:"controlMeasures"`
	ResidualLikelihood  int    `json:"residualLikelihood"`
	ResidualConsequence int    `json:"residualConsequence"`
}

// RatedHazard is a HazardRecord with both ratings computed from its own
// factors at bind time.
type RatedHazard struct {
	HazardRecord
	Initial  RiskRating
	Residual RiskRating
}

// Rate computes the initial and residual ratings of h
func (h HazardRecord) Rate() (RatedHazard, error) {
	initial, err := ComputeRisk(h.InitialLikelihood, h.InitialConsequence)
	if err != nil {
		return RatedHazard{}, goerr.Wrap(err, "failed to compute initial risk", goerr.V("hazard", h.Hazard))
	}
	residual, err := ComputeRisk(h.ResidualLikelihood, h.ResidualConsequence)
	if err != nil {
		return RatedHazard{}, goerr.Wrap(err, "failed to compute residual risk", goerr.V("hazard", h.Hazard))
	}

	return RatedHazard{
		HazardRecord: h,
		Initial:      initial,
		Residual:     residual,
	}, nil
}

// RateHazards rates every hazard, preserving order
func RateHazards(hazards []HazardRecord) ([]RatedHazard, error) {
	rated := make([]RatedHazard, 0, len(hazards))
	for i, h := range hazards {
		r, err := h.Rate()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to rate hazard", goerr.V("index", i))
		}
		rated = append(rated, r)
	}
	return rated, nil
}

// HazardSuggestion is an unrated hazard stub proposed for a task. The caller
// assigns ratings afterwards.
type HazardSuggestion struct {
	Hazard          string `json:"hazard"`
	PersonsAffected string `json:"personsAffected"`
	ControlMeasures string `json:"controlMeasures"`
}

// MaxHazardSuggestions bounds the number of suggestions returned per call
const MaxHazardSuggestions = 5
