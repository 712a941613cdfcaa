package model

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/types"
)

// Risk factor bounds. The general risk vocabulary describes levels 0 to 5;
// input forms additionally require at least 1, which is enforced by the
// input schema rather than here.
const (
	MinRiskFactor = 0
	MaxRiskFactor = 5
)

var ErrRiskFactorOutOfRange = goerr.New("risk factor out of range")

// RiskRating is a likelihood/consequence pair with its product and band
type RiskRating struct {
	Likelihood  int
	Consequence int
	Rating      int
	Band        types.RiskBand
}

// ComputeRisk multiplies likelihood by consequence and classifies the
// product. A zero factor is a valid "no risk" state with rating 0 and band
// Low.
func ComputeRisk(likelihood, consequence int) (RiskRating, error) {
	if likelihood < MinRiskFactor || likelihood > MaxRiskFactor {
		return RiskRating{}, goerr.Wrap(ErrRiskFactorOutOfRange, "invalid likelihood",
			goerr.V("likelihood", likelihood))
	}
	if consequence < MinRiskFactor || consequence > MaxRiskFactor {
		return RiskRating{}, goerr.Wrap(ErrRiskFactorOutOfRange, "invalid consequence",
			goerr.V("consequence", consequence))
	}

	rating := likelihood * consequence
	return RiskRating{
		Likelihood:  likelihood,
		Consequence: consequence,
		Rating:      rating,
		Band:        types.BandOf(rating),
	}, nil
}

// Triple renders the L-S-R triple the way it appears in document tables,
// e.g. "4 - 5 - **20**".
func (r RiskRating) Triple() string {
	return fmt.Sprintf("%d - %d - **%d**", r.Likelihood, r.Consequence, r.Rating)
}
