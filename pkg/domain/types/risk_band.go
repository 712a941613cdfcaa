package types

// RiskBand is the Low/Medium/High classification of a risk rating
type RiskBand string

const (
	RiskBandLow    RiskBand = "Low"
	RiskBandMedium RiskBand = "Medium"
	RiskBandHigh   RiskBand = "High"
)

// Band thresholds on the 0-25 rating scale
const (
	mediumRiskThreshold = 6
	highRiskThreshold   = 16
)

// BandOf classifies a numeric rating. Ratings of 16 and above are High,
// 6 to 15 Medium, everything below Low.
func BandOf(rating int) RiskBand {
	switch {
	case rating >= highRiskThreshold:
		return RiskBandHigh
	case rating >= mediumRiskThreshold:
		return RiskBandMedium
	default:
		return RiskBandLow
	}
}

// IsValid checks if the band is one of the three known bands
func (b RiskBand) IsValid() bool {
	switch b {
	case RiskBandLow, RiskBandMedium, RiskBandHigh:
		return true
	default:
		return false
	}
}

// String returns the string representation of the band
func (b RiskBand) String() string {
	return string(b)
}
