package scan

import "math"

// Decision is the deterministic post-processing of a calibrated probability.
type Decision struct {
	Uncertainty float64
	CILow       float64
	CIHigh      float64
	Verdict     Verdict
	RiskBand    RiskBand
	RiskLevel   RiskLevel
}

// Derive computes the full decision for a calibrated probability.
// Pure function: same probability, same decision.
func Derive(p float64) Decision {
	// Uncertainty is distance from the decision boundary: 1.0 at p=0.5,
	// 0.0 at the extremes.
	uncertainty := 1.0 - math.Abs(p-0.5)*2

	// Confidence interval widens with uncertainty (width in [0.1, 0.25]),
	// truncated at the probability range.
	ciWidth := 0.1 + uncertainty*0.15
	ciLow := math.Max(0, p-ciWidth/2)
	ciHigh := math.Min(1, p+ciWidth/2)

	verdict, level := verdictFor(p)

	return Decision{
		Uncertainty: uncertainty,
		CILow:       ciLow,
		CIHigh:      ciHigh,
		Verdict:     verdict,
		RiskBand:    bandFor(p),
		RiskLevel:   level,
	}
}

// verdictFor applies the actionable thresholds. Boundary values
// (exactly 0.7, exactly 0.4) fall to the lower-severity branch.
func verdictFor(p float64) (Verdict, RiskLevel) {
	switch {
	case p > BlockThreshold:
		return VerdictBlock, HighRisk
	case p > WarnThreshold:
		return VerdictWarn, MediumRisk
	default:
		return VerdictSafe, LowRisk
	}
}

// bandFor applies the diagnostic band thresholds. These are independent of
// the verdict thresholds; do not unify the two policies.
func bandFor(p float64) RiskBand {
	switch {
	case p > HighBandThreshold:
		return BandHigh
	case p > MediumBandThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// round4 rounds to 4 decimal places (probability precision on the wire).
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// round3 rounds to 3 decimal places (uncertainty and CI precision).
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
