package scan

import (
	"strings"

	"github.com/sentinelml/sentinel/internal/validation"
)

// factorCheck is a single named risk-factor rule. Checks run against the
// raw, unclamped record: explanations reflect the magnitudes the client
// reported, even though model input is capped for stability.
type factorCheck struct {
	feature string
	absent  float64 // value assumed when the feature is missing
	match   func(v float64) bool
	label   string
}

// factorChecks is the fixed, ordered rule list. Order is part of the output
// contract: collected labels preserve this order regardless of input key order.
var factorChecks = []factorCheck{
	{"owner_privilege_ratio", 0, above(0.5), "owner-restricted execution paths"},
	{"time_variance_score", 0, above(0.5), "time-based restrictions"},
	{"gated_branch_ratio", 0, above(0.5), "access-gated branches"},
	{"counterfactual_risk", 0, above(0.5), "counterfactual risk detected"},
	{"gas_anomaly_score", 0, above(0.5), "gas usage anomalies"},
	{"revert_rate", 0, above(0.7), "high revert rate"},
	// Missing success rate assumes successful simulations.
	{"sim_success_rate", 1, below(0.3), "low simulation success"},
}

func above(threshold float64) func(float64) bool {
	return func(v float64) bool { return v > threshold }
}

func below(threshold float64) func(float64) bool {
	return func(v float64) bool { return v < threshold }
}

// Reason generates a human-readable explanation from the raw record and the
// risk level implied by the verdict. Pure function; never returns "".
func Reason(record RawRecord, level RiskLevel) string {
	var factors []string
	for _, check := range factorChecks {
		if check.match(numericOr(record, check.feature, check.absent)) {
			factors = append(factors, check.label)
		}
	}

	switch level {
	case HighRisk:
		if len(factors) > 0 {
			return "High risk detected: " + strings.Join(take(factors, 3), ", ")
		}
		return "High risk - multiple risk indicators present"
	case MediumRisk:
		if len(factors) > 0 {
			return "Moderate risk: " + strings.Join(take(factors, 2), ", ")
		}
		return "Moderate risk - some risk indicators present"
	default:
		return "Low risk - no significant issues detected"
	}
}

// numericOr reads a feature from the raw record, falling back to def when
// the feature is missing or not numeric.
func numericOr(record RawRecord, name string, def float64) float64 {
	raw, ok := record[name]
	if !ok {
		return def
	}
	v, err := validation.CoerceFloat(raw)
	if err != nil {
		return def
	}
	return v
}

func take(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
