// Package scan implements the deep-scan decision layer: it turns a raw
// feature record into a calibrated scam probability with uncertainty,
// confidence interval, verdict, risk band, and a human-readable reason.
//
// The statistical model is an injected capability; everything in this
// package is deterministic post-processing. Two independent threshold
// policies apply downstream of the probability: the actionable verdict
// (SAFE/WARN/BLOCK) and the coarser diagnostic risk band (LOW/MEDIUM/HIGH).
// They are deliberately decoupled and can disagree in edge ranges.
package scan

import (
	"context"
	"time"
)

// Verdict is the actionable three-level decision.
type Verdict string

const (
	VerdictSafe  Verdict = "SAFE"
	VerdictWarn  Verdict = "WARN"
	VerdictBlock Verdict = "BLOCK"
)

// RiskBand is the coarser diagnostic classification, decoupled from Verdict.
type RiskBand string

const (
	BandLow    RiskBand = "LOW"
	BandMedium RiskBand = "MEDIUM"
	BandHigh   RiskBand = "HIGH"
)

// RiskLevel selects the reason-generator template. It follows the verdict
// branch, not the risk band.
type RiskLevel string

const (
	HighRisk   RiskLevel = "high_risk"
	MediumRisk RiskLevel = "medium_risk"
	LowRisk    RiskLevel = "low_risk"
)

// Verdict thresholds. Boundary values fall to the lower-severity branch.
const (
	BlockThreshold = 0.7
	WarnThreshold  = 0.4
)

// Risk band thresholds, independent of the verdict thresholds.
const (
	HighBandThreshold   = 0.6
	MediumBandThreshold = 0.3
)

// RawRecord is a client-supplied mapping from feature name to a
// numeric-coercible value. Keys may be any subset or superset of the
// schema's declared names.
type RawRecord map[string]any

// ContractAddress returns the optional contract_address label carried
// alongside the features, or "" if absent.
func (r RawRecord) ContractAddress() string {
	if v, ok := r["contract_address"].(string); ok {
		return v
	}
	return ""
}

// Result is the deep-scan response. Constructed fresh per request,
// never mutated.
type Result struct {
	Verdict            Verdict    `json:"verdict"`
	ScamProbability    float64    `json:"scam_probability"`
	Calibrated         bool       `json:"calibrated"`
	ConfidenceInterval [2]float64 `json:"confidence_interval"`
	Uncertainty        float64    `json:"uncertainty"`
	RiskBand           RiskBand   `json:"risk_band"`
	Reason             string     `json:"reason"`
	ModelVersion       string     `json:"model_version"`
}

// Assessment is the audit-trail record of a completed scan.
type Assessment struct {
	ID              string   `json:"id"`
	ContractAddress string   `json:"contractAddress,omitempty"`
	ScamProbability float64  `json:"scamProbability"`
	Verdict         Verdict  `json:"verdict"`
	RiskBand        RiskBand `json:"riskBand"`
	Reason          string   `json:"reason"`
	ModelVersion    string   `json:"modelVersion"`
	EvaluatedAt     time.Time `json:"evaluatedAt"`
}

// Store persists scan assessments for audit trail.
type Store interface {
	Record(ctx context.Context, a *Assessment) error
	ListRecent(ctx context.Context, limit int) ([]*Assessment, error)
}
