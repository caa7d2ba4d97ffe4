// Package drift implements the behavioral drift check: given a contract's
// current on-chain observation, an isolation forest decides whether the
// behavior is consistent with the historical patterns the detector was
// trained on.
package drift

import (
	"context"
	"fmt"

	"github.com/sentinelml/sentinel/internal/logging"
	"github.com/sentinelml/sentinel/internal/metrics"
	"github.com/sentinelml/sentinel/internal/model"
	"github.com/sentinelml/sentinel/internal/traces"
	"github.com/sentinelml/sentinel/internal/validation"
)

// Fields is the required observation field list, in detector input order.
// Field names are fixed by the trained detector and are case-sensitive.
var Fields = []string{
	"Sim_RiskScore",
	"Capability_Hash_Distance",
	"Liquidity_Amount",
	"Unique_Holders_Count",
}

// MissingFieldError reports a required observation field that is absent.
// It is a client error, not a server fault.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// Observation is a raw drift-check payload. All Fields entries are required;
// extra keys are ignored.
type Observation map[string]any

// ContractAddress returns the optional contract_address label, or "".
func (o Observation) ContractAddress() string {
	if v, ok := o["contract_address"].(string); ok {
		return v
	}
	return ""
}

// Result is the drift-check response.
type Result struct {
	IsAnomaly    bool   `json:"is_anomaly"`
	Verdict      string `json:"verdict"`
	AnomalyScore int    `json:"anomaly_score"`
	Message      string `json:"message"`
}

const (
	verdictAnomaly = "WARN - Behavior Changed"
	verdictNormal  = "Normal"
	messageAnomaly = "Contract behavior has changed unexpectedly"
	messageNormal  = "Behavior is consistent with historical patterns"
)

// Service runs drift checks against an injected anomaly detector.
type Service struct {
	detector model.DriftDetector
}

// NewService creates a drift check service.
func NewService(d model.DriftDetector) *Service {
	return &Service{detector: d}
}

// Check evaluates an observation. All four required fields must be present
// and numeric; there is no defaulting here, unlike the scan feature vector.
func (s *Service) Check(ctx context.Context, obs Observation) (*Result, error) {
	ctx, span := traces.StartSpan(ctx, "drift.Check")
	defer span.End()

	vector, err := buildVector(obs)
	if err != nil {
		return nil, err
	}

	prediction := s.detector.Predict(vector)

	result := &Result{
		IsAnomaly:    prediction == -1,
		Verdict:      verdictNormal,
		AnomalyScore: prediction,
		Message:      messageNormal,
	}
	if result.IsAnomaly {
		result.Verdict = verdictAnomaly
		result.Message = messageAnomaly
	}

	label := "normal"
	if result.IsAnomaly {
		label = "anomaly"
	}
	span.SetAttributes(traces.DriftResult(result.IsAnomaly), traces.ContractAddr(obs.ContractAddress()))
	metrics.DriftChecksTotal.WithLabelValues(label).Inc()

	logging.L(ctx).Info("drift check completed",
		"result", label,
		"contract", obs.ContractAddress(),
	)

	return result, nil
}

// buildVector extracts the required fields in detector order.
func buildVector(obs Observation) ([]float64, error) {
	vector := make([]float64, len(Fields))
	for i, name := range Fields {
		raw, ok := obs[name]
		if !ok {
			return nil, &MissingFieldError{Field: name}
		}
		v, err := validation.CoerceFloat(raw)
		if err != nil {
			return nil, &MissingFieldError{Field: name}
		}
		vector[i] = v
	}
	return vector, nil
}
