// Package model provides the two statistical capabilities the serving layer
// consumes: a calibrated scam classifier and a behavioral drift detector.
//
// Both are opaque, pre-trained artifacts produced by an offline pipeline and
// serialized as JSON. The serving layer only depends on the two interfaces
// below, so tests can substitute deterministic stubs. Loaded models are
// immutable and safe for unsynchronized concurrent reads.
package model

import "fmt"

// Classifier returns the calibrated probability of the positive ("scam")
// class for an ordered feature vector. Implementations must be deterministic
// for a given vector; no randomness at inference time.
type Classifier interface {
	Predict(features []float64) float64
}

// DriftDetector flags whether a behavioral-delta observation is an outlier
// relative to the contract's historical profile. Returns 1 for normal,
// -1 for anomaly, matching the isolation-forest convention.
type DriftDetector interface {
	Predict(features []float64) int
}

// Models bundles the loaded artifacts passed to the serving layer at startup.
type Models struct {
	Classifier Classifier
	Detector   DriftDetector
}

// Load reads both model artifacts from disk. Any failure is fatal at
// startup; the service must not serve traffic with a missing or corrupt
// model.
func Load(classifierPath, detectorPath string) (*Models, error) {
	clf, err := LoadClassifier(classifierPath)
	if err != nil {
		return nil, fmt.Errorf("load classifier: %w", err)
	}

	det, err := LoadDetector(detectorPath)
	if err != nil {
		return nil, fmt.Errorf("load drift detector: %w", err)
	}

	return &Models{Classifier: clf, Detector: det}, nil
}
