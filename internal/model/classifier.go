package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// LinearClassifier is a calibrated linear model. The raw margin w·x + b is
// mapped to a probability through Platt sigmoid scaling:
//
//	p = 1 / (1 + exp(A·z + B))
//
// The A and B parameters are fitted offline against held-out data so the
// output behaves as a calibrated probability rather than a raw score.
// With A = -1, B = 0 this reduces to the standard logistic sigmoid.
type LinearClassifier struct {
	weights []float64
	bias    float64
	a       float64
	b       float64
}

type classifierArtifact struct {
	ModelVersion string    `json:"model_version"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	Calibration  struct {
		Method string  `json:"method"`
		A      float64 `json:"a"`
		B      float64 `json:"b"`
	} `json:"calibration"`
}

// LoadClassifier reads a calibrated classifier artifact from disk.
func LoadClassifier(path string) (*LinearClassifier, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config, not user input
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var art classifierArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}

	if len(art.Weights) == 0 {
		return nil, fmt.Errorf("artifact has no weights")
	}
	if art.Calibration.Method == "" {
		return nil, fmt.Errorf("artifact has no calibration block")
	}

	return &LinearClassifier{
		weights: art.Weights,
		bias:    art.Bias,
		a:       art.Calibration.A,
		b:       art.Calibration.B,
	}, nil
}

// NumFeatures returns the vector length the classifier expects.
func (c *LinearClassifier) NumFeatures() int {
	return len(c.weights)
}

// Predict returns the calibrated probability of the positive class.
// Vectors shorter than the weight list are treated as zero-padded;
// extra positions are ignored.
func (c *LinearClassifier) Predict(features []float64) float64 {
	z := c.bias
	n := len(c.weights)
	if len(features) < n {
		n = len(features)
	}
	for i := 0; i < n; i++ {
		z += c.weights[i] * features[i]
	}

	p := 1.0 / (1.0 + math.Exp(c.a*z+c.b))

	// Guard against float drift at the extremes
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
