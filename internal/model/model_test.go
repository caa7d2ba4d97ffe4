package model

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeArtifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return path
}

const testClassifier = `{
	"model_version": "test-v1",
	"weights": [2.0, -1.0],
	"bias": -0.5,
	"calibration": {"method": "sigmoid", "a": -1.0, "b": 0.0}
}`

// Three isolation trees, one per drift signal. Each isolates its anomalous
// branch at depth 1 and sends normal traffic down a depth-3 chain to a large
// leaf, so any single out-of-profile signal pushes the score past threshold.
const testDetector = `{
	"model_version": "test-v1",
	"sample_size": 256,
	"threshold": 0.5,
	"trees": [
		{"feature": 2, "threshold": 50000,
		 "left": {"size": 1},
		 "right": {"feature": 3, "threshold": -1, "left": {"size": 1},
		           "right": {"feature": 3, "threshold": -2, "left": {"size": 1}, "right": {"size": 200}}}},
		{"feature": 1, "threshold": 0.5,
		 "right": {"size": 1},
		 "left": {"feature": 3, "threshold": -1, "left": {"size": 1},
		          "right": {"feature": 3, "threshold": -2, "left": {"size": 1}, "right": {"size": 200}}}},
		{"feature": 0, "threshold": 0.6,
		 "right": {"size": 1},
		 "left": {"feature": 3, "threshold": -1, "left": {"size": 1},
		          "right": {"feature": 3, "threshold": -2, "left": {"size": 1}, "right": {"size": 200}}}}
	]
}`

func TestLoadClassifier(t *testing.T) {
	path := writeArtifact(t, "clf.json", testClassifier)

	clf, err := LoadClassifier(path)
	if err != nil {
		t.Fatalf("LoadClassifier failed: %v", err)
	}
	if clf.NumFeatures() != 2 {
		t.Errorf("expected 2 features, got %d", clf.NumFeatures())
	}
}

func TestLoadClassifier_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"weights": [`},
		{"no weights", `{"model_version": "v", "calibration": {"method": "sigmoid"}}`},
		{"no calibration", `{"model_version": "v", "weights": [1.0]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeArtifact(t, "clf.json", tt.content)
			if _, err := LoadClassifier(path); err == nil {
				t.Error("expected load error")
			}
		})
	}
}

func TestClassifierPredict(t *testing.T) {
	path := writeArtifact(t, "clf.json", testClassifier)
	clf, err := LoadClassifier(path)
	if err != nil {
		t.Fatalf("LoadClassifier failed: %v", err)
	}

	// z = 2*0.5 - 1*0.0 - 0.5 = 0.5; p = sigmoid(0.5)
	p := clf.Predict([]float64{0.5, 0.0})
	want := 1.0 / (1.0 + math.Exp(-0.5))
	if math.Abs(p-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, p)
	}

	// Deterministic: same vector, same probability
	if p2 := clf.Predict([]float64{0.5, 0.0}); p2 != p {
		t.Errorf("prediction not deterministic: %f vs %f", p, p2)
	}

	// Output always in [0, 1]
	for _, v := range [][]float64{{1, 1}, {0, 0}, {1, 0}, {0, 1}} {
		if got := clf.Predict(v); got < 0 || got > 1 {
			t.Errorf("probability out of range for %v: %f", v, got)
		}
	}
}

func TestDetectorPredict(t *testing.T) {
	path := writeArtifact(t, "det.json", testDetector)
	det, err := LoadDetector(path)
	if err != nil {
		t.Fatalf("LoadDetector failed: %v", err)
	}

	// Stable contract: low risk, no code change, healthy liquidity
	normal := []float64{0.1, 0, 200000, 500}
	if got := det.Predict(normal); got != 1 {
		t.Errorf("stable contract flagged as anomaly (score %f)", det.Score(normal))
	}

	// Rug pull: liquidity drained
	rugPull := []float64{0.1, 0, 100, 500}
	if got := det.Predict(rugPull); got != -1 {
		t.Errorf("drained liquidity not flagged (score %f)", det.Score(rugPull))
	}

	// Code change: capability hash distance flipped
	codeChange := []float64{0.1, 1, 200000, 500}
	if got := det.Predict(codeChange); got != -1 {
		t.Errorf("code change not flagged (score %f)", det.Score(codeChange))
	}

	// Risk spike
	riskSpike := []float64{0.9, 0, 200000, 500}
	if got := det.Predict(riskSpike); got != -1 {
		t.Errorf("risk spike not flagged (score %f)", det.Score(riskSpike))
	}
}

func TestDetectorScoreRange(t *testing.T) {
	path := writeArtifact(t, "det.json", testDetector)
	det, err := LoadDetector(path)
	if err != nil {
		t.Fatalf("LoadDetector failed: %v", err)
	}

	for _, v := range [][]float64{{0, 0, 0, 0}, {1, 1, 1, 1}, {0.1, 0, 300000, 800}} {
		score := det.Score(v)
		if score <= 0 || score > 1 {
			t.Errorf("score out of range for %v: %f", v, score)
		}
	}
}

func TestLoadDetector_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"malformed json", `{"trees": [`},
		{"no trees", `{"sample_size": 256, "threshold": 0.5, "trees": []}`},
		{"bad sample size", `{"sample_size": 1, "threshold": 0.5, "trees": [{"size": 10}]}`},
		{"bad threshold", `{"sample_size": 256, "threshold": 1.5, "trees": [{"size": 10}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeArtifact(t, "det.json", tt.content)
			if _, err := LoadDetector(path); err == nil {
				t.Error("expected load error")
			}
		})
	}
}

func TestLoad_ShippedArtifacts(t *testing.T) {
	m, err := Load(
		filepath.Join("..", "..", "models", "calibrated_classifier.json"),
		filepath.Join("..", "..", "models", "drift_detector.json"),
	)
	if err != nil {
		t.Fatalf("Load failed on shipped artifacts: %v", err)
	}

	// Clean 15-feature record should score low
	benign := make([]float64, 15)
	benign[0] = 1.0 // sim_success_rate
	if p := m.Classifier.Predict(benign); p > 0.4 {
		t.Errorf("benign vector scored %f, expected <= 0.4", p)
	}

	// Everything maxed out should score high
	hostile := make([]float64, 15)
	for i := range hostile {
		hostile[i] = 1.0
	}
	hostile[0] = 0.0 // simulations all failing
	if p := m.Classifier.Predict(hostile); p < 0.7 {
		t.Errorf("hostile vector scored %f, expected > 0.7", p)
	}

	if got := m.Detector.Predict([]float64{0.1, 0, 100, 500}); got != -1 {
		t.Error("shipped detector should flag drained liquidity")
	}
}

func TestLoad_MissingArtifact(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.json"), filepath.Join(dir, "missing2.json")); err == nil {
		t.Fatal("expected error for missing artifacts")
	}
}
