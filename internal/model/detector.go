package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// eulerGamma is the Euler-Mascheroni constant used in the average
// unsuccessful-search path length of a binary search tree.
const eulerGamma = 0.5772156649

// IsolationForest is an ensemble of isolation trees. An observation's
// anomaly score is 2^(-E[h(x)]/c(n)) where h(x) is the path length to the
// isolating leaf and c(n) normalizes by the subsample size the trees were
// grown on. Short average paths mean easy isolation, i.e. an outlier.
type IsolationForest struct {
	trees      []*isoNode
	sampleSize int
	threshold  float64
}

type isoNode struct {
	// Internal nodes carry a split; leaves carry only a size.
	Feature   *int     `json:"feature,omitempty"`
	Threshold float64  `json:"threshold,omitempty"`
	Left      *isoNode `json:"left,omitempty"`
	Right     *isoNode `json:"right,omitempty"`
	Size      int      `json:"size,omitempty"`
}

type detectorArtifact struct {
	ModelVersion string     `json:"model_version"`
	SampleSize   int        `json:"sample_size"`
	Threshold    float64    `json:"threshold"`
	Trees        []*isoNode `json:"trees"`
}

// LoadDetector reads an isolation forest artifact from disk.
func LoadDetector(path string) (*IsolationForest, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from operator config, not user input
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var art detectorArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse artifact: %w", err)
	}

	if len(art.Trees) == 0 {
		return nil, fmt.Errorf("artifact has no trees")
	}
	if art.SampleSize < 2 {
		return nil, fmt.Errorf("artifact sample_size must be >= 2")
	}
	if art.Threshold <= 0 || art.Threshold >= 1 {
		return nil, fmt.Errorf("artifact threshold must be in (0, 1)")
	}

	return &IsolationForest{
		trees:      art.Trees,
		sampleSize: art.SampleSize,
		threshold:  art.Threshold,
	}, nil
}

// Score returns the anomaly score in (0, 1]. Higher means more anomalous.
func (f *IsolationForest) Score(features []float64) float64 {
	var total float64
	for _, tree := range f.trees {
		total += pathLength(tree, features, 0)
	}
	mean := total / float64(len(f.trees))

	return math.Exp2(-mean / avgPathLength(f.sampleSize))
}

// Predict returns 1 for normal, -1 for anomaly.
func (f *IsolationForest) Predict(features []float64) int {
	if f.Score(features) > f.threshold {
		return -1
	}
	return 1
}

// pathLength walks an observation down a tree and returns the depth of its
// isolating leaf, adjusted by the expected subtree depth for leaf size.
func pathLength(n *isoNode, features []float64, depth int) float64 {
	if n.Feature == nil {
		return float64(depth) + avgPathLength(n.Size)
	}

	var v float64
	if *n.Feature < len(features) {
		v = features[*n.Feature]
	}

	if v <= n.Threshold {
		return pathLength(n.Left, features, depth+1)
	}
	return pathLength(n.Right, features, depth+1)
}

// avgPathLength is c(n): the average unsuccessful-search path length of a
// binary search tree over n points.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		h := math.Log(float64(n-1)) + eulerGamma
		return 2*h - 2*float64(n-1)/float64(n)
	}
}
