package scan

import (
	"errors"
	"fmt"

	"github.com/sentinelml/sentinel/internal/schema"
	"github.com/sentinelml/sentinel/internal/validation"
)

// ErrInvalidFeatureValue marks a feature value that cannot be coerced to a
// number. The request is rejected; no partial result is returned.
var ErrInvalidFeatureValue = errors.New("invalid feature value")

// BuildVector maps a raw record onto the ordered vector the classifier
// expects. For each name in schema order: missing values default to 0.0,
// non-numeric values are an error, and out-of-range values are silently
// clamped to [0, 1]. Clamping (not rejection) is a deliberate leniency
// policy so out-of-range client input degrades gracefully.
func BuildVector(s *schema.Schema, record RawRecord) ([]float64, error) {
	vector := make([]float64, len(s.Features))

	for i, name := range s.Features {
		raw, ok := record[name]
		if !ok {
			continue // default 0.0
		}

		v, err := validation.CoerceFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: feature %q: %v", ErrInvalidFeatureValue, name, err)
		}

		vector[i] = clamp01(v)
	}

	return vector, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
