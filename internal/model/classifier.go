package model

import (
	"fmt"
	"math"
)

// Label is the binary screening outcome.
type Label string

const (
	LabelHealthy    Label = "Healthy"
	LabelParkinsons Label = "Parkinsons"
)

// DefaultThreshold is the decision boundary on the positive-class
// probability when none is configured.
const DefaultThreshold = 0.5

// Classify evaluates the fitted decision function over a scaled vector and
// returns the label with the model's positive-class probability. The label is
// monotonic in the confidence: confidence >= threshold iff Parkinsons.
// Deterministic and side-effect-free; no retries are meaningful.
func (a *Artifact) Classify(vec ScaledVector, threshold float64) (Label, float64, error) {
	if a == nil {
		return "", 0, ErrModelNotLoaded
	}
	if len(vec) != len(a.Classifier.Weights) {
		return "", 0, fmt.Errorf("scaled vector has %d values, classifier expects %d",
			len(vec), len(a.Classifier.Weights))
	}

	confidence := sigmoid(a.margin(vec))
	if confidence >= threshold {
		return LabelParkinsons, confidence, nil
	}
	return LabelHealthy, confidence, nil
}

// margin is the pre-sigmoid decision value w·x + b.
func (a *Artifact) margin(vec ScaledVector) float64 {
	z := a.Classifier.Intercept
	for i, w := range a.Classifier.Weights {
		z += w * vec[i]
	}
	return z
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
