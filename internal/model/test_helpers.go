package model

import (
	"math"
	"sync"
	"time"

	"voicewell/internal/biomarker"
)

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu                 sync.Mutex
	predictions        int
	validationFailures int
	degraded           int
	latencySum         float64
	confidences        []float64
	modelAge           float64
}

func (m *MockMetrics) PredictionsInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions++
}

func (m *MockMetrics) ValidationFailuresInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validationFailures++
}

func (m *MockMetrics) DegradedInc() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degraded++
}

func (m *MockMetrics) LatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencySum += v
}

func (m *MockMetrics) ConfidenceObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confidences = append(m.confidences, v)
}

func (m *MockMetrics) ModelAgeSet(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge = v
}

// NewTestArtifact builds a deterministic artifact for tests: scaler means sit
// at the healthy preset, so the healthy profile scales to the zero vector and
// classifies below threshold, while elevated jitter/shimmer values push the
// decision positive. The background set holds the three preset profiles.
func NewTestArtifact(withBackground bool) *Artifact {
	healthy := biomarker.Presets["healthy"].Values()

	fields := make([]string, biomarker.FieldCount)
	copy(fields, biomarker.FieldNames[:])

	stds := make([]float64, len(healthy))
	for i, m := range healthy {
		s := math.Abs(m)
		if s == 0 {
			s = 1
		}
		stds[i] = s
	}

	weightFor := map[string]float64{
		"MDVP:Jitter(%)":   0.5,
		"MDVP:Jitter(Abs)": 0.5,
		"MDVP:RAP":         0.5,
		"MDVP:PPQ":         0.5,
		"Jitter:DDP":       0.5,
		"MDVP:Shimmer":     0.5,
		"MDVP:Shimmer(dB)": 0.5,
		"Shimmer:APQ3":     0.5,
		"Shimmer:APQ5":     0.5,
		"MDVP:APQ":         0.5,
		"Shimmer:DDA":      0.5,
		"HNR":              -0.3,
	}
	weights := make([]float64, len(fields))
	for i, name := range fields {
		weights[i] = weightFor[name]
	}

	a := &Artifact{
		Scaler: ScalerParams{Fields: fields, Means: healthy, Stds: stds},
		Classifier: ClassifierParams{
			Weights:   weights,
			Intercept: -1.0,
			Metadata: Metadata{
				Version:      "test-0001",
				Algorithm:    "LogisticRegression",
				TrainedAt:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
				CVScore:      0.91,
				TrainingRows: 195,
			},
		},
	}

	if withBackground {
		a.Background = [][]float64{
			biomarker.Presets["healthy"].Values(),
			biomarker.Presets["mild"].Values(),
			biomarker.Presets["severe"].Values(),
		}
	}
	return a
}
