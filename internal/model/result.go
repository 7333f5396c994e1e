package model

import (
	"errors"
	"time"

	"voicewell/internal/biomarker"

	"github.com/rs/zerolog/log"
)

// MetricsInterface defines the metrics methods the pipeline reports to.
// Declared here to avoid an import cycle with the metrics package.
type MetricsInterface interface {
	PredictionsInc()
	ValidationFailuresInc()
	DegradedInc()
	LatencyObserve(float64)
	ConfidenceObserve(float64)
	ModelAgeSet(float64)
}

// PredictionResult is the assembled response for one served request.
// Immutable after creation; optionally persisted as an audit row.
type PredictionResult struct {
	Label        Label         `json:"label"`
	Confidence   float64       `json:"confidence"`
	Attributions []Attribution `json:"attributions"`
	// Degraded is set when the explainer was unavailable and the result
	// carries no attributions.
	Degraded  bool      `json:"degraded"`
	Timestamp time.Time `json:"timestamp"`
	UserID    uint64    `json:"user_id,omitempty"`
}

// Pipeline runs validated records through scaling, classification and
// explanation, and assembles the response. It holds only read-only state and
// is safe for concurrent use.
type Pipeline struct {
	artifact  *Artifact
	threshold float64
	policy    biomarker.RangePolicy
	metrics   MetricsInterface
}

// NewPipeline wires a loaded artifact into a serving pipeline. threshold <= 0
// falls back to DefaultThreshold.
func NewPipeline(artifact *Artifact, threshold float64, policy biomarker.RangePolicy, m MetricsInterface) *Pipeline {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if policy == "" {
		policy = biomarker.PolicyWarn
	}
	return &Pipeline{artifact: artifact, threshold: threshold, policy: policy, metrics: m}
}

// Threshold returns the configured decision boundary.
func (p *Pipeline) Threshold() float64 { return p.threshold }

// Policy returns the configured out-of-range policy.
func (p *Pipeline) Policy() biomarker.RangePolicy { return p.policy }

// Screen validates a raw field mapping and serves it. Validation errors name
// the offending fields and never reach the model.
func (p *Pipeline) Screen(raw map[string]float64) (PredictionResult, error) {
	rec, err := biomarker.FromMap(raw, p.policy)
	if err != nil {
		if p.metrics != nil {
			p.metrics.ValidationFailuresInc()
		}
		return PredictionResult{}, err
	}
	return p.Run(rec)
}

// Run serves an already-validated record: scale, classify, explain, assemble.
// A missing background set degrades the response instead of failing it; this
// is the only step permitted to partially succeed.
func (p *Pipeline) Run(rec biomarker.Record) (PredictionResult, error) {
	start := time.Now()

	vec, err := p.artifact.Transform(rec)
	if err != nil {
		return PredictionResult{}, err
	}

	label, confidence, err := p.artifact.Classify(vec, p.threshold)
	if err != nil {
		return PredictionResult{}, err
	}

	result := PredictionResult{
		Label:      label,
		Confidence: confidence,
		Timestamp:  time.Now().UTC(),
	}

	attrs, err := p.artifact.Explain(vec)
	switch {
	case err == nil:
		result.Attributions = attrs
	case errors.Is(err, ErrExplainerUnavailable):
		result.Degraded = true
		result.Attributions = []Attribution{}
		if p.metrics != nil {
			p.metrics.DegradedInc()
		}
		log.Warn().Msg("explanation unavailable, serving degraded result")
	default:
		return PredictionResult{}, err
	}

	if p.metrics != nil {
		p.metrics.PredictionsInc()
		p.metrics.ConfidenceObserve(confidence)
		p.metrics.LatencyObserve(time.Since(start).Seconds())
	}

	log.Debug().
		Str("label", string(label)).
		Float64("confidence", confidence).
		Bool("degraded", result.Degraded).
		Msg("prediction served")

	return result, nil
}
