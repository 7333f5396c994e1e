package model

import (
	"voicewell/internal/biomarker"
)

// ScaledVector is a biomarker record after the fitted standardization
// transform, aligned with the artifact's field order.
type ScaledVector []float64

// Transform applies the fitted per-field (raw - mean) / std transform.
// Pure function of the record and the artifact; fails with
// ScalerMismatchError on schema drift between training and serving.
func (a *Artifact) Transform(rec biomarker.Record) (ScaledVector, error) {
	if a == nil {
		return nil, ErrModelNotLoaded
	}
	if err := a.checkSchema(); err != nil {
		return nil, err
	}

	vec := make(ScaledVector, len(a.Scaler.Fields))
	for i, name := range a.Scaler.Fields {
		raw, _ := rec.Get(name) // presence guaranteed by checkSchema
		vec[i] = (raw - a.Scaler.Means[i]) / a.Scaler.Stds[i]
	}
	return vec, nil
}

// transformRow scales a raw background row already in field order.
func (a *Artifact) transformRow(row []float64) ScaledVector {
	vec := make(ScaledVector, len(row))
	for i := range row {
		vec[i] = (row[i] - a.Scaler.Means[i]) / a.Scaler.Stds[i]
	}
	return vec
}
