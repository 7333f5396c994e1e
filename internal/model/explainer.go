package model

// Attribution is a signed per-feature contribution explaining a single
// prediction relative to the background reference set.
type Attribution struct {
	Field string  `json:"field"`
	Value float64 `json:"value"`
}

// Explain computes one signed contribution per feature for a scaled vector.
// Contributions are exact in margin space for the linear decision function
// (phi_i = w_i * (x_i - mean_bg_i)) and rescaled so their sum reconciles with
// confidence(x) minus the background average prediction. Deterministic for a
// fixed background set; fails with ErrExplainerUnavailable when the set is
// missing.
func (a *Artifact) Explain(vec ScaledVector) ([]Attribution, error) {
	if a == nil {
		return nil, ErrModelNotLoaded
	}
	if len(a.Background) == 0 {
		return nil, ErrExplainerUnavailable
	}

	n := len(a.Scaler.Fields)

	// Mean scaled background vector and mean background prediction.
	bgMean := make([]float64, n)
	var bgAvgPred float64
	for _, row := range a.Background {
		scaled := a.transformRow(row)
		for i := range scaled {
			bgMean[i] += scaled[i]
		}
		bgAvgPred += sigmoid(a.margin(scaled))
	}
	count := float64(len(a.Background))
	for i := range bgMean {
		bgMean[i] /= count
	}
	bgAvgPred /= count

	// Margin-space contributions.
	phi := make([]float64, n)
	var phiSum float64
	for i, w := range a.Classifier.Weights {
		phi[i] = w * (vec[i] - bgMean[i])
		phiSum += phi[i]
	}

	// Rescale into probability space so the sum matches the observed
	// confidence shift. A zero margin shift leaves no per-feature signal to
	// apportion, but delta can still be nonzero (the mean of per-row
	// sigmoids is not the sigmoid of the mean row); spread it uniformly so
	// the sum still reconciles.
	delta := sigmoid(a.margin(vec)) - bgAvgPred

	attrs := make([]Attribution, n)
	if phiSum != 0 {
		scale := delta / phiSum
		for i, name := range a.Scaler.Fields {
			attrs[i] = Attribution{Field: name, Value: phi[i] * scale}
		}
		return attrs, nil
	}
	uniform := delta / float64(n)
	for i, name := range a.Scaler.Fields {
		attrs[i] = Attribution{Field: name, Value: uniform}
	}
	return attrs, nil
}
