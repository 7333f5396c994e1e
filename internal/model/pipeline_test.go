package model

import (
	"errors"
	"math"
	"testing"

	"voicewell/internal/biomarker"
)

// elevatedProfile is the healthy preset with every jitter/shimmer measurement
// multiplied, a rough simulation of progressed vocal impairment.
func elevatedProfile(factor float64) map[string]float64 {
	raw := biomarker.Presets["healthy"].Map()
	for _, name := range []string{
		"MDVP:Jitter(%)", "MDVP:Jitter(Abs)", "MDVP:RAP", "MDVP:PPQ",
		"Jitter:DDP", "MDVP:Shimmer", "MDVP:Shimmer(dB)", "Shimmer:APQ3",
		"Shimmer:APQ5", "MDVP:APQ", "Shimmer:DDA",
	} {
		raw[name] *= factor
	}
	return raw
}

func TestPipeline_HealthyProfileClassifiesHealthy(t *testing.T) {
	p := NewPipeline(NewTestArtifact(true), DefaultThreshold, biomarker.PolicyWarn, nil)

	res, err := p.Screen(biomarker.Presets["healthy"].Map())
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}
	if res.Label != LabelHealthy {
		t.Errorf("label = %s, want %s", res.Label, LabelHealthy)
	}
	// Healthy scales to the zero vector, so the margin is the intercept.
	want := sigmoid(-1.0)
	if math.Abs(res.Confidence-want) > 1e-12 {
		t.Errorf("confidence = %v, want %v", res.Confidence, want)
	}
	if res.Degraded {
		t.Error("result marked degraded with background set present")
	}
	if res.Timestamp.IsZero() {
		t.Error("timestamp not set")
	}
}

func TestPipeline_ElevatedProfileClassifiesParkinsons(t *testing.T) {
	p := NewPipeline(NewTestArtifact(true), DefaultThreshold, biomarker.PolicyWarn, nil)

	res, err := p.Screen(elevatedProfile(5))
	if err != nil {
		t.Fatalf("Screen failed: %v", err)
	}
	if res.Label != LabelParkinsons {
		t.Errorf("label = %s, want %s", res.Label, LabelParkinsons)
	}
	if res.Confidence < 0.99 {
		t.Errorf("confidence = %v, want > 0.99", res.Confidence)
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	a := NewTestArtifact(true)
	p := NewPipeline(a, DefaultThreshold, biomarker.PolicyWarn, nil)
	rec := biomarker.Presets["mild"]

	v1, err := a.Transform(rec)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	v2, _ := a.Transform(rec)
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("scaled vector differs at %d: %v vs %v", i, v1[i], v2[i])
		}
	}

	r1, err := p.Run(rec)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	r2, _ := p.Run(rec)
	if r1.Label != r2.Label || r1.Confidence != r2.Confidence {
		t.Errorf("repeated runs disagree: %s/%v vs %s/%v",
			r1.Label, r1.Confidence, r2.Label, r2.Confidence)
	}
	for i := range r1.Attributions {
		if r1.Attributions[i] != r2.Attributions[i] {
			t.Errorf("attribution %d differs between runs", i)
		}
	}
}

func TestPipeline_ThresholdFlipsLabelNotConfidence(t *testing.T) {
	a := NewTestArtifact(true)
	rec := biomarker.Presets["healthy"]

	// Healthy sits at sigmoid(-1); a threshold below it flips the label.
	low := NewPipeline(a, 0.2, biomarker.PolicyWarn, nil)
	high := NewPipeline(a, 0.5, biomarker.PolicyWarn, nil)

	rLow, err := low.Run(rec)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	rHigh, err := high.Run(rec)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rLow.Confidence != rHigh.Confidence {
		t.Errorf("threshold changed confidence: %v vs %v", rLow.Confidence, rHigh.Confidence)
	}
	if rLow.Label != LabelParkinsons || rHigh.Label != LabelHealthy {
		t.Errorf("labels = %s/%s, want Parkinsons/Healthy", rLow.Label, rHigh.Label)
	}
}

func TestExplain_SumMatchesConfidenceShift(t *testing.T) {
	a := NewTestArtifact(true)
	vec, err := a.Transform(biomarker.Presets["severe"])
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	attrs, err := a.Explain(vec)
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	if len(attrs) != biomarker.FieldCount {
		t.Fatalf("got %d attributions, want %d", len(attrs), biomarker.FieldCount)
	}

	var bgAvgPred float64
	for _, row := range a.Background {
		bgAvgPred += sigmoid(a.margin(a.transformRow(row)))
	}
	bgAvgPred /= float64(len(a.Background))

	var sum float64
	for _, attr := range attrs {
		sum += attr.Value
	}
	want := sigmoid(a.margin(vec)) - bgAvgPred
	if math.Abs(sum-want) > 1e-9 {
		t.Errorf("attribution sum = %v, want confidence shift %v", sum, want)
	}
}

func TestExplain_BackgroundMeanVectorStillReconciles(t *testing.T) {
	a := NewTestArtifact(true)
	n := len(a.Scaler.Fields)

	// Probe the exact background mean: every margin-space contribution is
	// zero there, yet the confidence shift is not, because averaging the
	// per-row sigmoids differs from the sigmoid of the averaged row.
	vec := make(ScaledVector, n)
	var bgAvgPred float64
	for _, row := range a.Background {
		scaled := a.transformRow(row)
		for i := range scaled {
			vec[i] += scaled[i]
		}
		bgAvgPred += sigmoid(a.margin(scaled))
	}
	count := float64(len(a.Background))
	for i := range vec {
		vec[i] /= count
	}
	bgAvgPred /= count

	delta := sigmoid(a.margin(vec)) - bgAvgPred
	if delta == 0 {
		t.Fatal("background rows too uniform to exercise the degenerate case")
	}

	attrs, err := a.Explain(vec)
	if err != nil {
		t.Fatalf("Explain failed: %v", err)
	}
	var sum float64
	for _, attr := range attrs {
		sum += attr.Value
	}
	if math.Abs(sum-delta) > 1e-9 {
		t.Errorf("attribution sum = %v, want confidence shift %v", sum, delta)
	}
	for i := 1; i < len(attrs); i++ {
		if attrs[i].Value != attrs[0].Value {
			t.Errorf("attribution %d = %v, want uniform spread %v", i, attrs[i].Value, attrs[0].Value)
		}
	}
}

func TestPipeline_DegradesWithoutBackground(t *testing.T) {
	m := &MockMetrics{}
	p := NewPipeline(NewTestArtifact(false), DefaultThreshold, biomarker.PolicyWarn, m)

	res, err := p.Run(biomarker.Presets["mild"])
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Degraded {
		t.Error("result not marked degraded")
	}
	if res.Attributions == nil || len(res.Attributions) != 0 {
		t.Errorf("attributions = %v, want empty non-nil", res.Attributions)
	}
	if res.Label == "" || res.Confidence <= 0 {
		t.Errorf("degraded result lost label/confidence: %s/%v", res.Label, res.Confidence)
	}
	if m.degraded != 1 || m.predictions != 1 {
		t.Errorf("metrics: degraded=%d predictions=%d, want 1/1", m.degraded, m.predictions)
	}
}

func TestPipeline_ValidationFailureCounted(t *testing.T) {
	m := &MockMetrics{}
	p := NewPipeline(NewTestArtifact(true), DefaultThreshold, biomarker.PolicyWarn, m)

	raw := biomarker.Presets["healthy"].Map()
	delete(raw, "PPE")
	_, err := p.Screen(raw)
	var mfe *biomarker.MissingFieldError
	if !errors.As(err, &mfe) {
		t.Fatalf("got %v, want MissingFieldError", err)
	}
	if m.validationFailures != 1 || m.predictions != 0 {
		t.Errorf("metrics: validationFailures=%d predictions=%d, want 1/0",
			m.validationFailures, m.predictions)
	}
}

func TestTransform_SchemaMismatch(t *testing.T) {
	a := NewTestArtifact(true)
	a.Scaler.Fields[3] = "MDVP:Jitter(pct)" // renamed between training and serving

	_, err := a.Transform(biomarker.Presets["healthy"])
	var sme *ScalerMismatchError
	if !errors.As(err, &sme) {
		t.Fatalf("got %v, want ScalerMismatchError", err)
	}
	if len(sme.Missing) != 1 || sme.Missing[0] != "MDVP:Jitter(pct)" {
		t.Errorf("missing = %v, want [MDVP:Jitter(pct)]", sme.Missing)
	}
	if len(sme.Extra) != 1 || sme.Extra[0] != "MDVP:Jitter(%)" {
		t.Errorf("extra = %v, want [MDVP:Jitter(%%)]", sme.Extra)
	}
}

func TestNilArtifactReportsNotLoaded(t *testing.T) {
	var a *Artifact
	if _, err := a.Transform(biomarker.Presets["healthy"]); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("Transform: got %v, want ErrModelNotLoaded", err)
	}
	if _, _, err := a.Classify(ScaledVector{}, DefaultThreshold); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("Classify: got %v, want ErrModelNotLoaded", err)
	}

	p := NewPipeline(nil, DefaultThreshold, biomarker.PolicyWarn, nil)
	if _, err := p.Run(biomarker.Presets["healthy"]); !errors.Is(err, ErrModelNotLoaded) {
		t.Errorf("Run: got %v, want ErrModelNotLoaded", err)
	}
}

func TestArtifact_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	orig := NewTestArtifact(true)
	if err := orig.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Classifier.Metadata.Version != orig.Classifier.Metadata.Version {
		t.Errorf("version = %q, want %q",
			loaded.Classifier.Metadata.Version, orig.Classifier.Metadata.Version)
	}

	rec := biomarker.Presets["severe"]
	r1, err := NewPipeline(orig, DefaultThreshold, biomarker.PolicyWarn, nil).Run(rec)
	if err != nil {
		t.Fatalf("Run on original failed: %v", err)
	}
	r2, err := NewPipeline(loaded, DefaultThreshold, biomarker.PolicyWarn, nil).Run(rec)
	if err != nil {
		t.Fatalf("Run on loaded failed: %v", err)
	}
	if r1.Label != r2.Label || r1.Confidence != r2.Confidence {
		t.Errorf("round trip changed prediction: %s/%v vs %s/%v",
			r1.Label, r1.Confidence, r2.Label, r2.Confidence)
	}
	for i := range r1.Attributions {
		if r1.Attributions[i] != r2.Attributions[i] {
			t.Errorf("attribution %d changed after round trip", i)
		}
	}
}

func TestLoad_MissingBackgroundDisablesExplainer(t *testing.T) {
	dir := t.TempDir()
	if err := NewTestArtifact(false).Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Background != nil {
		t.Fatal("background should be absent")
	}
	vec, err := loaded.Transform(biomarker.Presets["healthy"])
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if _, err := loaded.Explain(vec); !errors.Is(err, ErrExplainerUnavailable) {
		t.Errorf("Explain: got %v, want ErrExplainerUnavailable", err)
	}
}
