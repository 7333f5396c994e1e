package metrics

// Wrapper adapts Metrics to the pipeline's MetricsInterface, keeping the
// model package free of a prometheus dependency.
type Wrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) PredictionsInc() {
	w.m.PredictionsTotal.Inc()
}

func (w *Wrapper) ValidationFailuresInc() {
	w.m.ValidationFailures.Inc()
}

func (w *Wrapper) DegradedInc() {
	w.m.ExplainerDegraded.Inc()
}

func (w *Wrapper) LatencyObserve(v float64) {
	w.m.PredictionLatency.Observe(v)
}

func (w *Wrapper) ConfidenceObserve(v float64) {
	w.m.ConfidenceScores.Observe(v)
}

func (w *Wrapper) ModelAgeSet(v float64) {
	w.m.ModelAge.Set(v)
}
