// Package model implements the prediction-serving contract: loading a fitted
// model artifact and running validated biomarker records through scaling,
// classification and explanation. The artifact is produced by an offline
// training run, loaded once at process start and never mutated while serving.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voicewell/internal/biomarker"

	"github.com/rs/zerolog/log"
)

const (
	scalerFile     = "scaler.json"
	classifierFile = "classifier.json"
	backgroundFile = "background.json"
)

// ErrModelNotLoaded indicates a request reached the classifier without a
// loaded artifact. This is a deployment problem, not a user input problem.
var ErrModelNotLoaded = errors.New("model artifact not loaded")

// ErrExplainerUnavailable indicates the background reference set is missing.
// Callers degrade to label/confidence without attributions.
var ErrExplainerUnavailable = errors.New("explainer background set unavailable")

// ScalerMismatchError reports schema drift between the serving record layout
// and the field set the scaler was fitted on.
type ScalerMismatchError struct {
	Missing []string // fields the artifact expects but the record lacks
	Extra   []string // fields the artifact was fitted on but serving dropped
}

func (e *ScalerMismatchError) Error() string {
	return fmt.Sprintf("scaler/record field mismatch (missing: %s; extra: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Extra, ", "))
}

// ScalerParams holds the fitted standardization transform, one (mean, std)
// pair per field, aligned with Fields.
type ScalerParams struct {
	Fields []string  `json:"fields"`
	Means  []float64 `json:"means"`
	Stds   []float64 `json:"stds"`
}

// ClassifierParams holds the fitted binary decision function: a logistic
// model over the scaled vector, weights aligned with the scaler's fields.
type ClassifierParams struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
	Metadata  Metadata  `json:"metadata"`
}

// Metadata describes the training run that produced the artifact.
type Metadata struct {
	Version      string    `json:"version"`
	Algorithm    string    `json:"algorithm"`
	TrainedAt    time.Time `json:"trained_at"`
	CVScore      float64   `json:"cv_score,omitempty"`
	TrainingRows int       `json:"training_rows,omitempty"`
}

// Artifact is the combined fitted scaler, classifier and background reference
// set. Write-once at training time, read-only during serving; safe to share
// across concurrent requests without locking.
type Artifact struct {
	Scaler     ScalerParams
	Classifier ClassifierParams
	// Background holds raw reference rows in scaler field order. Nil when
	// the training run did not export one; the explainer then reports
	// ErrExplainerUnavailable.
	Background [][]float64
}

// Load reads an artifact from a models directory. scaler.json and
// classifier.json are required; background.json is optional and its absence
// only degrades explanations.
func Load(dir string) (*Artifact, error) {
	var a Artifact

	if err := readJSON(filepath.Join(dir, scalerFile), &a.Scaler); err != nil {
		return nil, fmt.Errorf("load scaler parameters: %w", err)
	}
	if err := readJSON(filepath.Join(dir, classifierFile), &a.Classifier); err != nil {
		return nil, fmt.Errorf("load classifier parameters: %w", err)
	}

	bgPath := filepath.Join(dir, backgroundFile)
	if err := readJSON(bgPath, &a.Background); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load background set: %w", err)
		}
		log.Warn().Str("path", bgPath).Msg("background set missing, explanations disabled")
		a.Background = nil
	}

	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("artifact integrity: %w", err)
	}

	log.Info().
		Str("dir", dir).
		Str("version", a.Classifier.Metadata.Version).
		Str("algorithm", a.Classifier.Metadata.Algorithm).
		Int("features", len(a.Scaler.Fields)).
		Bool("explainable", a.Background != nil).
		Msg("model artifact loaded")

	return &a, nil
}

// Save writes the artifact back to a models directory. Used by tooling and
// round-trip tests; the serving path never writes.
func (a *Artifact) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dir, scalerFile), a.Scaler); err != nil {
		return fmt.Errorf("save scaler parameters: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, classifierFile), a.Classifier); err != nil {
		return fmt.Errorf("save classifier parameters: %w", err)
	}
	if a.Background != nil {
		if err := writeJSON(filepath.Join(dir, backgroundFile), a.Background); err != nil {
			return fmt.Errorf("save background set: %w", err)
		}
	}
	return nil
}

func (a *Artifact) validate() error {
	n := len(a.Scaler.Fields)
	if n == 0 {
		return fmt.Errorf("scaler has no fields")
	}
	if len(a.Scaler.Means) != n || len(a.Scaler.Stds) != n {
		return fmt.Errorf("scaler parameter lengths disagree: %d fields, %d means, %d stds",
			n, len(a.Scaler.Means), len(a.Scaler.Stds))
	}
	for i, std := range a.Scaler.Stds {
		if std <= 0 {
			return fmt.Errorf("field %s: non-positive std %f", a.Scaler.Fields[i], std)
		}
	}
	if len(a.Classifier.Weights) != n {
		return fmt.Errorf("classifier has %d weights for %d fields", len(a.Classifier.Weights), n)
	}
	for i, row := range a.Background {
		if len(row) != n {
			return fmt.Errorf("background row %d has %d values, want %d", i, len(row), n)
		}
	}
	return nil
}

// checkSchema verifies the record field set matches the fitted field set.
func (a *Artifact) checkSchema() error {
	missing := make([]string, 0)
	for _, f := range a.Scaler.Fields {
		if biomarker.FieldIndex(f) < 0 {
			missing = append(missing, f)
		}
	}
	var extra []string
	if len(a.Scaler.Fields) != biomarker.FieldCount || len(missing) > 0 {
		fitted := make(map[string]struct{}, len(a.Scaler.Fields))
		for _, f := range a.Scaler.Fields {
			fitted[f] = struct{}{}
		}
		for _, f := range biomarker.FieldNames {
			if _, ok := fitted[f]; !ok {
				extra = append(extra, f)
			}
		}
		return &ScalerMismatchError{Missing: missing, Extra: extra}
	}
	return nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
