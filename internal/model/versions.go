package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

// Version records one trained artifact known to this deployment.
type Version struct {
	Version   string         `json:"version"`
	Dir       string         `json:"dir"`
	CreatedAt time.Time      `json:"created_at"`
	Metrics   VersionMetrics `json:"metrics"`
	IsActive  bool           `json:"is_active"`
}

// VersionMetrics carries the offline evaluation scores from training.
type VersionMetrics struct {
	CVScore      float64 `json:"cv_score"`
	TestAccuracy float64 `json:"test_accuracy"`
	TestF1       float64 `json:"test_f1"`
	TestAUC      float64 `json:"test_auc"`
	TrainingRows int     `json:"training_rows"`
}

// Registry tracks artifact versions under a models directory and supports
// activation and rollback. Serving always reads the active version's dir.
type Registry struct {
	modelsDir    string
	versionsFile string
	versions     []Version
	current      *Version
}

// NewRegistry opens (or initializes) the version registry for a models dir.
func NewRegistry(modelsDir string) (*Registry, error) {
	r := &Registry{
		modelsDir:    modelsDir,
		versionsFile: filepath.Join(modelsDir, "versions.json"),
		versions:     make([]Version, 0),
	}
	if err := r.load(); err != nil {
		log.Warn().Err(err).Msg("failed to load artifact versions, starting fresh")
	}
	return r, nil
}

// Add registers a newly trained artifact directory.
func (r *Registry) Add(dir string, metrics VersionMetrics) error {
	r.versions = append(r.versions, Version{
		Version:   time.Now().Format("20060102-150405"),
		Dir:       dir,
		CreatedAt: time.Now(),
		Metrics:   metrics,
	})
	sort.Slice(r.versions, func(i, j int) bool {
		return r.versions[i].CreatedAt.After(r.versions[j].CreatedAt)
	})
	return r.save()
}

// Activate marks one version active and deactivates the rest.
func (r *Registry) Activate(version string) error {
	found := false
	for i := range r.versions {
		if r.versions[i].Version == version {
			r.versions[i].IsActive = true
			r.current = &r.versions[i]
			found = true
		} else {
			r.versions[i].IsActive = false
		}
	}
	if !found {
		return fmt.Errorf("version %s not found", version)
	}
	return r.save()
}

// Rollback activates the version preceding the currently active one.
func (r *Registry) Rollback() error {
	if len(r.versions) < 2 {
		return fmt.Errorf("no previous version available for rollback")
	}
	currentIdx := -1
	for i, v := range r.versions {
		if v.IsActive {
			currentIdx = i
			break
		}
	}
	if currentIdx == -1 {
		return fmt.Errorf("no active version found")
	}
	if currentIdx+1 >= len(r.versions) {
		return fmt.Errorf("no previous version available")
	}
	return r.Activate(r.versions[currentIdx+1].Version)
}

// Current returns the active version, or nil when none is active.
func (r *Registry) Current() *Version { return r.current }

// List returns all known versions, newest first.
func (r *Registry) List() []Version { return r.versions }

// ActiveDir resolves the directory to load the serving artifact from:
// the active version's dir if one is set, else the models dir itself.
func (r *Registry) ActiveDir() string {
	if r.current != nil {
		return r.current.Dir
	}
	return r.modelsDir
}

func (r *Registry) load() error {
	data, err := os.ReadFile(r.versionsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := json.Unmarshal(data, &r.versions); err != nil {
		return err
	}
	for i := range r.versions {
		if r.versions[i].IsActive {
			r.current = &r.versions[i]
			break
		}
	}
	return nil
}

func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.versions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.versionsFile, data, 0o600)
}
