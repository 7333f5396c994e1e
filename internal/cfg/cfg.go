package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"voicewell/internal/biomarker"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	ModelsDir   string
	DataPath    string
	ServerPort  int
	MetricsPort int
	Threshold   float64
	RangePolicy biomarker.RangePolicy
	SessionTTL  time.Duration
	HTTPTimeout time.Duration
}

type ConfigFile struct {
	Server struct {
		Port        int    `yaml:"port"`
		MetricsPort int    `yaml:"metricsPort"`
		SessionTTL  string `yaml:"sessionTTL"`
		HTTPTimeout string `yaml:"httpTimeout"`
	} `yaml:"server"`

	Model struct {
		ModelsDir string  `yaml:"modelsDir"`
		Threshold float64 `yaml:"threshold"`
	} `yaml:"model"`

	Validation struct {
		RangePolicy string `yaml:"rangePolicy"`
	} `yaml:"validation"`

	System struct {
		DataPath string `yaml:"dataPath"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	sessionTTL, err := time.ParseDuration(config.Server.SessionTTL)
	if err != nil {
		sessionTTL = 24 * time.Hour
	}
	httpTimeout, err := time.ParseDuration(config.Server.HTTPTimeout)
	if err != nil {
		httpTimeout = 10 * time.Second
	}

	settings := Settings{
		ModelsDir:   getEnvOrDefault("MODELS_DIR", config.Model.ModelsDir),
		DataPath:    getEnvOrDefault("DATA_PATH", config.System.DataPath),
		ServerPort:  getIntFromEnvOrConfig("SERVER_PORT", config.Server.Port),
		MetricsPort: getIntFromEnvOrConfig("METRICS_PORT", config.Server.MetricsPort),
		Threshold:   getFloatFromEnvOrConfig("CLASSIFY_THRESHOLD", config.Model.Threshold),
		RangePolicy: biomarker.RangePolicy(getEnvOrDefault("RANGE_POLICY", config.Validation.RangePolicy)),
		SessionTTL:  sessionTTL,
		HTTPTimeout: httpTimeout,
	}
	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ModelsDir:   getEnvOrDefault("MODELS_DIR", "models"),
		DataPath:    os.Getenv("DATA_PATH"), // optional, empty disables persistence
		ServerPort:  getIntOrDefault("SERVER_PORT", 8090),
		MetricsPort: getIntOrDefault("METRICS_PORT", 9091),
		Threshold:   getFloatOrDefault("CLASSIFY_THRESHOLD", 0.5),
		RangePolicy: biomarker.RangePolicy(getEnvOrDefault("RANGE_POLICY", string(biomarker.PolicyWarn))),
		SessionTTL:  getDurationOrDefault("SESSION_TTL", 24*time.Hour),
		HTTPTimeout: getDurationOrDefault("HTTP_TIMEOUT", 10*time.Second),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func applyDefaults(s *Settings) {
	if s.ModelsDir == "" {
		s.ModelsDir = "models"
	}
	if s.ServerPort == 0 {
		s.ServerPort = 8090
	}
	if s.MetricsPort == 0 {
		s.MetricsPort = 9091
	}
	if s.Threshold == 0 {
		s.Threshold = 0.5
	}
	if s.RangePolicy == "" {
		s.RangePolicy = biomarker.PolicyWarn
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

func getFloatFromEnvOrConfig(key string, configValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs validation of configuration values
func validateSettings(s *Settings) error {
	if s.ModelsDir == "" {
		return fmt.Errorf("models directory cannot be empty")
	}
	if s.ServerPort < 1024 || s.ServerPort > 65535 {
		return fmt.Errorf("server port must be between 1024 and 65535, got %d", s.ServerPort)
	}
	if s.MetricsPort < 1024 || s.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", s.MetricsPort)
	}
	if s.ServerPort == s.MetricsPort {
		return fmt.Errorf("server and metrics ports must differ, both are %d", s.ServerPort)
	}
	if s.Threshold <= 0 || s.Threshold >= 1 {
		return fmt.Errorf("classification threshold must be between 0 and 1 exclusive, got %f", s.Threshold)
	}
	if s.RangePolicy != biomarker.PolicyWarn && s.RangePolicy != biomarker.PolicyReject {
		return fmt.Errorf("range policy must be %q or %q, got %q",
			biomarker.PolicyWarn, biomarker.PolicyReject, s.RangePolicy)
	}
	if s.SessionTTL < time.Minute || s.SessionTTL > 30*24*time.Hour {
		return fmt.Errorf("session TTL must be between 1m and 720h, got %v", s.SessionTTL)
	}
	if s.HTTPTimeout < time.Second || s.HTTPTimeout > time.Minute {
		return fmt.Errorf("HTTP timeout must be between 1s and 1m, got %v", s.HTTPTimeout)
	}
	return nil
}
