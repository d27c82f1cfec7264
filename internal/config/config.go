package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config is the server's startup configuration. Model paths are resolved
// relative to ModelDir unless absolute.
type Config struct {
	Port string `json:"port"`

	ModelDir        string `json:"model_dir"`
	GateModel       string `json:"gate_model"`
	GateMetadata    string `json:"gate_metadata"`
	DiseaseModel    string `json:"disease_model"`
	DiseaseMetadata string `json:"disease_metadata"`

	// ORTLibraryPath is the onnxruntime shared library. Empty uses the
	// platform default.
	ORTLibraryPath string `json:"ort_library_path"`

	UploadDir      string `json:"upload_dir"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
}

// Default returns the configuration used when no file or environment
// overrides are given.
func Default() *Config {
	return &Config{
		Port:            "8080",
		ModelDir:        "models",
		GateModel:       "classifier.onnx",
		GateMetadata:    "classifier_metadata.json",
		DiseaseModel:    "disease.onnx",
		DiseaseMetadata: "disease_metadata.json",
		UploadDir:       "uploads",
		MaxUploadBytes:  10 << 20,
	}
}

// Load starts from Default, applies the JSON file at path (if non-empty) and
// then environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	// Fields absent from the file keep their current values.
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := []struct {
		key string
		dst *string
	}{
		{"PORT", &c.Port},
		{"MODEL_DIR", &c.ModelDir},
		{"GATE_MODEL", &c.GateModel},
		{"GATE_METADATA", &c.GateMetadata},
		{"DISEASE_MODEL", &c.DiseaseModel},
		{"DISEASE_METADATA", &c.DiseaseMetadata},
		{"UPLOAD_DIR", &c.UploadDir},
		{"ORT_LIBRARY_PATH", &c.ORTLibraryPath},
	}
	for _, s := range strs {
		if v, ok := lookup(s.key); ok && v != "" {
			*s.dst = v
		}
	}

	if v, ok := lookup("MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid MAX_UPLOAD_BYTES %q: %w", v, err)
		}
		c.MaxUploadBytes = n
	}
	return nil
}

// Validate reports the first missing or out-of-range setting.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if _, err := strconv.ParseUint(c.Port, 10, 16); err != nil {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	required := []struct {
		name  string
		value string
	}{
		{"gate_model", c.GateModel},
		{"gate_metadata", c.GateMetadata},
		{"disease_model", c.DiseaseModel},
		{"disease_metadata", c.DiseaseMetadata},
		{"upload_dir", c.UploadDir},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// ModelPath resolves name against ModelDir.
func (c *Config) ModelPath(name string) string {
	if filepath.IsAbs(name) || c.ModelDir == "" {
		return name
	}
	return filepath.Join(c.ModelDir, name)
}

// Rebase resolves the relative model and upload directories against root,
// so both end up under the same project tree.
func (c *Config) Rebase(root string) {
	if c.ModelDir != "" && !filepath.IsAbs(c.ModelDir) {
		c.ModelDir = filepath.Join(root, c.ModelDir)
	}
	if !filepath.IsAbs(c.UploadDir) {
		c.UploadDir = filepath.Join(root, c.UploadDir)
	}
}
