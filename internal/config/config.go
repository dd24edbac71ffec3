package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory layout the pipeline reads from and writes to.
type Paths struct {
	DICOMRoot  string `toml:"dicom_root"`
	WorkDir    string `toml:"work_dir"`
	LogDir     string `toml:"log_dir"`
	CohortFile string `toml:"cohort_file"`
}

// Tags names the stage markers embedded in directory paths. Each stage
// locates its inputs by the previous stage's marker.
type Tags struct {
	Source        string `toml:"source"`
	NIfTI         string `toml:"nifti"`
	Brain         string `toml:"brain"`
	BrainMarker   string `toml:"brain_marker"`
	AxesCorrected string `toml:"axes_corrected"`
	PNG           string `toml:"png"`
	BrainSuffix   string `toml:"brain_suffix"`
	VolumeSuffix  string `toml:"volume_suffix"`
}

// Tools configures the external binaries invoked by each stage.
type Tools struct {
	Converter        string `toml:"converter"`
	ConverterPattern string `toml:"converter_filename_pattern"`
	Bet              string `toml:"bet"`
	FSLDir           string `toml:"fsl_dir"`
	FSLOutputType    string `toml:"fsl_output_type"`
	Med2Image        string `toml:"med2image"`
	Modality         string `toml:"modality"`
	TimeoutSeconds   int    `toml:"timeout_seconds"`
}

// Training contains defaults for the external U-Net trainer.
type Training struct {
	Command           []string `toml:"command"`
	DataPath          string   `toml:"data_path"`
	DataFilename      string   `toml:"data_filename"`
	OutputPath        string   `toml:"output_path"`
	InferenceFilename string   `toml:"inference_filename"`
	BatchSize         int      `toml:"batch_size"`
	Epochs            int      `toml:"epochs"`
	CropDim           int      `toml:"crop_dim"`
	IntraOpThreads    int      `toml:"intraop_threads"`
	InterOpThreads    int      `toml:"interop_threads"`
	UsePartialConv    bool     `toml:"use_pconv"`
	ChannelsFirst     bool     `toml:"channels_first"`
	Seed              int      `toml:"seed"`
}

// Evaluation contains defaults for prediction rendering.
type Evaluation struct {
	OutputDir string  `toml:"output_dir"`
	CropDim   int     `toml:"crop_dim"`
	Slices    []int   `toml:"slices"`
	Smooth    float64 `toml:"smooth"`
}

// Notifications configures ntfy delivery of run outcomes. An empty topic
// disables notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for brainprep.
//
// Configuration sections by subsystem:
//   - Paths: DICOM root, work directory, logs, cohort file
//   - Tags: stage markers used to derive per-stage directories
//   - Tools: converter, skull-strip and PNG renderer binaries
//   - Training: external trainer defaults
//   - Evaluation: prediction rendering defaults
//   - Notifications: ntfy topic for run outcomes
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Tags          Tags          `toml:"tags"`
	Tools         Tools         `toml:"tools"`
	Training      Training      `toml:"training"`
	Evaluation    Evaluation    `toml:"evaluation"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/brainprep/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("brainprep.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the work and log directories. The DICOM root is
// input only and is never created.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ManifestPath returns the location of the SQLite processing manifest.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Paths.WorkDir, "manifest.db")
}

// LockPath returns the workspace lock file guarding concurrent runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.WorkDir, "brainprep.lock")
}

// ToolTimeout returns the per-invocation timeout for external tools; zero
// disables it.
func (c *Config) ToolTimeout() time.Duration {
	if c.Tools.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Tools.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the effective configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
