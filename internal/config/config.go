package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directory layout for audio data and generated artifacts.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	ResultsDir string `toml:"results_dir"`
	LogDir     string `toml:"log_dir"`
	UEMDir     string `toml:"uem_dir"`
	EAFDir     string `toml:"eaf_dir"`
	RTTMDir    string `toml:"rttm_dir"`
}

// Catalog contains configuration for the recording catalog database.
type Catalog struct {
	DBPath    string `toml:"db_path"`
	BatchSize int    `toml:"batch_size"`
}

// S3 contains configuration for fetching recordings from object storage.
type S3 struct {
	Bucket     string `toml:"bucket"`
	ConfigPath string `toml:"config_path"`
}

// Sox contains the audio normalization settings applied after download.
type Sox struct {
	Binary     string `toml:"binary"`
	SampleRate int    `toml:"sample_rate"`
	HighpassHz int    `toml:"highpass_hz"`
}

// Pipeline contains the concurrency and backpressure limits for a run.
type Pipeline struct {
	// ProcessingLimit bounds how many sox processes run at once.
	ProcessingLimit int `toml:"processing_limit"`
	// DownloadQueueSize bounds how many downloaded-but-unprocessed files may
	// exist at once, which in turn bounds staging disk usage.
	DownloadQueueSize int `toml:"download_queue_size"`
	// MinFreeGiB is the free space required on the data directory before a
	// run starts. Zero disables the check.
	MinFreeGiB int `toml:"min_free_gib"`
}

// Diarization contains configuration for the pyannote.ai integration.
type Diarization struct {
	APIKey           string `toml:"api_key"`
	BaseURL          string `toml:"base_url"`
	EndpointHostname string `toml:"endpoint_hostname"`
	EndpointPort     int    `toml:"endpoint_port"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for the audio-processing tools.
type Config struct {
	Paths         Paths         `toml:"paths"`
	Catalog       Catalog       `toml:"catalog"`
	S3            S3            `toml:"s3"`
	Sox           Sox           `toml:"sox"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Diarization   Diarization   `toml:"diarization"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/audioproc/config.toml")
}

// SampleConfig returns the embedded sample configuration document.
// CreateSample writes the annotated sample configuration to target.
func CreateSample(target string) error {
	return os.WriteFile(target, []byte(sampleConfig), 0o644)
}

func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
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

	projectPath, err := filepath.Abs("audioproc.toml")
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

// EnsureDirectories creates the directories a run needs to exist up front.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{
		c.Paths.DataDir,
		c.Paths.ResultsDir,
		c.Paths.LogDir,
		c.Paths.UEMDir,
		c.Paths.EAFDir,
		c.Paths.RTTMDir,
	} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SoxBinary returns the sox executable name.
func (c *Config) SoxBinary() string {
	if strings.TrimSpace(c.Sox.Binary) != "" {
		return c.Sox.Binary
	}
	return "sox"
}

// S3cmdBinary returns the s3cmd executable name.
func (c *Config) S3cmdBinary() string {
	return "s3cmd"
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
