package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Pipeline.ProcessingLimit != 3 {
		t.Errorf("processing limit = %d, want 3", cfg.Pipeline.ProcessingLimit)
	}
	if cfg.Pipeline.DownloadQueueSize != 10 {
		t.Errorf("download queue size = %d, want 10", cfg.Pipeline.DownloadQueueSize)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[s3]",
		`bucket = "recordings"`,
		"[pipeline]",
		"processing_limit = 5",
		"download_queue_size = 2",
		"[logging]",
		`level = "debug"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatalf("expected config at %s to be detected", resolved)
	}
	if cfg.S3.Bucket != "recordings" {
		t.Errorf("bucket = %q", cfg.S3.Bucket)
	}
	if cfg.Pipeline.ProcessingLimit != 5 || cfg.Pipeline.DownloadQueueSize != 2 {
		t.Errorf("pipeline limits = %+v", cfg.Pipeline)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadLimits(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero processing limit", func(c *Config) { c.Pipeline.ProcessingLimit = -1 }},
		{"zero queue size", func(c *Config) { c.Pipeline.DownloadQueueSize = -1 }},
		{"negative min free", func(c *Config) { c.Pipeline.MinFreeGiB = -1 }},
		{"bad port", func(c *Config) { c.Diarization.EndpointPort = 70000 }},
		{"bad hostname", func(c *Config) { c.Diarization.EndpointHostname = "not a host" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				t.Fatalf("normalize: %v", err)
			}
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestRequireS3(t *testing.T) {
	cfg := Default()
	if err := cfg.RequireS3(); err == nil {
		t.Fatal("expected missing bucket error")
	}
	cfg.S3.Bucket = "recordings"
	if err := cfg.RequireS3(); err != nil {
		t.Fatalf("RequireS3: %v", err)
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	got, err := ExpandPath("~/audio")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "audio") {
		t.Errorf("ExpandPath = %q", got)
	}
}

func TestSampleConfigNotEmpty(t *testing.T) {
	if !strings.Contains(SampleConfig(), "[pipeline]") {
		t.Error("sample config missing pipeline section")
	}
}
