package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	if err := c.normalizeS3(); err != nil {
		return err
	}
	c.normalizeSox()
	c.normalizePipeline()
	c.normalizeDiarization()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.ResultsDir, err = expandPath(c.Paths.ResultsDir); err != nil {
		return fmt.Errorf("paths.results_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.UEMDir, err = expandPath(c.Paths.UEMDir); err != nil {
		return fmt.Errorf("paths.uem_dir: %w", err)
	}
	if c.Paths.EAFDir, err = expandPath(c.Paths.EAFDir); err != nil {
		return fmt.Errorf("paths.eaf_dir: %w", err)
	}
	if c.Paths.RTTMDir, err = expandPath(c.Paths.RTTMDir); err != nil {
		return fmt.Errorf("paths.rttm_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	var err error
	if strings.TrimSpace(c.Catalog.DBPath) == "" {
		c.Catalog.DBPath = defaultCatalogDBPath
	}
	if c.Catalog.DBPath, err = expandPath(c.Catalog.DBPath); err != nil {
		return fmt.Errorf("catalog.db_path: %w", err)
	}
	if c.Catalog.BatchSize <= 0 {
		c.Catalog.BatchSize = defaultCatalogBatchSize
	}
	return nil
}

func (c *Config) normalizeS3() error {
	var err error
	if strings.TrimSpace(c.S3.ConfigPath) == "" {
		c.S3.ConfigPath = defaultS3ConfigPath
	}
	if c.S3.ConfigPath, err = expandPath(c.S3.ConfigPath); err != nil {
		return fmt.Errorf("s3.config_path: %w", err)
	}
	c.S3.Bucket = strings.TrimSpace(c.S3.Bucket)
	return nil
}

func (c *Config) normalizeSox() {
	if c.Sox.SampleRate <= 0 {
		c.Sox.SampleRate = defaultSoxSampleRate
	}
	if c.Sox.HighpassHz <= 0 {
		c.Sox.HighpassHz = defaultSoxHighpassHz
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.ProcessingLimit == 0 {
		c.Pipeline.ProcessingLimit = defaultProcessingLimit
	}
	if c.Pipeline.DownloadQueueSize == 0 {
		c.Pipeline.DownloadQueueSize = defaultDownloadQueueSize
	}
}

func (c *Config) normalizeDiarization() {
	if strings.TrimSpace(c.Diarization.APIKey) == "" {
		c.Diarization.APIKey = os.Getenv("PYANNOTE_API_KEY")
	}
	if strings.TrimSpace(c.Diarization.BaseURL) == "" {
		c.Diarization.BaseURL = defaultDiarizationBaseURL
	}
	c.Diarization.BaseURL = strings.TrimRight(strings.TrimSpace(c.Diarization.BaseURL), "/")
	if c.Diarization.EndpointPort == 0 {
		c.Diarization.EndpointPort = defaultDiarizationPort
	}
	c.Diarization.EndpointHostname = strings.TrimSpace(c.Diarization.EndpointHostname)
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
}
