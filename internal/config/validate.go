package config

import (
	"errors"
	"fmt"
	"regexp"
)

var hostnameRegex = regexp.MustCompile(
	`^(?:[0-9A-Za-z](?:[0-9A-Za-z-]{0,61}[0-9A-Za-z])?\.)+[A-Za-z]{2,63}$`,
)

// Validate ensures the configuration is usable. Pipeline limits are the
// configuration-error class that must fail before any stage starts.
func (c *Config) Validate() error {
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateDiarization(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.ProcessingLimit < 1 {
		return fmt.Errorf("pipeline.processing_limit must be at least 1, got %d", c.Pipeline.ProcessingLimit)
	}
	if c.Pipeline.DownloadQueueSize < 1 {
		return fmt.Errorf("pipeline.download_queue_size must be at least 1, got %d", c.Pipeline.DownloadQueueSize)
	}
	if c.Pipeline.MinFreeGiB < 0 {
		return errors.New("pipeline.min_free_gib must not be negative")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.DBPath == "" {
		return errors.New("catalog.db_path must be set")
	}
	if c.Catalog.BatchSize < 1 {
		return fmt.Errorf("catalog.batch_size must be at least 1, got %d", c.Catalog.BatchSize)
	}
	return nil
}

func (c *Config) validateDiarization() error {
	if c.Diarization.EndpointPort < 1 || c.Diarization.EndpointPort > 65535 {
		return fmt.Errorf("diarization.endpoint_port out of range: %d", c.Diarization.EndpointPort)
	}
	if c.Diarization.EndpointHostname != "" && !hostnameRegex.MatchString(c.Diarization.EndpointHostname) {
		return fmt.Errorf("diarization.endpoint_hostname is not a valid hostname: %q", c.Diarization.EndpointHostname)
	}
	return nil
}

// RequireS3 verifies the settings the fetch stage depends on. Commands that
// download recordings call this on top of Validate.
func (c *Config) RequireS3() error {
	if c.S3.Bucket == "" {
		return errors.New("s3.bucket is required; set it in the config file or with --bucket")
	}
	return nil
}

// RequireDiarization verifies the settings job submission depends on.
func (c *Config) RequireDiarization() error {
	if c.Diarization.APIKey == "" {
		return errors.New("diarization.api_key is required; set it or export PYANNOTE_API_KEY")
	}
	if c.Diarization.EndpointHostname == "" {
		return errors.New("diarization.endpoint_hostname is required for webhook callbacks")
	}
	return nil
}
