package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/apartmentlines/audio-processing/internal/config"
	"github.com/apartmentlines/audio-processing/internal/logging"
	"github.com/apartmentlines/audio-processing/internal/pipeline"
	"github.com/apartmentlines/audio-processing/internal/services"
)

var commandContext = exec.CommandContext

// Option configures the S3 fetcher.
type Option func(*S3Fetcher)

// WithForce re-downloads files that already exist locally.
func WithForce(force bool) Option {
	return func(f *S3Fetcher) {
		f.force = force
	}
}

// WithBinary overrides the default s3cmd binary name.
func WithBinary(binary string) Option {
	return func(f *S3Fetcher) {
		if binary != "" {
			f.binary = binary
		}
	}
}

// S3Fetcher downloads recordings from object storage via s3cmd. It satisfies
// pipeline.Fetcher; one download runs at a time because the pipeline owns a
// single fetch worker.
type S3Fetcher struct {
	binary     string
	configPath string
	dataDir    string
	force      bool
	logger     *slog.Logger
}

// NewS3Fetcher constructs a fetcher from configuration.
func NewS3Fetcher(cfg *config.Config, logger *slog.Logger, opts ...Option) *S3Fetcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	f := &S3Fetcher{
		binary:     cfg.S3cmdBinary(),
		configPath: cfg.S3.ConfigPath,
		dataDir:    cfg.Paths.DataDir,
		logger:     logging.NewComponentLogger(logger, "fetch"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads the item's payload into the data directory. An existing
// local copy is reused unless the fetcher was built with WithForce.
func (f *S3Fetcher) Fetch(ctx context.Context, item pipeline.Item) (pipeline.Artifact, error) {
	if strings.TrimSpace(item.URL) == "" {
		return pipeline.Artifact{}, services.Wrap(services.ErrValidation, "fetch", "resolve source", "item has no source url", nil)
	}
	localPath := filepath.Join(f.dataDir, filepath.Base(item.Name))
	if !f.force {
		if info, err := os.Stat(localPath); err == nil && info.Size() > 0 {
			f.logger.Debug("local copy exists, skipping download",
				logging.String(logging.FieldRecordingID, item.Name),
				logging.String("path", localPath))
			return pipeline.Artifact{Item: item, LocalPath: localPath}, nil
		}
	}

	args := []string{"get", "--force"}
	if f.configPath != "" {
		args = append(args, "--config", f.configPath)
	}
	args = append(args, item.URL, localPath)

	cmd := commandContext(ctx, f.binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		removeErr := os.Remove(localPath)
		if removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			f.logger.Warn("failed to remove partial download",
				logging.String("path", localPath), logging.Error(removeErr))
		}
		message := fmt.Sprintf("download %s: %s", item.URL, firstLine(output))
		return pipeline.Artifact{}, services.Wrap(services.ErrExternalTool, "fetch", "s3cmd get", message, err)
	}
	if info, err := os.Stat(localPath); err != nil || info.Size() == 0 {
		return pipeline.Artifact{}, services.Wrap(services.ErrExternalTool, "fetch", "s3cmd get",
			fmt.Sprintf("download %s produced no file", item.URL), err)
	}

	f.logger.Info("downloaded recording",
		logging.String(logging.FieldRecordingID, item.Name),
		logging.String("path", localPath))
	return pipeline.Artifact{Item: item, LocalPath: localPath}, nil
}

func firstLine(output []byte) string {
	text := strings.TrimSpace(string(output))
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	if text == "" {
		return "no output"
	}
	return text
}

var _ pipeline.Fetcher = (*S3Fetcher)(nil)
