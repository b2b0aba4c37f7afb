package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/apartmentlines/audio-processing/internal/config"
	"github.com/apartmentlines/audio-processing/internal/logging"
)

// newRunLogger builds a logger that writes to stdout and a timestamped file
// under the configured log directory.
func newRunLogger(cfg *config.Config, name string) (*slog.Logger, string, error) {
	stamp := time.Now().UTC().Format("20060102T150405Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("%s-%s.log", name, stamp))
	logger, err := logging.New(logging.Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      []string{"stdout", logPath},
		ErrorOutputPaths: []string{"stderr", logPath},
	})
	if err != nil {
		return nil, "", fmt.Errorf("init logger: %w", err)
	}
	return logger, logPath, nil
}
