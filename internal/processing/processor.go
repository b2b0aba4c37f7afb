package processing

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/apartmentlines/audio-processing/internal/config"
	"github.com/apartmentlines/audio-processing/internal/logging"
	"github.com/apartmentlines/audio-processing/internal/pipeline"
	"github.com/apartmentlines/audio-processing/internal/services"
)

var commandContext = exec.CommandContext

// compandArgs matches the telephony cleanup chain used for all customer
// recordings: soft-knee companding tuned for 8k/16k phone audio.
var compandArgs = []string{"compand", "0.02,0.20", "5:-60,-40,-10", "-5", "-90", "0.1"}

// Option configures the sox processor.
type Option func(*SoxProcessor)

// WithBinary overrides the sox binary name.
func WithBinary(binary string) Option {
	return func(p *SoxProcessor) {
		if binary != "" {
			p.binary = binary
		}
	}
}

// SoxProcessor normalizes a downloaded recording with sox: resample,
// normalize, highpass, then compand. The processed audio replaces the
// download under the same path, so a recording is processed at most once
// per fetch. SoxProcessor satisfies pipeline.Processor and is safe for
// concurrent use; the pipeline caps how many run at once.
type SoxProcessor struct {
	binary     string
	sampleRate int
	highpassHz int
	logger     *slog.Logger
}

// NewSoxProcessor constructs a processor from configuration.
func NewSoxProcessor(cfg *config.Config, logger *slog.Logger, opts ...Option) *SoxProcessor {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &SoxProcessor{
		binary:     cfg.SoxBinary(),
		sampleRate: cfg.Sox.SampleRate,
		highpassHz: cfg.Sox.HighpassHz,
		logger:     logging.NewComponentLogger(logger, "processing"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the sox chain against the artifact in place. Sox writes to a
// partial file first; the rename happens only on success, so an interrupted
// or failed run never leaves a truncated wav under the recording's name.
func (p *SoxProcessor) Process(ctx context.Context, artifact pipeline.Artifact) (pipeline.Result, error) {
	if artifact.LocalPath == "" {
		return pipeline.Result{}, services.Wrap(services.ErrValidation, "processing", "resolve input", "artifact has no local path", nil)
	}
	started := time.Now()

	partialPath := artifact.LocalPath + ".partial.wav"

	args := []string{artifact.LocalPath, partialPath}
	args = append(args, "rate", rateArg(p.sampleRate))
	args = append(args, "norm")
	args = append(args, "highpass", strconv.Itoa(p.highpassHz))
	args = append(args, compandArgs...)

	cmd := commandContext(ctx, p.binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(partialPath)
		message := fmt.Sprintf("process %s: %s", artifact.Item.Name, firstLine(output))
		return pipeline.Result{}, services.Wrap(services.ErrExternalTool, "processing", "sox", message, err)
	}
	if err := os.Rename(partialPath, artifact.LocalPath); err != nil {
		_ = os.Remove(partialPath)
		return pipeline.Result{}, services.Wrap(services.ErrExternalTool, "processing", "finalize output", artifact.LocalPath, err)
	}

	elapsed := time.Since(started)
	p.logger.Info("processed recording",
		logging.String(logging.FieldRecordingID, artifact.Item.Name),
		logging.String("output", artifact.LocalPath),
		logging.Duration("elapsed", elapsed))
	return pipeline.Result{Item: artifact.Item, OutputPath: artifact.LocalPath, Elapsed: elapsed}, nil
}

// rateArg renders sample rates the way sox expects them, using the short
// form for whole kilohertz values.
func rateArg(rate int) string {
	if rate > 0 && rate%1000 == 0 {
		return strconv.Itoa(rate/1000) + "k"
	}
	if rate <= 0 {
		return "16k"
	}
	return strconv.Itoa(rate)
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

var _ pipeline.Processor = (*SoxProcessor)(nil)
