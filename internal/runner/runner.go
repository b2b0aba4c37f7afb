package runner

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/apartmentlines/audio-processing/internal/catalog"
	"github.com/apartmentlines/audio-processing/internal/config"
	"github.com/apartmentlines/audio-processing/internal/fetch"
	"github.com/apartmentlines/audio-processing/internal/logging"
	"github.com/apartmentlines/audio-processing/internal/notifications"
	"github.com/apartmentlines/audio-processing/internal/pipeline"
	"github.com/apartmentlines/audio-processing/internal/preflight"
	"github.com/apartmentlines/audio-processing/internal/processing"
	"github.com/apartmentlines/audio-processing/internal/services"
)

// Options controls a single run.
type Options struct {
	// Force re-downloads and re-processes recordings that are already done.
	Force bool
	// Limit caps the number of items taken from the catalog. Zero means all.
	Limit int
	// ItemsFile, when set, names a JSON work list used instead of the catalog.
	ItemsFile string
	// SkipPreflight bypasses environment checks. Tests use this; operators
	// should not.
	SkipPreflight bool
}

// Report is the outcome of a run.
type Report struct {
	RunID   string
	Outcome pipeline.Outcome
	Summary pipeline.Summary
	Elapsed time.Duration
}

// Runner wires the catalog, fetcher, processor, and sink into runs.
type Runner struct {
	cfg      *config.Config
	store    *catalog.Store
	notifier notifications.Service
	logger   *slog.Logger

	fetcher   pipeline.Fetcher
	processor pipeline.Processor

	lockPath string
	lock     *flock.Flock
}

// RunnerOption customizes construction, mainly for tests.
type RunnerOption func(*Runner)

// WithFetcher substitutes the fetch stage.
func WithFetcher(fetcher pipeline.Fetcher) RunnerOption {
	return func(r *Runner) {
		r.fetcher = fetcher
	}
}

// WithProcessor substitutes the processing stage.
func WithProcessor(processor pipeline.Processor) RunnerOption {
	return func(r *Runner) {
		r.processor = processor
	}
}

// New constructs a runner. The notifier may be nil.
func New(cfg *config.Config, store *catalog.Store, notifier notifications.Service, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	lockPath := filepath.Join(cfg.Paths.LogDir, "audioproc-run.lock")
	r := &Runner{
		cfg:      cfg,
		store:    store,
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "run"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one processing run. It returns the report even on
// interruption so callers can map the outcome to an exit code.
func (r *Runner) Run(ctx context.Context, opts Options) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	logger := r.logger.With(logging.String(logging.FieldRunID, report.RunID))
	started := time.Now()

	ok, err := r.lock.TryLock()
	if err != nil {
		return report, services.Wrap(services.ErrConfiguration, "run", "acquire lock", r.lockPath, err)
	}
	if !ok {
		return report, services.Wrap(services.ErrConfiguration, "run", "acquire lock", "another run is already in progress", nil)
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			logger.Warn("failed to release run lock", logging.Error(err))
		}
	}()

	if !opts.SkipPreflight {
		if failed := preflight.Failed(preflight.RunAll(ctx, r.cfg)); len(failed) > 0 {
			details := make([]string, 0, len(failed))
			for _, result := range failed {
				details = append(details, fmt.Sprintf("%s: %s", result.Name, result.Detail))
			}
			return report, services.Wrap(services.ErrConfiguration, "run", "preflight",
				strings.Join(details, "; "), nil)
		}
	}

	items, err := r.loadItems(ctx, opts)
	if err != nil {
		return report, err
	}
	report.Summary.Submitted = len(items)
	if len(items) == 0 {
		logger.Info("nothing to process")
		report.Outcome = pipeline.OutcomeCompleted
		report.Elapsed = time.Since(started)
		return report, nil
	}

	logger.Info("starting run",
		logging.Int("items", len(items)),
		logging.Int("processing_limit", r.cfg.Pipeline.ProcessingLimit),
		logging.Int("download_queue_size", r.cfg.Pipeline.DownloadQueueSize))
	if err := r.notifier.NotifyRunStarted(ctx, len(items)); err != nil {
		logger.Warn("failed to send start notification", logging.Error(err))
	}

	fetcher := r.fetcher
	if fetcher == nil {
		fetcher = fetch.NewS3Fetcher(r.cfg, logger, fetch.WithForce(opts.Force))
	}
	processor := r.processor
	if processor == nil {
		processor = processing.NewSoxProcessor(r.cfg, logger)
	}
	sink := catalog.NewCompletionSink(r.store, logger)

	summary, outcome, err := pipeline.Run(ctx, items, fetcher, processor, sink, pipeline.Config{
		MaxConcurrency: r.cfg.Pipeline.ProcessingLimit,
		BufferCapacity: r.cfg.Pipeline.DownloadQueueSize,
	}, logger)
	report.Summary = summary
	report.Outcome = outcome
	report.Elapsed = time.Since(started)

	r.notifyFinished(ctx, report, logger)
	logger.Info("run finished",
		logging.String("outcome", outcome.String()),
		logging.Int("delivered", summary.Delivered),
		logging.Int("fetch_failed", summary.FetchFailed),
		logging.Int("process_failed", summary.ProcessFailed),
		logging.Int("dropped", summary.Dropped),
		logging.Int("abandoned", summary.Abandoned()),
		logging.Duration("elapsed", report.Elapsed))
	return report, err
}

// notifyFinished sends the end-of-run notification. Interrupt and error
// cases get distinct messages; delivery failures only warn.
func (r *Runner) notifyFinished(ctx context.Context, report Report, logger *slog.Logger) {
	// The parent context may already be canceled when the run was
	// interrupted, so notifications get their own deadline.
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	var err error
	switch report.Outcome {
	case pipeline.OutcomeInterrupted:
		err = r.notifier.NotifyRunInterrupted(notifyCtx, report.Summary.Delivered, report.Summary.Abandoned()+report.Summary.Dropped)
	default:
		failed := report.Summary.FetchFailed + report.Summary.ProcessFailed
		err = r.notifier.NotifyRunCompleted(notifyCtx, report.Summary.Delivered, failed, report.Elapsed)
	}
	if err != nil {
		logger.Warn("failed to send completion notification", logging.Error(err))
	}
}

func (r *Runner) loadItems(ctx context.Context, opts Options) ([]pipeline.Item, error) {
	if opts.ItemsFile != "" {
		items, err := LoadItemsFile(opts.ItemsFile)
		if err != nil {
			return nil, err
		}
		if opts.Limit > 0 && len(items) > opts.Limit {
			items = items[:opts.Limit]
		}
		return items, nil
	}
	if err := r.cfg.RequireS3(); err != nil {
		return nil, err
	}
	return r.catalogItems(ctx, opts.Force, opts.Limit)
}
