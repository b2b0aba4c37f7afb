package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apartmentlines/audio-processing/internal/logging"
	"github.com/apartmentlines/audio-processing/internal/services"
)

// Config bounds a pipeline run.
type Config struct {
	// MaxConcurrency bounds simultaneous Process calls.
	MaxConcurrency int
	// BufferCapacity bounds the fetched-but-unprocessed backlog.
	BufferCapacity int
}

func (c Config) validate() error {
	if c.MaxConcurrency < 1 {
		return services.Wrap(services.ErrConfiguration, "pipeline", "",
			fmt.Sprintf("max concurrency must be at least 1, got %d", c.MaxConcurrency), nil)
	}
	if c.BufferCapacity < 1 {
		return services.Wrap(services.ErrConfiguration, "pipeline", "",
			fmt.Sprintf("buffer capacity must be at least 1, got %d", c.BufferCapacity), nil)
	}
	return nil
}

// Pipeline coordinates the fetch, processing, and post-processing stages.
// A Pipeline is reusable but runs must not overlap.
type Pipeline struct {
	cfg       Config
	fetcher   Fetcher
	processor Processor
	sink      Sink
	logger    *slog.Logger
}

// New validates the configuration and constructs a pipeline. Configuration
// errors are fatal: no stage ever starts.
func New(cfg Config, fetcher Fetcher, processor Processor, sink Sink, logger *slog.Logger) (*Pipeline, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if fetcher == nil || processor == nil || sink == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "", "fetcher, processor, and sink are required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		cfg:       cfg,
		fetcher:   fetcher,
		processor: processor,
		sink:      sink,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}, nil
}

// Run executes one pass over items and blocks until every stage has drained.
// Cancelling ctx stops new work from being admitted; tasks already dispatched
// run to completion before Run returns, so an interrupted run never leaves a
// processing subprocess mid-flight.
func Run(ctx context.Context, items []Item, fetcher Fetcher, processor Processor, sink Sink, cfg Config, logger *slog.Logger) (Summary, Outcome, error) {
	p, err := New(cfg, fetcher, processor, sink, logger)
	if err != nil {
		return Summary{}, OutcomeFailed, err
	}
	return p.Run(ctx, items)
}

// Run executes one pass over items. See the package-level Run for semantics.
func (p *Pipeline) Run(ctx context.Context, items []Item) (Summary, Outcome, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		p:      p,
		ctx:    runCtx,
		cancel: cancel,
		staged: make(chan Artifact, p.cfg.BufferCapacity),
		// Sized so every in-flight task can park one result without blocking.
		// A persistently slow sink then applies the same backpressure the
		// staging buffer does upstream.
		results: make(chan Result, p.cfg.MaxConcurrency),
	}

	work := make(chan Item, len(items))
	for _, item := range items {
		work <- item
	}
	close(work)

	p.logger.Info("pipeline run started",
		logging.Int("items", len(items)),
		logging.Int("max_concurrency", p.cfg.MaxConcurrency),
		logging.Int("buffer_capacity", p.cfg.BufferCapacity),
		logging.String(logging.FieldEventType, "pipeline_start"),
	)

	go r.fetchLoop(work)

	var workers sync.WaitGroup
	workers.Add(p.cfg.MaxConcurrency)
	for i := 0; i < p.cfg.MaxConcurrency; i++ {
		go func() {
			defer workers.Done()
			r.processLoop()
		}()
	}

	go func() {
		workers.Wait()
		// Anything still staged after the pool exits was abandoned by
		// shutdown; account for it before signaling the post-processor.
		for artifact := range r.staged {
			r.dropped.Add(1)
			p.logger.Warn("dropping staged artifact on shutdown",
				logging.Int64(logging.FieldRecordingID, artifact.Item.ID),
				logging.String("name", artifact.Item.Name),
				logging.String(logging.FieldEventType, "artifact_dropped"),
			)
		}
		close(r.results)
	}()

	sinkDone := make(chan struct{})
	go func() {
		defer close(sinkDone)
		r.sinkLoop()
	}()

	<-sinkDone

	summary := r.summary(len(items))
	outcome, err := r.outcome(ctx)
	p.logger.Info("pipeline run finished",
		logging.String("outcome", outcome.String()),
		logging.Int("delivered", summary.Delivered),
		logging.Int("fetch_failed", summary.FetchFailed),
		logging.Int("process_failed", summary.ProcessFailed),
		logging.Int("dropped", summary.Dropped),
		logging.Int("abandoned", summary.Abandoned()),
		logging.String(logging.FieldEventType, "pipeline_finish"),
	)
	return summary, outcome, err
}

// run holds the mutable state of a single pipeline pass.
type run struct {
	p      *Pipeline
	ctx    context.Context
	cancel context.CancelFunc

	staged  chan Artifact
	results chan Result

	active        atomic.Int64
	fetched       atomic.Int64
	fetchFailed   atomic.Int64
	processed     atomic.Int64
	processFailed atomic.Int64
	delivered     atomic.Int64
	dropped       atomic.Int64

	failOnce sync.Once
	failErr  atomic.Pointer[error]
}

// fail records the first fatal fault and aborts the run. Later calls are
// no-ops so concurrent stages cannot clobber the original cause.
func (r *run) fail(err error) {
	r.failOnce.Do(func() {
		r.failErr.Store(&err)
		r.cancel()
	})
}

func (r *run) failure() error {
	if p := r.failErr.Load(); p != nil {
		return *p
	}
	return nil
}

// fetchLoop is the sole producer for the staging channel; closing it is the
// termination signal for the processing pool.
func (r *run) fetchLoop(work <-chan Item) {
	defer close(r.staged)
	logger := logging.NewComponentLogger(r.p.logger, "fetch")
	for {
		var item Item
		var ok bool
		select {
		case <-r.ctx.Done():
			return
		case item, ok = <-work:
			if !ok {
				logger.Debug("work queue exhausted")
				return
			}
		}

		artifact, err := r.p.fetcher.Fetch(r.ctx, item)
		if err != nil {
			r.fetchFailed.Add(1)
			logger.Warn("fetch failed; skipping item",
				logging.Int64(logging.FieldRecordingID, item.ID),
				logging.String("name", item.Name),
				logging.String("url", item.URL),
				logging.Error(err),
				logging.String(logging.FieldEventType, "fetch_failed"),
			)
			continue
		}
		r.fetched.Add(1)
		logger.Debug("fetched item",
			logging.Int64(logging.FieldRecordingID, item.ID),
			logging.String("name", item.Name),
		)

		// Blocks when the staging buffer is full: the backpressure boundary.
		select {
		case r.staged <- artifact:
		case <-r.ctx.Done():
			r.dropped.Add(1)
			logger.Warn("shutdown while staging artifact; dropping",
				logging.Int64(logging.FieldRecordingID, item.ID),
				logging.String("name", item.Name),
				logging.String(logging.FieldEventType, "artifact_dropped"),
			)
			return
		}
	}
}

func (r *run) processLoop() {
	for {
		// Re-check cancellation before admitting another item so a worker
		// that just finished a task does not race the closed context.
		select {
		case <-r.ctx.Done():
			return
		default:
		}

		select {
		case <-r.ctx.Done():
			return
		case artifact, ok := <-r.staged:
			if !ok {
				return
			}
			r.processOne(artifact)
		}
	}
}

func (r *run) processOne(artifact Artifact) {
	logger := logging.NewComponentLogger(r.p.logger, "process")

	active := r.active.Add(1)
	defer r.active.Add(-1)
	if active > int64(r.p.cfg.MaxConcurrency) {
		r.fail(services.Wrap(services.ErrInvariant, "pipeline", "process",
			fmt.Sprintf("%d tasks active with a limit of %d", active, r.p.cfg.MaxConcurrency), nil))
		return
	}

	// In-flight work survives cancellation: the processing call gets a
	// context detached from the shutdown signal so an external subprocess is
	// never killed halfway through rewriting a file.
	started := time.Now()
	result, err := r.p.processor.Process(context.WithoutCancel(r.ctx), artifact)
	if err != nil {
		r.processFailed.Add(1)
		logger.Warn("processing failed; skipping item",
			logging.Int64(logging.FieldRecordingID, artifact.Item.ID),
			logging.String("name", artifact.Item.Name),
			logging.Error(err),
			logging.String(logging.FieldEventType, "process_failed"),
		)
		return
	}
	if result.Elapsed == 0 {
		result.Elapsed = time.Since(started)
	}
	r.processed.Add(1)
	logger.Debug("processed item",
		logging.Int64(logging.FieldRecordingID, artifact.Item.ID),
		logging.String("name", artifact.Item.Name),
		logging.Duration("elapsed", result.Elapsed),
	)
	r.results <- result
}

// sinkLoop drains results in completion order until the pool signals that no
// further results will arrive.
func (r *run) sinkLoop() {
	logger := logging.NewComponentLogger(r.p.logger, "postprocess")
	for result := range r.results {
		if err := r.p.sink.Accept(context.WithoutCancel(r.ctx), result); err != nil {
			logger.Warn("post-processing sink rejected result",
				logging.Int64(logging.FieldRecordingID, result.Item.ID),
				logging.String("name", result.Item.Name),
				logging.Error(err),
				logging.String(logging.FieldEventType, "sink_failed"),
			)
		}
		r.delivered.Add(1)
	}
	logger.Debug("post-processing queue drained")
}

func (r *run) summary(submitted int) Summary {
	return Summary{
		Submitted:     submitted,
		Fetched:       int(r.fetched.Load()),
		FetchFailed:   int(r.fetchFailed.Load()),
		Processed:     int(r.processed.Load()),
		ProcessFailed: int(r.processFailed.Load()),
		Delivered:     int(r.delivered.Load()),
		Dropped:       int(r.dropped.Load()),
	}
}

func (r *run) outcome(parent context.Context) (Outcome, error) {
	if err := r.failure(); err != nil {
		return OutcomeFailed, err
	}
	if parent.Err() != nil {
		return OutcomeInterrupted, nil
	}
	return OutcomeCompleted, nil
}
