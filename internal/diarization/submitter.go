package diarization

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/apartmentlines/audio-processing/internal/catalog"
	"github.com/apartmentlines/audio-processing/internal/config"
	"github.com/apartmentlines/audio-processing/internal/logging"
	"github.com/apartmentlines/audio-processing/internal/services"
)

// Catalog is the slice of the recording store the submitter needs.
type Catalog interface {
	RecordingSource
	PendingEAF(ctx context.Context, batchSize, limit int) ([]catalog.Recording, error)
}

// JobClient submits diarization jobs. Satisfied by *Client.
type JobClient interface {
	Diarize(ctx context.Context, audioURL, webhookURL string) (string, error)
}

// Summary reports what a submission run did.
type Summary struct {
	Candidates int
	Submitted  int
	Skipped    int
	Failed     int
}

// SubmitterOption configures a submission run.
type SubmitterOption func(*Submitter)

// WithForce resubmits recordings whose results already exist on disk.
func WithForce(force bool) SubmitterOption {
	return func(s *Submitter) {
		s.force = force
	}
}

// WithLimit caps how many recordings are submitted. Zero means no cap.
func WithLimit(limit int) SubmitterOption {
	return func(s *Submitter) {
		s.limit = limit
	}
}

// Submitter drives one submission run: it serves the local endpoint,
// submits a job per pending recording, and waits for every webhook
// delivery before reporting.
type Submitter struct {
	store    Catalog
	client   JobClient
	tracker  *Tracker
	server   *Server
	hostname string

	dataDir    string
	resultsDir string
	batchSize  int
	force      bool
	limit      int

	logger *slog.Logger
}

// NewSubmitter wires a submitter from configuration. The server shares the
// submitter's tracker so webhook deliveries resolve outstanding jobs.
func NewSubmitter(cfg *config.Config, store Catalog, client JobClient, logger *slog.Logger, opts ...SubmitterOption) *Submitter {
	if logger == nil {
		logger = logging.NewNop()
	}
	tracker := NewTracker()
	s := &Submitter{
		store:      store,
		client:     client,
		tracker:    tracker,
		server:     NewServer(cfg, store, tracker, logger),
		hostname:   cfg.Diarization.EndpointHostname,
		dataDir:    cfg.Paths.DataDir,
		resultsDir: cfg.Paths.ResultsDir,
		batchSize:  cfg.Catalog.BatchSize,
		logger:     logging.NewComponentLogger(logger, "diarization"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run submits diarization jobs for every recording still awaiting
// annotation, then blocks until all results have been delivered or the
// context ends. An interrupted wait returns the context error along with
// the summary accumulated so far.
func (s *Submitter) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	recordings, err := s.store.PendingEAF(ctx, s.batchSize, s.limit)
	if err != nil {
		return summary, services.Wrap(services.ErrTransient, "diarization", "fetch recordings", "", err)
	}
	summary.Candidates = len(recordings)
	s.logger.Info("fetched pending recordings", logging.Int("count", len(recordings)))

	if err := s.server.Start(ctx); err != nil {
		return summary, services.Wrap(services.ErrConfiguration, "diarization", "start webhook server", "", err)
	}
	defer s.server.Stop()

	for _, recording := range recordings {
		if err := ctx.Err(); err != nil {
			s.tracker.Seal()
			return summary, err
		}
		if s.shouldSkip(recording) {
			summary.Skipped++
			continue
		}
		audioURL := fmt.Sprintf("https://%s/audio/%d", s.hostname, recording.ID)
		webhookURL := fmt.Sprintf("https://%s/results/%d", s.hostname, recording.ID)

		jobID, err := s.client.Diarize(ctx, audioURL, webhookURL)
		if err != nil {
			if services.IsFatal(err) {
				s.tracker.Seal()
				return summary, err
			}
			summary.Failed++
			s.logger.Error("failed to submit diarization job",
				logging.Int64(logging.FieldRecordingID, recording.ID),
				logging.String("filename", recording.Filename),
				logging.Error(err))
			continue
		}
		s.tracker.Add(recording.ID, recording.Filename)
		summary.Submitted++
		s.logger.Info("submitted diarization job",
			logging.Int64(logging.FieldRecordingID, recording.ID),
			logging.String("filename", recording.Filename),
			logging.String("job_id", jobID))
	}
	s.tracker.Seal()

	if summary.Submitted > 0 {
		s.logger.Info("waiting for diarization results", logging.Int("outstanding", summary.Submitted))
	}
	if err := s.tracker.Wait(ctx); err != nil {
		s.logger.Warn("stopped waiting for diarization results",
			logging.Int("outstanding", len(s.tracker.Outstanding())),
			logging.Error(err))
		return summary, err
	}
	return summary, nil
}

// shouldSkip mirrors the submit-side idempotency rules: existing results
// win unless force is set, and a recording with no local audio cannot be
// served to the API.
func (s *Submitter) shouldSkip(recording catalog.Recording) bool {
	resultsPath := filepath.Join(s.resultsDir, recording.Stem()+".json")
	if _, err := os.Stat(resultsPath); err == nil && !s.force {
		s.logger.Info("diarization results already exist, skipping",
			logging.Int64(logging.FieldRecordingID, recording.ID),
			logging.String("filename", recording.Filename))
		return true
	}

	audioPath := filepath.Join(s.dataDir, recording.Filename)
	if info, err := os.Stat(audioPath); err != nil || info.IsDir() {
		s.logger.Error("audio file not found, skipping",
			logging.Int64(logging.FieldRecordingID, recording.ID),
			logging.String("path", audioPath))
		return true
	}
	return false
}
