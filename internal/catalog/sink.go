package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/apartmentlines/audio-processing/internal/logging"
	"github.com/apartmentlines/audio-processing/internal/pipeline"
)

// CompletionSink records pipeline results back into the catalog by stamping
// each recording's processed time.
type CompletionSink struct {
	store  *Store
	logger *slog.Logger
}

// NewCompletionSink builds a sink writing completion stamps to store.
func NewCompletionSink(store *Store, logger *slog.Logger) *CompletionSink {
	return &CompletionSink{
		store:  store,
		logger: logging.NewComponentLogger(logger, "catalog"),
	}
}

// Accept implements pipeline.Sink.
func (s *CompletionSink) Accept(ctx context.Context, result pipeline.Result) error {
	if err := s.store.MarkProcessed(ctx, result.Item.ID, time.Now()); err != nil {
		return err
	}
	s.logger.Info("recording processed",
		logging.Int64(logging.FieldRecordingID, result.Item.ID),
		logging.String("name", result.Item.Name),
		logging.String("output", result.OutputPath),
		logging.Duration("elapsed", result.Elapsed),
	)
	return nil
}
