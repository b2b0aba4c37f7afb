package diarization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/apartmentlines/audio-processing/internal/catalog"
	"github.com/apartmentlines/audio-processing/internal/config"
	"github.com/apartmentlines/audio-processing/internal/logging"
)

// maxWebhookBody bounds the size of an accepted diarization document.
const maxWebhookBody = 8 << 20

// RecordingSource resolves recording IDs for endpoint requests.
type RecordingSource interface {
	GetByID(ctx context.Context, id int64) (*catalog.Recording, error)
}

// Server hosts the local endpoint the diarization API calls back into:
// GET /audio/<id> serves the processed recording, POST /results/<id>
// receives the finished diarization.
type Server struct {
	bind       string
	dataDir    string
	resultsDir string
	source     RecordingSource
	tracker    *Tracker
	logger     *slog.Logger

	listener net.Listener
	server   *http.Server
}

// NewServer constructs the endpoint server. The tracker may be nil when the
// server is used standalone.
func NewServer(cfg *config.Config, source RecordingSource, tracker *Tracker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	srv := &Server{
		bind:       fmt.Sprintf(":%d", cfg.Diarization.EndpointPort),
		dataDir:    cfg.Paths.DataDir,
		resultsDir: cfg.Paths.ResultsDir,
		source:     source,
		tracker:    tracker,
		logger:     logging.NewComponentLogger(logger, "webhook"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/audio/", srv.handleAudio)
	mux.HandleFunc("/results/", srv.handleResults)

	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Start binds the listener and serves in the background until the context
// ends. It returns once the listener is accepting connections, so callers
// can submit jobs immediately afterwards.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("webhook listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("webhook server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("webhook server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound listener address, or empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, letting in-flight deliveries finish.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	recording, ok := s.lookupRecording(w, r, "/audio/")
	if !ok {
		return
	}
	path := filepath.Join(s.dataDir, recording.Filename)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		s.logger.Error("audio file not found", logging.String("path", path))
		s.writeError(w, http.StatusNotFound, "audio file not found")
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeFile(w, r, path)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	recording, ok := s.lookupRecording(w, r, "/results/")
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read body")
		return
	}
	payload, err := ParsePayload(body)
	if err != nil {
		s.logger.Error("invalid diarization payload",
			logging.Int64(logging.FieldRecordingID, recording.ID),
			logging.Error(err))
		s.writeError(w, http.StatusBadRequest, "invalid diarization payload")
		return
	}

	resultsPath := filepath.Join(s.resultsDir, recording.Stem()+".json")
	if err := writeResult(resultsPath, payload); err != nil {
		s.logger.Error("failed to save diarization results",
			logging.Int64(logging.FieldRecordingID, recording.ID),
			logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to save results")
		return
	}

	if s.tracker != nil {
		s.tracker.Resolve(recording.ID)
	}
	s.logger.Info("received diarization results",
		logging.Int64(logging.FieldRecordingID, recording.ID),
		logging.String("path", resultsPath))
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func (s *Server) lookupRecording(w http.ResponseWriter, r *http.Request, prefix string) (*catalog.Recording, bool) {
	idStr := strings.TrimPrefix(r.URL.Path, prefix)
	if idStr == "" || strings.Contains(idStr, "/") {
		s.writeError(w, http.StatusNotFound, "recording not found")
		return nil, false
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid recording id")
		return nil, false
	}
	recording, err := s.source.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if recording == nil {
		s.writeError(w, http.StatusNotFound, "recording not found")
		return nil, false
	}
	return recording, true
}

func writeResult(path string, payload *Payload) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(payload, "", "    ")
	if err != nil {
		return err
	}
	tmp := path + ".partial"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
