package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/apartmentlines/audio-processing/internal/config"
	"github.com/apartmentlines/audio-processing/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyRunStarted(context.Background(), 5); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "run started",
			notify: func(svc notifications.Service) error {
				return svc.NotifyRunStarted(context.Background(), 12)
			},
			expectTitle:   "Audioproc - Run Started",
			expectMessage: "Started processing 12 recordings",
			expectTags:    "audioproc,run,started",
		},
		{
			name: "run completed clean",
			notify: func(svc notifications.Service) error {
				return svc.NotifyRunCompleted(context.Background(), 12, 0, 90*time.Second)
			},
			expectTitle:   "Audioproc - Run Complete",
			expectMessage: "Run complete: 12 recordings processed in 1m30s",
			expectTags:    "audioproc,run,completed",
		},
		{
			name: "run completed with failures",
			notify: func(svc notifications.Service) error {
				return svc.NotifyRunCompleted(context.Background(), 10, 2, time.Minute)
			},
			expectTitle:   "Audioproc - Run Complete (with errors)",
			expectMessage: "Run complete: 10 succeeded, 2 failed in 1m0s",
			expectTags:    "audioproc,run,completed",
		},
		{
			name: "run interrupted",
			notify: func(svc notifications.Service) error {
				return svc.NotifyRunInterrupted(context.Background(), 4, 8)
			},
			expectTitle:    "Audioproc - Run Interrupted",
			expectMessage:  "Run interrupted: 4 processed, 8 abandoned",
			expectTags:     "audioproc,run,interrupted",
			expectPriority: "high",
		},
		{
			name: "diarization submitted",
			notify: func(svc notifications.Service) error {
				return svc.NotifyDiarizationSubmitted(context.Background(), 7)
			},
			expectTitle:   "Audioproc - Diarization Submitted",
			expectMessage: "Submitted 7 diarization jobs",
			expectTags:    "audioproc,diarization,submitted",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("download failed"), "fetch")
			},
			expectTitle:    "Audioproc - Error",
			expectMessage:  "Error with fetch: download failed",
			expectTags:     "audioproc,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
