package diarization

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/apartmentlines/audio-processing/internal/services"
	"github.com/apartmentlines/audio-processing/internal/testsupport"
)

func newTestClient(t *testing.T, serverURL, apiKey string) *Client {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Diarization.BaseURL = serverURL
	cfg.Diarization.APIKey = apiKey
	return NewClient(cfg, nil)
}

func TestDiarizeSubmitsJob(t *testing.T) {
	var captured struct {
		auth string
		body diarizeRequest
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/diarize" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		captured.auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured.body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"jobId": "job-42"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "secret-key")
	jobID, err := client.Diarize(context.Background(), "https://endpoint.example.com/audio/7", "https://endpoint.example.com/results/7")
	if err != nil {
		t.Fatalf("Diarize returned error: %v", err)
	}
	if jobID != "job-42" {
		t.Fatalf("unexpected job id %q", jobID)
	}
	if captured.auth != "Bearer secret-key" {
		t.Fatalf("unexpected auth header %q", captured.auth)
	}
	if captured.body.URL != "https://endpoint.example.com/audio/7" {
		t.Fatalf("unexpected url %q", captured.body.URL)
	}
	if captured.body.Webhook != "https://endpoint.example.com/results/7" {
		t.Fatalf("unexpected webhook %q", captured.body.Webhook)
	}
}

func TestDiarizeRetriesAfterRateLimit(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"jobId": "job-9"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "secret-key")
	jobID, err := client.Diarize(context.Background(), "https://e.example.com/audio/1", "https://e.example.com/results/1")
	if err != nil {
		t.Fatalf("Diarize returned error: %v", err)
	}
	if jobID != "job-9" {
		t.Fatalf("unexpected job id %q", jobID)
	}
	if calls.Load() < 2 {
		t.Fatalf("expected a retry after 429, got %d calls", calls.Load())
	}
}

func TestDiarizeAuthFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "wrong-key")
	_, err := client.Diarize(context.Background(), "https://e.example.com/audio/1", "https://e.example.com/results/1")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !services.IsFatal(err) {
		t.Fatal("expected auth failure to be fatal")
	}
}

func TestDiarizeRequiresAPIKey(t *testing.T) {
	client := newTestClient(t, "https://api.example.com", "")
	_, err := client.Diarize(context.Background(), "https://e.example.com/audio/1", "https://e.example.com/results/1")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDiarizeServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "secret-key")
	_, err := client.Diarize(context.Background(), "https://e.example.com/audio/1", "https://e.example.com/results/1")
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if services.IsFatal(err) {
		t.Fatal("expected 400 to be confined to the item")
	}
}
