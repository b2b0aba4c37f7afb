package diarization

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apartmentlines/audio-processing/internal/catalog"
	"github.com/apartmentlines/audio-processing/internal/services"
	"github.com/apartmentlines/audio-processing/internal/testsupport"
)

type fakeJobClient struct {
	submit func(ctx context.Context, audioURL, webhookURL string) (string, error)
}

func (f *fakeJobClient) Diarize(ctx context.Context, audioURL, webhookURL string) (string, error) {
	return f.submit(ctx, audioURL, webhookURL)
}

func TestSubmitterRunSubmitsAndWaits(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Diarization.EndpointHostname = "endpoint.example.com"
	cfg.Diarization.EndpointPort = 0

	source := &fakeSource{recordings: map[int64]*catalog.Recording{
		1: {ID: 1, MasterID: 10, Filename: "one.wav"},
		2: {ID: 2, MasterID: 10, Filename: "two.wav"},
	}}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DataDir, "one.wav"), 32)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DataDir, "two.wav"), 32)

	var submitter *Submitter
	client := &fakeJobClient{submit: func(ctx context.Context, audioURL, webhookURL string) (string, error) {
		if !strings.HasPrefix(audioURL, "https://endpoint.example.com/audio/") {
			t.Errorf("unexpected audio url %q", audioURL)
		}
		id := strings.TrimPrefix(webhookURL, "https://endpoint.example.com/results/")
		// Deliver results the way the API would: over the webhook.
		go func() {
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				resp, err := http.Post(
					fmt.Sprintf("http://%s/results/%s", submitter.server.Addr(), id),
					"application/json", bytes.NewReader(validPayload()))
				if err == nil {
					resp.Body.Close()
					if resp.StatusCode == http.StatusOK {
						return
					}
				}
				time.Sleep(10 * time.Millisecond)
			}
		}()
		return "job-" + id, nil
	}}

	submitter = NewSubmitter(cfg, source, client, nil)
	summary, err := submitter.Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Candidates != 2 || summary.Submitted != 2 || summary.Skipped != 0 || summary.Failed != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestSubmitterSkipsExistingResults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Diarization.EndpointHostname = "endpoint.example.com"
	cfg.Diarization.EndpointPort = 0

	source := &fakeSource{recordings: map[int64]*catalog.Recording{
		1: {ID: 1, MasterID: 10, Filename: "one.wav"},
	}}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DataDir, "one.wav"), 32)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.ResultsDir, "one.json"), 32)

	client := &fakeJobClient{submit: func(context.Context, string, string) (string, error) {
		t.Error("expected no submission for recording with existing results")
		return "", nil
	}}

	summary, err := NewSubmitter(cfg, source, client, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Skipped != 1 || summary.Submitted != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestSubmitterSkipsMissingAudio(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Diarization.EndpointHostname = "endpoint.example.com"
	cfg.Diarization.EndpointPort = 0

	source := &fakeSource{recordings: map[int64]*catalog.Recording{
		1: {ID: 1, MasterID: 10, Filename: "absent.wav"},
	}}

	client := &fakeJobClient{submit: func(context.Context, string, string) (string, error) {
		t.Error("expected no submission for missing audio")
		return "", nil
	}}

	summary, err := NewSubmitter(cfg, source, client, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Skipped != 1 || summary.Submitted != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestSubmitterCountsFailedSubmissions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Diarization.EndpointHostname = "endpoint.example.com"
	cfg.Diarization.EndpointPort = 0

	source := &fakeSource{recordings: map[int64]*catalog.Recording{
		1: {ID: 1, MasterID: 10, Filename: "one.wav"},
	}}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DataDir, "one.wav"), 32)

	client := &fakeJobClient{submit: func(context.Context, string, string) (string, error) {
		return "", services.Wrap(services.ErrTransient, "diarization", "submit job", "status 500", nil)
	}}

	summary, err := NewSubmitter(cfg, source, client, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.Failed != 1 || summary.Submitted != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestSubmitterAbortsOnFatalError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Diarization.EndpointHostname = "endpoint.example.com"
	cfg.Diarization.EndpointPort = 0

	source := &fakeSource{recordings: map[int64]*catalog.Recording{
		1: {ID: 1, MasterID: 10, Filename: "one.wav"},
	}}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DataDir, "one.wav"), 32)

	client := &fakeJobClient{submit: func(context.Context, string, string) (string, error) {
		return "", services.Wrap(services.ErrConfiguration, "diarization", "submit job", "authentication rejected (401)", nil)
	}}

	_, err := NewSubmitter(cfg, source, client, nil).Run(context.Background())
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSubmitterWaitHonorsContext(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Diarization.EndpointHostname = "endpoint.example.com"
	cfg.Diarization.EndpointPort = 0

	source := &fakeSource{recordings: map[int64]*catalog.Recording{
		1: {ID: 1, MasterID: 10, Filename: "one.wav"},
	}}
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.DataDir, "one.wav"), 32)

	// The job is submitted but results never arrive.
	client := &fakeJobClient{submit: func(context.Context, string, string) (string, error) {
		return "job-1", nil
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	summary, err := NewSubmitter(cfg, source, client, nil).Run(ctx)
	if err == nil {
		t.Fatal("expected context error waiting for results")
	}
	if summary.Submitted != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
