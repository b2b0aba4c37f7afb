package diarization

import (
	"errors"
	"testing"

	"github.com/apartmentlines/audio-processing/internal/services"
)

func TestParsePayloadAcceptsValidDocument(t *testing.T) {
	body := []byte(`{
		"jobId": "job-123",
		"status": "succeeded",
		"output": {
			"diarization": [
				{"speaker": "SPEAKER_00", "start": 0.5, "end": 2.25},
				{"speaker": "SPEAKER_01", "start": 2.25, "end": 4.0}
			]
		}
	}`)

	payload, err := ParsePayload(body)
	if err != nil {
		t.Fatalf("ParsePayload returned error: %v", err)
	}
	if payload.JobID != "job-123" {
		t.Fatalf("unexpected job id %q", payload.JobID)
	}
	if len(payload.Output.Diarization) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(payload.Output.Diarization))
	}
}

func TestParsePayloadAcceptsEmptySegmentList(t *testing.T) {
	body := []byte(`{"jobId": "job-1", "status": "succeeded", "output": {"diarization": []}}`)
	if _, err := ParsePayload(body); err != nil {
		t.Fatalf("expected empty segment list to validate, got %v", err)
	}
}

func TestParsePayloadRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{{`},
		{"wrong segment types", `{"jobId":"j","status":"ok","output":{"diarization":[{"speaker":1,"start":0,"end":1}]}}`},
		{"missing job id", `{"status":"ok","output":{"diarization":[]}}`},
		{"missing status", `{"jobId":"j","output":{"diarization":[]}}`},
		{"missing output", `{"jobId":"j","status":"ok"}`},
		{"missing diarization", `{"jobId":"j","status":"ok","output":{}}`},
		{"missing speaker", `{"jobId":"j","status":"ok","output":{"diarization":[{"start":0,"end":1}]}}`},
		{"start equals end", `{"jobId":"j","status":"ok","output":{"diarization":[{"speaker":"A","start":1,"end":1}]}}`},
		{"start after end", `{"jobId":"j","status":"ok","output":{"diarization":[{"speaker":"A","start":2,"end":1}]}}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePayload([]byte(tc.body))
			if !errors.Is(err, services.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
