package diarization

import (
	"encoding/json"
	"fmt"

	"github.com/apartmentlines/audio-processing/internal/services"
)

// Segment is one speaker turn in a diarization result.
type Segment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Output holds the diarization body of a webhook payload.
type Output struct {
	Diarization []Segment `json:"diarization"`
}

// Payload is the document pyannote.ai posts to the results webhook.
type Payload struct {
	JobID  string  `json:"jobId"`
	Status string  `json:"status"`
	Output *Output `json:"output"`
}

// ParsePayload decodes and validates a webhook body. Invalid documents are
// rejected before anything touches disk, so a malformed delivery can never
// overwrite a previously saved result.
func ParsePayload(body []byte) (*Payload, error) {
	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrValidation, "diarization", "parse webhook payload", "", err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Validate checks the structural requirements for a diarization result.
func (p *Payload) Validate() error {
	fail := func(message string) error {
		return services.Wrap(services.ErrValidation, "diarization", "validate webhook payload", message, nil)
	}
	if p.JobID == "" {
		return fail("missing jobId")
	}
	if p.Status == "" {
		return fail("missing status")
	}
	if p.Output == nil {
		return fail("missing output")
	}
	if p.Output.Diarization == nil {
		return fail("missing output.diarization")
	}
	for i, segment := range p.Output.Diarization {
		if segment.Speaker == "" {
			return fail(fmt.Sprintf("segment %d missing speaker", i))
		}
		if segment.Start >= segment.End {
			return fail(fmt.Sprintf("segment %d start %.3f not before end %.3f", i, segment.Start, segment.End))
		}
	}
	return nil
}
