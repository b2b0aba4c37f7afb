package diarization

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/apartmentlines/audio-processing/internal/config"
	"github.com/apartmentlines/audio-processing/internal/logging"
	"github.com/apartmentlines/audio-processing/internal/services"
)

const (
	defaultRetryMax     = 5
	defaultRetryWaitMin = 1 * time.Second
	defaultRetryWaitMax = 60 * time.Second
)

// Client talks to the pyannote.ai REST API. Rate limiting is handled by the
// underlying retry transport: a 429 response is retried after the server's
// Retry-After interval.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// ClientOption configures the API client.
type ClientOption func(*Client)

// WithHTTPClient substitutes the transport, primarily for tests.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient constructs an API client from configuration.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = defaultRetryMax
	retryClient.RetryWaitMin = defaultRetryWaitMin
	retryClient.RetryWaitMax = defaultRetryWaitMax
	retryClient.Logger = nil

	client := &Client{
		httpClient: retryClient.StandardClient(),
		baseURL:    strings.TrimRight(cfg.Diarization.BaseURL, "/"),
		apiKey:     cfg.Diarization.APIKey,
		logger:     logging.NewComponentLogger(logger, "diarization"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type diarizeRequest struct {
	URL     string `json:"url"`
	Webhook string `json:"webhook"`
}

type diarizeResponse struct {
	JobID string `json:"jobId"`
}

// Diarize submits a diarization job for the audio served at audioURL and
// asks the API to deliver results to webhookURL. It returns the job ID
// assigned by the API.
func (c *Client) Diarize(ctx context.Context, audioURL, webhookURL string) (string, error) {
	if c.apiKey == "" {
		return "", services.Wrap(services.ErrConfiguration, "diarization", "submit job", "api key not configured", nil)
	}

	body, err := json.Marshal(diarizeRequest{URL: audioURL, Webhook: webhookURL})
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "diarization", "submit job", "encode request", err)
	}

	endpoint := c.baseURL + "/diarize"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "diarization", "submit job", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "diarization", "submit job", "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "diarization", "submit job", "read response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", services.Wrap(services.ErrConfiguration, "diarization", "submit job",
			fmt.Sprintf("authentication rejected (%d)", resp.StatusCode), nil)
	default:
		return "", services.Wrap(services.ErrTransient, "diarization", "submit job",
			fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))), nil)
	}

	var parsed diarizeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", services.Wrap(services.ErrValidation, "diarization", "submit job", "decode response", err)
	}
	c.logger.Debug("submitted diarization job",
		logging.String("job_id", parsed.JobID),
		logging.String("audio_url", audioURL))
	return parsed.JobID, nil
}
