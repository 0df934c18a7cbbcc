package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"editorcore/internal/domain"
	"editorcore/internal/infra"
)

// ErrMissingBaseURL indicates that the client has nowhere to dispatch runs.
var ErrMissingBaseURL = errors.New("compute: base url is required")

// Options configures the compute provider client.
type Options struct {
	APIKey         string
	BaseURL        string
	WebhookURL     string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client queues runs on the external compute provider. Results arrive later
// through the webhook handled by Validator.
type Client struct {
	apiKey     string
	baseURL    string
	webhookURL string
	httpClient *http.Client
	logger     *infra.Logger
}

type runRequest struct {
	Kind    domain.JobKind  `json:"kind"`
	Inputs  json.RawMessage `json:"inputs"`
	Webhook string          `json:"webhook,omitempty"`
}

type runResponse struct {
	RunID   string `json:"run_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := infra.Logger(zerolog.New(io.Discard))
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		webhookURL: strings.TrimSpace(opts.WebhookURL),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Dispatch queues one run and returns the provider's run id.
func (c *Client) Dispatch(ctx context.Context, kind domain.JobKind, payload json.RawMessage) (string, error) {
	body, err := json.Marshal(runRequest{Kind: kind, Inputs: payload, Webhook: c.webhookURL})
	if err != nil {
		return "", fmt.Errorf("compute: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/runs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("compute: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("compute: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("compute: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var detail errorResponse
		if err := json.Unmarshal(raw, &detail); err == nil && detail.Message != "" {
			return "", fmt.Errorf("compute: %s (%s)", detail.Message, detail.Code)
		}
		return "", fmt.Errorf("compute: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded runResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("compute: decode response: %w", err)
	}
	if decoded.Code != "" {
		return "", fmt.Errorf("compute: %s (%s)", decoded.Message, decoded.Code)
	}
	runID := strings.TrimSpace(decoded.RunID)
	if runID == "" {
		return "", errors.New("compute: empty run id")
	}
	c.logger.Debug().Str("run_id", runID).Str("kind", string(kind)).Msg("compute: run queued")
	return runID, nil
}
