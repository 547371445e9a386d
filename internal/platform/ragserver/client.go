package ragserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yerba/yerba-api/internal/inference"
)

// Endpoint paths relative to the base URL
const (
	LearnPath = "/learn"
	AskPath   = "/ask"
)

// DefaultTimeout bounds a single request. Answers from a local model can
// take a while.
const DefaultTimeout = 120 * time.Second

// maxResponseBytes caps how much of a reply body is read.
const maxResponseBytes = 4 << 20

// Client talks to the ingestion and answer service.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *slog.Logger
}

var (
	_ inference.Ingester = (*Client)(nil)
	_ inference.Answerer = (*Client)(nil)
)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// NewClient creates a client for the service at baseURL. A non-positive
// timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", inference.ErrInvalidConfig)
	}

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", inference.ErrInvalidConfig, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: base url must be http or https, got %q", inference.ErrInvalidConfig, baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: base url has no host", inference.ErrInvalidConfig)
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "ragserver_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// reply is the common envelope of both endpoints. Some service versions
// report failures under response_error instead of error.
type reply struct {
	Success       bool    `json:"success"`
	Error         *string `json:"error"`
	ResponseError *string `json:"response_error"`
	Result        *string `json:"result"`
}

func (r reply) errorText() string {
	if r.Error != nil && *r.Error != "" {
		return *r.Error
	}
	if r.ResponseError != nil && *r.ResponseError != "" {
		return *r.ResponseError
	}
	return "no error detail"
}

// Learn asks the service to index req.FilePath into req.VectorDBPath.
func (c *Client) Learn(ctx context.Context, req inference.LearnRequest) error {
	start := time.Now()

	var r reply
	if err := c.post(ctx, LearnPath, req, &r); err != nil {
		return err
	}
	if !r.Success {
		return fmt.Errorf("%w: %s", inference.ErrUnsuccessful, r.errorText())
	}

	c.logger.DebugContext(ctx, "file learned",
		"vector_db_path", req.VectorDBPath,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Ask sends a question with its chat history and returns the answer text.
func (c *Client) Ask(ctx context.Context, req inference.AskRequest) (string, error) {
	start := time.Now()

	var r reply
	if err := c.post(ctx, AskPath, req, &r); err != nil {
		return "", err
	}
	if !r.Success {
		return "", fmt.Errorf("%w: %s", inference.ErrUnsuccessful, r.errorText())
	}
	if r.Result == nil || strings.TrimSpace(*r.Result) == "" {
		return "", inference.ErrEmptyAnswer
	}

	c.logger.DebugContext(ctx, "question answered",
		"vector_db_path", req.VectorDBPath,
		"duration_ms", time.Since(start).Milliseconds())
	return *r.Result, nil
}

// post sends body as JSON to path and decodes the reply into out. Non-2xx
// statuses are still decoded since the service reports failures in the body.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := c.baseURL.JoinPath(path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", path, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		var syntaxErr *json.SyntaxError
		if resp.StatusCode >= http.StatusBadRequest && errors.As(err, &syntaxErr) {
			return fmt.Errorf("%w: %s returned status %d", inference.ErrInvalidResponse, path, resp.StatusCode)
		}
		return fmt.Errorf("%w: %s: %v", inference.ErrInvalidResponse, path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.WarnContext(ctx, "inference service returned error status",
			"path", path,
			"status", resp.StatusCode)
	}
	return nil
}
