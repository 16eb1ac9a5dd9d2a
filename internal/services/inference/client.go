// Package inference wraps the opaque extraction/classification backend
// behind a small HTTP client. The backend's algorithms are out of scope;
// the client only fixes the request/response contract and error taxonomy.
package inference

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
)

const defaultTimeout = 60 * time.Second

// Backend error taxonomy. Unavailable covers transport failures, 5xx,
// and 429; the engine retries those. Rejected covers other 4xx.
var (
	ErrUnavailable = errors.New("inference backend unavailable")
	ErrRejected    = errors.New("inference backend rejected request")
	ErrBadResponse = errors.New("inference backend returned malformed response")
)

// Config captures the settings required to reach the backend.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client calls the inference backend's extract and classify endpoints.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (used in tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs an inference client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := &Client{
		cfg: Config{
			BaseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Token:   strings.TrimSpace(cfg.Token),
			Timeout: timeout,
		},
		httpClient: &http.Client{Timeout: timeout},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// ExtractRequest identifies the payload to run extraction against.
type ExtractRequest struct {
	DocumentID  string `json:"document_id"`
	PayloadKey  string `json:"payload_key"`
	ContentType string `json:"content_type"`
}

// ExtractResult is the backend's extraction output.
type ExtractResult struct {
	Entities    []string `json:"entities"`
	OCRDuration string   `json:"ocr_duration"`
	Confidence  float64  `json:"confidence"`
}

// ClassifyRequest identifies the document to classify.
type ClassifyRequest struct {
	DocumentID  string   `json:"document_id"`
	PayloadKey  string   `json:"payload_key"`
	ContentType string   `json:"content_type"`
	Entities    []string `json:"entities,omitempty"`
}

// ClassifyResult is the backend's classification output.
type ClassifyResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Extract runs the extraction model against a stored payload.
func (c *Client) Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	var result ExtractResult
	if err := c.post(ctx, "/v1/extract", req, &result); err != nil {
		return nil, err
	}
	if result.Confidence < 0 || result.Confidence > 100 {
		return nil, fmt.Errorf("%w: confidence %v out of range", ErrBadResponse, result.Confidence)
	}
	return &result, nil
}

// Classify runs the classification model against a stored payload.
func (c *Client) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error) {
	var result ClassifyResult
	if err := c.post(ctx, "/v1/classify", req, &result); err != nil {
		return nil, err
	}
	if result.Label == "" {
		return nil, fmt.Errorf("%w: empty label", ErrBadResponse)
	}
	if result.Confidence < 0 || result.Confidence > 100 {
		return nil, fmt.Errorf("%w: confidence %v out of range", ErrBadResponse, result.Confidence)
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}

	return nil
}

func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
}
