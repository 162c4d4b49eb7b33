// Package imageapi talks to the OpenAI Images API.
package imageapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"imgpt-cli/internal/config"
	"imgpt-cli/internal/interfaces"
)

const (
	// BaseURLEnv overrides the API host, e.g. for a proxy or a local mock
	BaseURLEnv = "OPENAI_BASE_URL"

	DefaultBaseURL = "https://api.openai.com"
	DefaultTimeout = 120 * time.Second

	generationsPath = "/v1/images/generations"
)

// Client implements the ImageGenerator interface over HTTP
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds the client settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Request is the JSON body of an image generation call
type Request struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size,omitempty"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
	OutputFormat   string `json:"output_format,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// Response is the subset of the API answer the client reads
type Response struct {
	Data []struct {
		B64JSON       string `json:"b64_json"`
		URL           string `json:"url"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient creates a new Images API client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(firstNonEmpty(cfg.BaseURL, DefaultBaseURL), "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Generate requests one image for prompt and returns its bytes
func (c *Client) Generate(ctx context.Context, prompt string, params interfaces.GenerationParams) ([]byte, error) {
	body, err := json.Marshal(BuildRequest(prompt, params))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	c.logger.Debug("Sending image generation request",
		zap.String("model", params.Model),
		zap.String("size", params.Size),
		zap.Int("prompt_length", len(prompt)))

	start := time.Now()
	respBody, err := c.post(ctx, c.baseURL+generationsPath, body)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no images returned")
	}

	image := resp.Data[0]
	c.logger.Debug("Received image generation response",
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("b64", image.B64JSON != ""),
		zap.String("revised_prompt", image.RevisedPrompt))

	switch {
	case image.B64JSON != "":
		data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(image.B64JSON))
		if err != nil {
			return nil, fmt.Errorf("decode b64 image: %w", err)
		}
		return data, nil
	case image.URL != "":
		return c.download(ctx, image.URL)
	default:
		return nil, errors.New("response contains neither b64_json nor url")
	}
}

// BuildRequest shapes the request body for the model, leaving out
// parameters the model does not accept.
func BuildRequest(prompt string, params interfaces.GenerationParams) Request {
	req := Request{
		Model:  params.Model,
		Prompt: prompt,
		N:      1,
		Size:   params.Size,
	}

	caps, known := config.Capabilities(params.Model)
	if !known {
		req.Quality = params.Quality
		req.Style = params.Style
		return req
	}

	if caps.SupportsQuality(params.Quality) {
		req.Quality = params.Quality
	}
	if caps.SupportsStyle {
		req.Style = params.Style
	}
	if caps.SupportsFormat {
		req.OutputFormat = params.Format
	}
	if !caps.ReturnsBase64 {
		req.ResponseFormat = "b64_json"
	}
	return req
}

func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("new download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download image: %w", err)
	}
	return data, nil
}

// statusError prefers the API's own message over the bare status code
func statusError(status int, body []byte) error {
	var apiErr apiError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("api status %d: %s", status, apiErr.Error.Message)
	}
	return fmt.Errorf("api status %d", status)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
