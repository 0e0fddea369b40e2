package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"paperQuantBot/internal/ports"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client implements the ports.AdvisoryModel interface against the Gemini
// generateContent REST endpoint. The credential and model are supplied per
// call so the advisor can rotate through its pool.
type Client struct {
	client *resty.Client
	logger ports.Logger
}

// Config holds configuration specific to the Gemini client.
type Config struct {
	BaseURL string // Override for tests; defaults to the public endpoint
	Timeout time.Duration
	Logger  ports.Logger
}

// New creates a new Gemini advisory client.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Gemini client")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)

	return &Client{client: client, logger: cfg.Logger}, nil
}

// generateRequest is the minimal generateContent request payload.
type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// generateResponse is the subset of the generateContent response we consume.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends a free-form prompt to the given model using the given API
// key and returns the raw response text. Endpoint failures are wrapped with
// ports.ErrModelUnavailable or ports.ErrRateLimited so the caller's rotation
// logic can classify them.
func (c *Client) Generate(ctx context.Context, apiKey, model, prompt string) (string, error) {
	op := "Generate"

	var result generateResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", apiKey).
		SetBody(&generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}}).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/models/%s:generateContent", model))
	if err != nil {
		return "", fmt.Errorf("%s: request to model %s failed: %w", op, model, err)
	}

	if resp.IsError() {
		return "", c.classifyError(ctx, resp, &result, model)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("%s: model %s: %w", op, model, ports.ErrEmptyResponse)
	}
	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("%s: model %s: %w", op, model, ports.ErrEmptyResponse)
	}

	c.logger.Debug(ctx, "Advisory response received", map[string]interface{}{"model": model, "chars": len(text)})
	return text, nil
}

// classifyError maps an HTTP error response onto the standard ports errors.
// Status codes are authoritative; the message text is sniffed as a fallback
// because some quota failures arrive as generic errors.
func (c *Client) classifyError(ctx context.Context, resp *resty.Response, result *generateResponse, model string) error {
	message := ""
	if result.Error != nil {
		message = result.Error.Message
	}
	fields := map[string]interface{}{"model": model, "status": resp.StatusCode(), "message": message}

	var mappedErr error
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		mappedErr = ports.ErrModelUnavailable
	case resp.StatusCode() == http.StatusTooManyRequests:
		mappedErr = ports.ErrRateLimited
	case isQuotaMessage(message):
		mappedErr = ports.ErrRateLimited
	case isNotFoundMessage(message):
		mappedErr = ports.ErrModelUnavailable
	default:
		mappedErr = ports.ErrUnknown
	}

	err := fmt.Errorf("model %s returned HTTP %d: %s: %w", model, resp.StatusCode(), message, mappedErr)
	c.logger.Warn(ctx, "Advisory call failed", fields)
	return err
}

func isQuotaMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, k := range []string{"rate", "quota", "429", "exhausted"} {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func isNotFoundMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "404") || strings.Contains(lower, "not found")
}
