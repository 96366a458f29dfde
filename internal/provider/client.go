// Package provider implements the HTTP client for the remote session service.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pettai/petbot/core/logger"
	"log/slog"
)

const defaultTimeout = 60 * time.Second

// Config describes how to reach the session service.
type Config struct {
	BaseURL string `yaml:"base_url" envconfig:"PROVIDER_BASE_URL"`
	// TimeoutSeconds bounds a single request. Telethon's send_code can take
	// tens of seconds, so the default is generous.
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"PROVIDER_TIMEOUT_SECONDS"`
}

// Client calls the session service. Calls are not retried: the flow treats a
// single failure as terminal for the current step.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client from config, trimming any trailing slash.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("provider: base_url is required")
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

type apiResponse struct {
	Success *bool  `json:"success,omitempty"`
	Message string `json:"message,omitempty"`
	Session string `json:"session,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SendCode asks the service to deliver a verification code to the phone.
func (c *Client) SendCode(ctx context.Context, phone string) error {
	_, err := c.post(ctx, "/send_code", map[string]string{"phone": phone})
	return err
}

// CreateSession exchanges phone+code for a session credential.
func (c *Client) CreateSession(ctx context.Context, phone, code string) (string, error) {
	resp, err := c.post(ctx, "/create_session", map[string]string{
		"phone": phone,
		"code":  code,
	})
	if err != nil {
		return "", err
	}
	if resp.Session == "" {
		return "", fmt.Errorf("provider: response missing session")
	}
	return resp.Session, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("provider: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("provider: build request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	httpResp, err := c.http.Do(req)
	if err != nil {
		logger.Error(ctx, "provider", "request.fail",
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("provider: %s: %w", path, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("provider: %s: read response: %w", path, err)
	}

	var resp apiResponse
	if len(raw) > 0 {
		// Non-JSON error bodies degrade to a status-based error below.
		_ = json.Unmarshal(raw, &resp)
	}

	logger.Debug(ctx, "provider", "request.done",
		slog.String("path", path),
		slog.String("request_id", requestID),
		slog.Int("status_code", httpResp.StatusCode),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		if resp.Error != "" {
			return nil, fmt.Errorf("%s", resp.Error)
		}
		return nil, fmt.Errorf("provider: %s: unexpected status %s", path, httpResp.Status)
	}
	if resp.Success != nil && !*resp.Success {
		if resp.Error != "" {
			return nil, fmt.Errorf("%s", resp.Error)
		}
		return nil, fmt.Errorf("provider: %s: request not successful", path)
	}
	return &resp, nil
}
