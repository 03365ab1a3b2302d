// Package upstream is the HTTP client for the remote marketplace API. All
// business logic (pricing, escrow, payments, dispute resolution, order
// lifecycle) lives behind that API; the gateway only orchestrates calls.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/atelierloop/gateway/internal/domain/shared"
	"github.com/atelierloop/gateway/internal/infrastructure/config"
	"go.uber.org/zap"
)

const fallbackErrorMessage = "Something went wrong. Please try again."

// Client calls the remote marketplace API
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a marketplace API client
func NewClient(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// Do performs a JSON request against the marketplace API. A non-nil body is
// encoded as JSON; a non-nil out receives the decoded response body. The
// userToken, when set, is forwarded as the bearer credential.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, userToken string) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if userToken != "" {
		req.Header.Set("Authorization", "Bearer "+userToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("Marketplace API unreachable",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return shared.ErrUpstreamUnreachable
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return c.asDomainError(resp.StatusCode, raw, method, path)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}
	return nil
}

// asDomainError maps an upstream error response to a domain error, keeping
// the upstream message when one can be dug out of the body.
func (c *Client) asDomainError(status int, body []byte, method, path string) error {
	message := ExtractErrorMessage(body)

	c.logger.Warn("Marketplace API rejected request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.String("message", message))

	switch status {
	case http.StatusNotFound:
		return shared.NewDomainError("NOT_FOUND", message)
	case http.StatusUnauthorized:
		return shared.NewDomainError("UNAUTHORIZED", message)
	case http.StatusForbidden:
		return shared.NewDomainError("FORBIDDEN", message)
	case http.StatusTooManyRequests:
		return shared.NewDomainError("RATE_LIMITED", message)
	default:
		// Some cooldown rejections come back as plain 400s with only the
		// prose to go on.
		if IsRateLimitMessage(message) {
			return shared.NewDomainError("RATE_LIMITED", message)
		}
		return shared.NewDomainError("UPSTREAM_REJECTED", message)
	}
}

// ExtractErrorMessage digs a human-readable message out of an upstream error
// body. The shape is not guaranteed: try {"error":{"message"}}, then
// {"message"}, then {"data":{"message"}}, then fall back to a generic string.
func ExtractErrorMessage(body []byte) string {
	var envelope struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
		Data    *struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error != nil && envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.Data != nil && envelope.Data.Message != "" {
			return envelope.Data.Message
		}
	}
	return fallbackErrorMessage
}

// IsRateLimitMessage reports whether an upstream message looks like a resend
// cooldown / rate-limit response. The API only exposes this as prose, so the
// check is a substring match on "wait".
func IsRateLimitMessage(message string) bool {
	return strings.Contains(strings.ToLower(message), "wait")
}
