package services

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
)

// ProxyRequest describes an arbitrary outbound call made on a caller's behalf.
type ProxyRequest struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    json.RawMessage   `json:"body"`
}

// ProxyResult mirrors the upstream status and body.
type ProxyResult struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    any  `json:"data"`
}

// Forwarder relays ProxyRequests from the relay's network position.
type Forwarder struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewForwarder creates a Forwarder with a 30 second timeout per call.
func NewForwarder(logger *slog.Logger) *Forwarder {
	return &Forwarder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// proxyBody turns the caller's body into bytes on the wire. A JSON string is sent
// as its contents; any other JSON value is sent as-is.
func proxyBody(raw json.RawMessage) io.Reader {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		if s == "" {
			return nil
		}
		return strings.NewReader(s)
	}
	return bytes.NewReader(trimmed)
}

/**
 * @description
 * Forward performs req and returns the upstream answer. Method defaults to POST and
 * Content-Type to application/json; caller headers override both.
 *
 * @returns The upstream status and decoded body.
 * @returns An ErrValidation error when URL is empty, or the transport error.
 */
func (f *Forwarder) Forward(ctx context.Context, req ProxyRequest) (*ProxyResult, error) {
	if req.URL == "" {
		return nil, validationErrorf("Missing 'url'")
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodPost
	}

	body := proxyBody(req.Body)
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		f.logger.Warn("proxy request failed", "method", method, "url", req.URL, "error", err)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	f.logger.Info("proxied request", "method", method, "url", req.URL, "status_code", resp.StatusCode)
	return &ProxyResult{
		Success: resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status:  resp.StatusCode,
		Data:    responseData(respBody),
	}, nil
}
