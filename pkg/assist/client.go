// Copyright (C) 2026 Schrader Mechanical (dev@schradermech.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// =============================================================================
// Transport Interface
// =============================================================================

// Transport performs chat exchanges against a copilot backend. The HTTP
// client and the offline mock both satisfy it, so a conversation can be
// driven identically online and offline.
type Transport interface {
	// SendMessage performs a single-shot exchange.
	SendMessage(ctx context.Context, jobID string, req ChatRequest) (*ChatPayload, error)

	// StreamMessage performs a streaming exchange, invoking onDelta for
	// each fragment in order, then returns the terminal payload. A stream
	// that ends without a terminal record fails with ErrStreamIncomplete.
	StreamMessage(ctx context.Context, jobID string, req ChatRequest, onDelta func(delta string)) (*ChatPayload, error)

	// History fetches the persisted turns for a job.
	History(ctx context.Context, jobID string) (*History, error)
}

// =============================================================================
// HTTP Transport
// =============================================================================

// defaultRequestTimeout bounds a full exchange, including model latency.
const defaultRequestTimeout = 5 * time.Minute

// HTTPTransport talks to a copilot server over HTTP.
type HTTPTransport struct {
	baseURL string
	token   string
	tenant  string
	user    string
	client  *http.Client
}

// HTTPConfig configures an HTTPTransport. Token wins over the dev
// identity headers when both are set.
type HTTPConfig struct {
	// BaseURL is the server root, e.g. "http://localhost:12300".
	BaseURL string

	// Token is an optional bearer token.
	Token string

	// Tenant and User are the dev identity headers used when no token
	// is configured.
	Tenant string
	User   string

	// Timeout bounds each exchange. Zero means defaultRequestTimeout.
	Timeout time.Duration
}

// SelectTransport picks the backend for a config. With no server URL
// there is nothing to call, so exchanges route silently to the built-in
// offline responder instead of failing.
func SelectTransport(cfg HTTPConfig) Transport {
	if cfg.BaseURL == "" {
		return MockTransport{}
	}
	return NewHTTPTransport(cfg)
}

// NewHTTPTransport creates a transport from config.
func NewHTTPTransport(cfg HTTPConfig) *HTTPTransport {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		tenant:  cfg.Tenant,
		user:    cfg.User,
		client:  &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	} else {
		if t.tenant != "" {
			req.Header.Set("X-Dev-Tenant", t.tenant)
		}
		if t.user != "" {
			req.Header.Set("X-Dev-User", t.user)
		}
	}
	return req, nil
}

// readError surfaces a non-2xx response body verbatim as the error
// message, falling back to the status line for empty bodies.
func readError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	text := strings.TrimSpace(string(body))
	if text == "" {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, text)
}

// SendMessage performs a single-shot exchange via POST /jobs/{id}/ai/chat.
func (t *HTTPTransport) SendMessage(ctx context.Context, jobID string, req ChatRequest) (*ChatPayload, error) {
	req.Stream = false
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := t.newRequest(ctx, http.MethodPost, "/jobs/"+jobID+"/ai/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readError(resp)
	}
	var out ChatPayload
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// StreamMessage performs a streaming exchange, decoding frames as chunks
// arrive off the wire.
func (t *HTTPTransport) StreamMessage(ctx context.Context, jobID string, req ChatRequest,
	onDelta func(delta string)) (*ChatPayload, error) {

	req.Stream = true
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := t.newRequest(ctx, http.MethodPost, "/jobs/"+jobID+"/ai/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readError(resp)
	}

	decoder := NewFrameDecoder()
	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			for _, frame := range decoder.Feed(buf[:n]) {
				if frame.Kind == FrameDelta && onDelta != nil {
					onDelta(frame.Delta)
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			// A connection error after the terminal record does not
			// invalidate the finished answer.
			if final := decoder.Terminal(); final != nil {
				return final, nil
			}
			return nil, readErr
		}
	}
	return decoder.Finish()
}

// History fetches persisted turns via GET /jobs/{id}/ai/conversation.
func (t *HTTPTransport) History(ctx context.Context, jobID string) (*History, error) {
	httpReq, err := t.newRequest(ctx, http.MethodGet, "/jobs/"+jobID+"/ai/conversation", nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readError(resp)
	}
	var out History
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &out, nil
}

// Ensure HTTPTransport implements Transport
var _ Transport = (*HTTPTransport)(nil)
