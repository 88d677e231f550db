// Package llm wraps the generation provider behind the forwarding proxy:
// prompt construction, the structured/search-grounded call variants, and
// normalization of whatever the model sends back.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const defaultModel = "gemini-2.5-flash"

// GenerateRequest is the wire shape the proxy forwards upstream.
type GenerateRequest struct {
	Contents string        `json:"contents"`
	Config   RequestConfig `json:"config"`
}

// RequestConfig selects the call variant. Structured calls set
// ResponseMIMEType and ResponseSchema; search-grounded calls set Tools and
// expect free-text JSON in the reply.
type RequestConfig struct {
	SystemInstruction string  `json:"systemInstruction"`
	ResponseMIMEType  string  `json:"responseMimeType,omitempty"`
	ResponseSchema    *Schema `json:"responseSchema,omitempty"`
	Temperature       float64 `json:"temperature"`
	Model             string  `json:"model"`
	Tools             []Tool  `json:"tools,omitempty"`
}

// Tool enables a provider-side capability. Only search grounding is used.
type Tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

// SearchTool returns the grounding tool entry.
func SearchTool() []Tool {
	return []Tool{{GoogleSearch: &struct{}{}}}
}

// Client posts generation requests to the proxy. It carries the shared
// proxy secret and a per-minute call ceiling so a runaway session cannot
// burn provider quota.
type Client struct {
	baseURL    string
	proxyKey   string
	httpClient *http.Client

	mu        sync.Mutex
	callCount int
	resetAt   time.Time
	maxPerMin int
}

// NewClient creates a proxy client. baseURL is the proxy origin without a
// trailing slash; proxyKey may be empty when the proxy runs without auth.
func NewClient(baseURL, proxyKey string) *Client {
	return &Client{
		baseURL:  baseURL,
		proxyKey: proxyKey,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		maxPerMin: 30,
	}
}

// Generate posts req to the given proxy path and returns the raw upstream
// body. The caller owns extraction and parsing; transport and HTTP-status
// failures are returned as errors.
func (c *Client) Generate(ctx context.Context, path string, req GenerateRequest) ([]byte, error) {
	if err := c.reserve(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.proxyKey != "" {
		httpReq.Header.Set("x-proxy-key", c.proxyKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("generation call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("proxy rejected call: %s", string(respBody))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation error %d: %s", resp.StatusCode, string(respBody))
	}

	slog.Debug("generation call",
		"path", path,
		"model", req.Config.Model,
		"bytes", len(respBody),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return respBody, nil
}

func (c *Client) reserve() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if now.After(c.resetAt) {
		c.callCount = 0
		c.resetAt = now.Add(time.Minute)
	}
	if c.callCount >= c.maxPerMin {
		return fmt.Errorf("rate limit exceeded (%d calls/min)", c.maxPerMin)
	}
	c.callCount++
	return nil
}
