package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const pathGenerateImage = "/api/generate-image"

// ImageClient requests scene illustrations through the proxy. A 204 reply
// means no image provider is configured; that is a designed fallback path,
// not an error.
type ImageClient struct {
	baseURL    string
	proxyKey   string
	httpClient *http.Client
}

// NewImageClient creates an image proxy client.
func NewImageClient(baseURL, proxyKey string) *ImageClient {
	return &ImageClient{
		baseURL:  baseURL,
		proxyKey: proxyKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

type imageResponse struct {
	ImageBase64 string `json:"imageBase64"`
	URL         string `json:"url"`
}

// Generate posts the prompt and returns either a data URL, a provider URL,
// or "" when no image is available.
func (c *ImageClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(imageRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathGenerateImage, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.proxyKey != "" {
		req.Header.Set("x-proxy-key", c.proxyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return "", nil
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read image response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image provider error %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed imageResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse image response: %w", err)
	}
	if parsed.ImageBase64 != "" {
		return "data:image/jpeg;base64," + parsed.ImageBase64, nil
	}
	return parsed.URL, nil
}
