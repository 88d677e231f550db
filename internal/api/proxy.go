// The reverse-proxy endpoints: inject provider credentials, forward the
// request, and return the upstream body unmodified. Authorization failures
// surface as 401, distinct from upstream transport errors (500/502).

package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

const (
	generateTimeout = 120 * time.Second
	imageTimeout    = 60 * time.Second
)

// requireProxyKey enforces the shared caller secret when one is
// configured. Local dev without PROXY_API_KEY passes everything through.
func (s *Server) requireProxyKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.ProxyKey == "" {
			next(w, r)
			return
		}
		key := r.Header.Get("x-proxy-key")
		if key == "" {
			key = r.URL.Query().Get("proxy_key")
		}
		if key != s.ProxyKey {
			writeError(w, http.StatusUnauthorized, "Unauthorized. Provide x-proxy-key header.")
			return
		}
		next(w, r)
	}
}

// forwardRequest is the shared body of the two generation endpoints. The
// upstream reply is passed through byte-for-byte so the caller's normalizer
// sees exactly what the provider produced.
type forwardRequest struct {
	Contents json.RawMessage `json:"contents"`
	Config   json.RawMessage `json:"config"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req forwardRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	model := gjson.GetBytes(req.Config, "model").String()
	if model == "" {
		model = "gemini-2.5-flash"
	}

	cfg := req.Config
	if len(cfg) == 0 {
		cfg = json.RawMessage("{}")
	}
	upstreamBody, err := json.Marshal(map[string]any{
		"model":    model,
		"contents": req.Contents,
		"config":   cfg,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httpReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost,
		s.GenAIBase+"/models:generateContent", bytes.NewReader(upstreamBody))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.ProviderKey)

	client := &http.Client{Timeout: generateTimeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		slog.Error("generation upstream error", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		slog.Warn("generation response copy failed", "error", err)
	}
}

type imageGenRequest struct {
	Prompt string `json:"prompt"`
}

// handleGenerateImage calls the image provider. Without IMAGE_API_KEY it
// short-circuits with 204 so callers fall back to no image.
func (s *Server) handleGenerateImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.ImageKey == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var req imageGenRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upstreamBody, err := json.Marshal(map[string]any{
		"prompt":          req.Prompt,
		"n":               1,
		"size":            "1024x576",
		"response_format": "b64_json",
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	httpReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost,
		"https://api.openai.com/v1/images/generations", bytes.NewReader(upstreamBody))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.ImageKey)

	client := &http.Client{Timeout: imageTimeout}
	resp, err := client.Do(httpReq)
	if err != nil {
		slog.Error("image upstream error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if resp.StatusCode != http.StatusOK {
		slog.Error("image provider error", "status", resp.StatusCode, "detail", string(body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{
			"error":  "Image provider error",
			"detail": string(body),
		})
		return
	}

	if b64 := gjson.GetBytes(body, "data.0.b64_json"); b64.Exists() && b64.String() != "" {
		writeJSON(w, map[string]string{"imageBase64": b64.String()})
		return
	}
	if url := gjson.GetBytes(body, "data.0.url"); url.Exists() && url.String() != "" {
		writeJSON(w, map[string]string{"url": url.String()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
