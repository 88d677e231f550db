// Package api serves two surfaces on one port: the provider proxy
// (/api/next-segment, /api/create-character, /api/generate-image) and the
// session API (/api/v1/session/...) that drives the game state machine.
package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/alterlife/internal/game"
	"github.com/talgya/alterlife/internal/session"
)

// proxyRateLimit is the per-IP ceiling on proxy calls: 60 per minute,
// matching the reference deployment.
const (
	proxyRateLimit  = 60
	proxyRateWindow = time.Minute
)

// NewSessionFunc constructs a fresh game session; the server owns the
// resulting instances.
type NewSessionFunc func() *session.Session

// Server is the HTTP front for both the proxy and the game.
type Server struct {
	Port        int
	ProviderKey string // generation provider credential, injected upstream only
	ImageKey    string // image provider credential; empty enables the 204 path
	ProxyKey    string // shared caller secret; empty disables the check
	GenAIBase   string // upstream generation base URL
	CORSOrigins []string

	NewSession NewSessionFunc

	mu       sync.Mutex
	sessions map[uuid.UUID]*session.Session
}

// Register adds a session to the routing index. Sessions restored from
// persistence are registered before Start; the server owns them from then
// on like any it created itself.
func (s *Server) Register(sess *session.Session) {
	s.mu.Lock()
	if s.sessions == nil {
		s.sessions = make(map[uuid.UUID]*session.Session)
	}
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	s.mu.Lock()
	if s.sessions == nil {
		s.sessions = make(map[uuid.UUID]*session.Session)
	}
	s.mu.Unlock()

	limiter := NewRateLimiter(proxyRateLimit, proxyRateWindow)

	mux := http.NewServeMux()

	// Proxy endpoints: rate-limited, optionally secret-gated.
	mux.HandleFunc("/api/next-segment", RateLimitMiddleware(limiter, s.requireProxyKey(s.handleGenerate)))
	mux.HandleFunc("/api/create-character", RateLimitMiddleware(limiter, s.requireProxyKey(s.handleGenerate)))
	mux.HandleFunc("/api/generate-image", RateLimitMiddleware(limiter, s.requireProxyKey(s.handleGenerateImage)))

	// Session endpoints.
	mux.HandleFunc("/api/v1/session", s.handleNewSession)
	mux.HandleFunc("/api/v1/session/", s.handleSessionRoutes)

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr,
		"proxy_auth", s.ProxyKey != "",
		"image_provider", s.ImageKey != "",
	)

	go func() {
		handler := s.corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware allows configured frontend origins plus localhost dev
// servers.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	allowed := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range s.CORSOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, x-proxy-key")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleNewSession creates a session and starts its first life.
func (s *Server) handleNewSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sess := s.NewSession()
	if err := sess.Begin(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.Register(sess)
	writeJSON(w, sess.Snapshot())
}

// handleSessionRoutes dispatches /api/v1/session/{id}[/op].
func (s *Server) handleSessionRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/session/")
	idPart, op, _ := strings.Cut(rest, "/")

	id, err := uuid.Parse(idPart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	switch op {
	case "":
		writeJSON(w, sess.Snapshot())
	case "action":
		s.runTurn(w, r, sess, func(text string) error {
			return sess.PerformDailyAction(r.Context(), text)
		})
	case "choice":
		s.runTurn(w, r, sess, func(text string) error {
			return sess.MakeChoice(r.Context(), game.Choice{Text: text})
		})
	case "aspiration":
		s.runTurn(w, r, sess, func(text string) error {
			return sess.ChooseAspiration(r.Context(), game.Choice{Text: text})
		})
	case "legacy":
		s.handleLegacy(w, r, sess)
	case "restart":
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		sess.Restart()
		writeJSON(w, sess.Snapshot())
	case "mute":
		s.handleMute(w, r, sess)
	case "timeline":
		if r.Method == http.MethodPost {
			var req struct {
				Visible bool `json:"visible"`
			}
			if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
			sess.SetTimelineVisible(req.Visible)
			writeJSON(w, sess.Snapshot())
			return
		}
		majorOnly := r.URL.Query().Get("major") == "true"
		writeJSON(w, map[string]any{"segments": sess.Timeline(majorOnly)})
	default:
		writeError(w, http.StatusNotFound, "unknown operation")
	}
}

type textRequest struct {
	Text string `json:"text"`
}

// runTurn decodes the submitted text and executes one turn synchronously.
// A turn already in flight maps to 409 so stale choices cannot be
// double-submitted.
func (s *Server) runTurn(w http.ResponseWriter, r *http.Request, sess *session.Session, run func(text string) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req textRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil || req.Text == "" {
		writeError(w, http.StatusBadRequest, "missing text")
		return
	}

	if err := run(req.Text); err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, sess.Snapshot())
}

type legacyRequest struct {
	ChildName string `json:"childName"`
}

func (s *Server) handleLegacy(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req legacyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil || req.ChildName == "" {
		writeError(w, http.StatusBadRequest, "missing childName")
		return
	}

	oldID := sess.ID()
	if err := sess.ContinueAsChild(r.Context(), req.ChildName); err != nil {
		writeSessionError(w, err)
		return
	}

	// The legacy restart rotates the session identity; re-key the index.
	s.mu.Lock()
	delete(s.sessions, oldID)
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	writeJSON(w, sess.Snapshot())
}

type muteRequest struct {
	Muted bool `json:"muted"`
}

func (s *Server) handleMute(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req muteRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess.SetMuted(req.Muted)
	writeJSON(w, sess.Snapshot())
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case err == session.ErrTurnInFlight:
		writeError(w, http.StatusConflict, err.Error())
	case err == session.ErrWrongPhase, err == session.ErrNotAChild:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
