// Command lifesim runs the LLM-driven life simulation backend: the
// provider proxy plus the session API that drives games.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/talgya/alterlife/internal/api"
	"github.com/talgya/alterlife/internal/audio"
	"github.com/talgya/alterlife/internal/config"
	"github.com/talgya/alterlife/internal/entropy"
	"github.com/talgya/alterlife/internal/llm"
	"github.com/talgya/alterlife/internal/persistence"
	"github.com/talgya/alterlife/internal/session"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("AlterLife — a life, simulated")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	if cfg.ProviderKey() == "" {
		slog.Warn("GEMINI_API_KEY not set — turns will resolve to the fallback segment")
	}

	// ── Database ──────────────────────────────────────────────────────
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Entropy ───────────────────────────────────────────────────────
	// Remote atmospheric entropy when a key is configured, crypto/rand
	// otherwise. Either way sessions share one pooled source.
	source := entropy.NewSource(cfg.RandomOrgKey)
	session.SetDefaultRandom(source.Float)
	if cfg.RandomOrgKey != "" {
		slog.Info("entropy source: random.org with crypto fallback")
	}

	// ── Model access ──────────────────────────────────────────────────
	// The orchestrator talks to the proxy surface, not the provider.
	// MODEL_PROXY_URL points it elsewhere for split deployments; by
	// default it loops back into this process.
	proxyBase := cfg.ModelProxyURL
	if proxyBase == "" {
		proxyBase = fmt.Sprintf("http://127.0.0.1:%d", cfg.Port)
	}
	client := llm.NewClient(proxyBase, cfg.ProxyAPIKey)
	images := llm.NewImageClient(proxyBase, cfg.ProxyAPIKey)
	gen := llm.NewService(client, images)

	sessionCfg := session.DefaultConfig()
	sessionCfg.RandomEventChance = cfg.RandomEventChance
	sessionCfg.WorldEventPeriodYears = cfg.WorldEventPeriod

	// ── HTTP API ──────────────────────────────────────────────────────
	server := &api.Server{
		Port:        cfg.Port,
		ProviderKey: cfg.ProviderKey(),
		ImageKey:    cfg.ImageAPIKey,
		ProxyKey:    cfg.ProxyAPIKey,
		GenAIBase:   cfg.GenAIBase,
		CORSOrigins: cfg.CORSOrigins,
		NewSession: func() *session.Session {
			aud := audio.NewService(audio.LogOutput{})
			return session.New(gen, aud,
				session.WithConfig(sessionCfg),
				session.WithStore(db),
			)
		},
	}

	// Lives persisted by an earlier run come back under their old ids.
	snaps, err := db.LoadSessions()
	if err != nil {
		slog.Error("failed to restore sessions", "error", err)
		os.Exit(1)
	}
	for _, snap := range snaps {
		server.Register(session.Restore(snap, gen, audio.NewService(audio.LogOutput{}),
			session.WithConfig(sessionCfg),
			session.WithStore(db),
		))
	}
	if len(snaps) > 0 {
		slog.Info("restored sessions", "count", len(snaps))
	}

	server.Start()

	fmt.Printf("\nAlterLife API: http://localhost:%d/api/v1/session\n", cfg.Port)
	fmt.Println("Running... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)
}
