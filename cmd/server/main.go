package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/opsmux/alertgate/internal/auth"
	"github.com/opsmux/alertgate/internal/config"
	"github.com/opsmux/alertgate/internal/gateway"
	"github.com/opsmux/alertgate/internal/mailmux"
	"github.com/opsmux/alertgate/internal/policy"
	"github.com/opsmux/alertgate/internal/schema"
)

func main() {
	cfgPath := flag.String("config", "", "Path to optional YAML config file (environment variables take precedence)")
	envPath := flag.String("env-file", "", "Path to optional .env file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *envPath != "" {
		if err := godotenv.Load(*envPath); err != nil {
			slog.Error("failed to load env file", "path", *envPath, "err", err)
			os.Exit(1)
		}
	}

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Settings()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	// ── Pipeline components ──────────────────────────────────────────────────
	verifier := auth.NewVerifier(credentials(cfg))

	validator, err := schema.NewValidator()
	if err != nil {
		slog.Error("failed to build schema validator", "err", err)
		os.Exit(1)
	}

	pol := policy.NewEngine(
		cfg.Policy.DedupeWindow(),
		cfg.Policy.RateLimitMax,
		cfg.Policy.RateLimitWindow(),
		cfg.Policy.StoreMaxKeys,
	)

	delivery, err := mailmux.NewClient(mailmux.Config{
		BaseURL:         cfg.Mailmux.BaseURL,
		SendPath:        cfg.Mailmux.SendPath,
		Timeout:         cfg.Mailmux.Timeout(),
		AuthMode:        mailmux.AuthMode(cfg.Mailmux.AuthMode),
		BearerToken:     cfg.Mailmux.BearerToken,
		AuthHeaderName:  cfg.Mailmux.AuthHeaderName,
		AuthHeaderValue: cfg.Mailmux.AuthHeaderValue,
		To:              cfg.Mailmux.To,
		From:            cfg.Mailmux.From,
		SubjectPrefix:   cfg.Mailmux.SubjectPrefix,
	})
	if err != nil {
		slog.Error("failed to build mailmux client", "err", err)
		os.Exit(1)
	}

	// ── Credential rotation ──────────────────────────────────────────────────
	// Only the accepted credential set is hot-swapped on config file changes;
	// everything else requires a restart.
	loader.OnChange(func(newCfg *config.Settings) {
		verifier.Swap(credentials(newCfg))
		slog.Info("auth credentials reloaded")
	})
	if *cfgPath != "" {
		stopWatch, err := loader.Watch()
		if err != nil {
			slog.Warn("config watcher unavailable (credential rotation disabled)", "err", err)
		} else {
			defer stopWatch()
		}
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	handler := gateway.New(cfg, verifier, validator, pol, delivery)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.Mailmux.Timeout() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	slog.Info("goodbye")
}

func credentials(cfg *config.Settings) auth.Credentials {
	return auth.Credentials{
		Mode:         auth.Mode(cfg.Auth.Mode),
		BearerTokens: cfg.Auth.BearerTokens,
		SharedSecret: cfg.Auth.SharedSecret,
	}
}
