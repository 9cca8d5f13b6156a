package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"WeatherChat/internal/backend"
	"WeatherChat/internal/chatbot"
	"WeatherChat/internal/config"
	"WeatherChat/internal/prompt"
	"WeatherChat/internal/session"
	"WeatherChat/internal/telemetry"
	"WeatherChat/internal/weather"
	"WeatherChat/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cannot start: %w", err)
	}

	logger, logFile, err := telemetry.InitLogger(cfg.LogDir, cfg.UIMode == config.UIModeWeb, cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logFile.Close()

	tel, cleanup, err := telemetry.InitTelemetry(context.Background(), cfg.LogDir)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer cleanup()

	// One client per dependency, both bounded by the same per-call timeout.
	chatBackend, err := backend.New(cfg, &http.Client{Timeout: cfg.HTTPTimeout})
	if err != nil {
		return err
	}
	weatherClient := weather.NewClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.WeatherAPIKey, cfg.WeatherBaseURL, cfg.Thresholds)

	bot := chatbot.New(chatbot.Options{
		Backend:    chatBackend,
		Weather:    weatherClient,
		Composer:   prompt.NewComposer(cfg.MaxTurns),
		WeatherTTL: cfg.WeatherTTL,
		Logger:     logger,
		Telemetry:  tel,
	})

	logger.Info("starting weatherchat",
		"ui", cfg.UIMode,
		"backend", chatBackend.Name(),
		"model", chatBackend.Model(),
		"location", cfg.DefaultLocation,
		"max_turns", cfg.MaxTurns,
	)

	if cfg.UIMode == config.UIModeTerminal {
		newSession := func() *session.Session {
			sess := session.New(fmt.Sprintf("session_%d", time.Now().Unix()), chatBackend.Name(), cfg.DefaultLocation)
			logger.Info("created new session", "session_id", sess.ID, "backend", sess.Backend)
			return sess
		}
		// Ctrl-C keeps its default behaviour while the REPL blocks on stdin.
		return chatbot.NewREPL(bot, newSession, os.Stdin, os.Stdout).Run(context.Background())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := session.NewRegistry(chatBackend.Name(), cfg.DefaultLocation, cfg.SessionIdleTimeout)
	srv := web.NewServer(bot, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(":" + cfg.Port)
	}()
	logger.Info("web ui listening", "port", cfg.Port)

	select {
	case err := <-errCh:
		return fmt.Errorf("fiber server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	}
	return nil
}
