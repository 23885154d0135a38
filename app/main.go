package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"birdgate/app/api"
	"birdgate/app/cfg"
	"birdgate/app/database"
	"birdgate/app/post"
	"birdgate/app/provider"
	"birdgate/app/scraper"
	"birdgate/app/session"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting birdgate server", "version", appCfg.Version, "mode", appCfg.Mode)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open archive database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Archive database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	postRepo := database.NewPostRepository(db)
	attemptRepo := database.NewAttemptRepository(db)

	client := provider.NewHTTPClient(appCfg.Language, appCfg.UserAgent)

	store := session.NewStore()
	mode := session.Mode(appCfg.Mode)
	bootstrapper := session.NewBootstrapper(client, store, mode, appCfg.CookiesFile, attemptRepo)
	gate := session.NewGate(store, mode)

	// Startup bootstrap is synchronous; the server comes up either way and
	// the gate rejects protected operations until a session exists.
	bootstrapCtx, cancelBootstrap := context.WithTimeout(context.Background(), 60*time.Second)
	if err := bootstrapper.Run(bootstrapCtx, appCfg.Username, appCfg.Email, appCfg.Password, appCfg.Cookies); err != nil {
		slog.Error("Startup bootstrap failed; serving without a session", "error", err)
	}
	cancelBootstrap()

	service := scraper.NewService(gate, client, post.NewNormalizer(), postRepo)

	handler := api.NewHandler(service, store, bootstrapper, postRepo, appCfg)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}
