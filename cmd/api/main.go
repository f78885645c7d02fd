package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/smart-file-explorer/internal/adapters/http"
	"github.com/kirillkom/smart-file-explorer/internal/bootstrap"
	"github.com/kirillkom/smart-file-explorer/internal/config"
	"github.com/kirillkom/smart-file-explorer/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logger := logging.New("api", cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	_, openAPIJSON, err := httpadapter.LoadOpenAPIDocument(ctx)
	if err != nil {
		logger.Error("openapi document error", "error", err)
		os.Exit(1)
	}

	router := httpadapter.NewRouter(cfg, app.Files, httpadapter.Options{
		Logger:      logger,
		Metrics:     app.HTTPMetrics,
		OpenAPIJSON: openAPIJSON,
	}).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
}
