package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/smart-file-explorer/internal/bootstrap"
	"github.com/kirillkom/smart-file-explorer/internal/config"
	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/observability/logging"
)

func main() {
	watch := flag.Bool("watch", false, "after the initial pass, keep tagging files announced on the event bus")
	group := flag.String("group", "backfill", "event bus queue group used in watch mode")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}
	logger := logging.New("backfill", cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	tagged, err := app.Files.Backfill(ctx)
	if err != nil {
		logger.Error("backfill failed", "tagged", tagged, "error", err)
		os.Exit(1)
	}
	logger.Info("backfill done", "tagged", tagged)

	if !*watch {
		return
	}
	if app.Events == nil {
		logger.Error("watch mode needs NATS_URL")
		os.Exit(1)
	}
	if !cfg.MetadataShared {
		logger.Error("watch mode writes the index alongside the api; set METADATA_SHARED=true")
		os.Exit(1)
	}

	logger.Info("backfill watching", "subject", cfg.NATSSubject, "group", *group)
	err = app.Events.SubscribeFileEvents(ctx, *group, []domain.FileEventType{domain.FileUploaded},
		func(eventCtx context.Context, event domain.FileEvent) error {
			_, err := app.Files.TagIfMissing(eventCtx, event.Filename)
			return err
		})
	if err != nil {
		logger.Error("backfill subscribe error", "error", err)
		os.Exit(1)
	}
}
