package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"plant_identifier/internal/identify"
	"plant_identifier/internal/models"
	"plant_identifier/internal/server"
	"plant_identifier/internal/service"
	"plant_identifier/internal/storage"
	"plant_identifier/internal/storage/memory"
	"plant_identifier/internal/storage/postgres"
	"plant_identifier/internal/storage/sqlite"
	"plant_identifier/internal/thumbnail"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the thumbnail worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup(*configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func openStore(ctx context.Context, cfg *models.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.DatabaseDriver {
	case models.DriverPostgres:
		return postgres.NewStorage(ctx, cfg.DatabaseURL, logger.With("component", "postgres"))
	case models.DriverSQLite:
		return sqlite.New(cfg.DatabaseURL)
	case models.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}

func serve(ctx context.Context, cfg *models.Config, logger *slog.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to init storage: %w", err)
	}
	defer db.Close()

	var store storage.Store = db
	if cfg.CacheTTL > 0 {
		store = storage.NewCached(db, cfg.CacheTTL)
	}

	gemini, err := identify.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return fmt.Errorf("failed to init identifier: %w", err)
	}
	defer gemini.Close()

	var events service.Publisher
	if cfg.KafkaEnabled() {
		producer := thumbnail.NewPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
		defer producer.Close()
		events = producer
	} else {
		logger.Info("kafka_broker not set, thumbnails will not be generated")
	}

	svc := service.New(service.Config{
		MaxUploadBytes:  cfg.MaxUploadBytes,
		UpstreamTimeout: cfg.UpstreamTO,
	}, gemini, store, events, logger)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.NewServer(cfg.ServerAddr, cfg.MaxUploadBytes, svc, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	if cfg.KafkaEnabled() {
		worker := thumbnail.NewWorker(store, thumbnail.NewGenerator(cfg.ThumbnailSize), logger)
		g.Go(func() error {
			return worker.Run(gctx, thumbnail.NewReader(cfg.KafkaBroker, cfg.KafkaTopic, cfg.KafkaGroupID))
		})
	}

	logger.Info("plantid started",
		"addr", cfg.ServerAddr,
		"database_driver", cfg.DatabaseDriver,
		"gemini_model", gemini.Model())
	err = g.Wait()
	logger.Info("plantid stopped")
	return err
}
