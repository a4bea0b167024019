package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"plant_identifier/internal/logging"
	"plant_identifier/internal/models"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	serve := newServeCommand(&configPath)
	root := &cobra.Command{
		Use:           "plantid",
		Short:         "Identify plants from photos and keep a history of detections",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	root.AddCommand(serve, newMigrateCommand(&configPath))
	return root
}

func setup(configPath string) (*models.Config, *slog.Logger, error) {
	cfg, err := models.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}
