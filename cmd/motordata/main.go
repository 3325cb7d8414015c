// Package main provides the motordata binary: fetch Motor Data telemetry
// events from PostHog, fold them into the master CSV, and regenerate the
// per-category chart series.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bimotal/motordata/internal/archive"
	"github.com/bimotal/motordata/internal/config"
	"github.com/bimotal/motordata/internal/logging"
	"github.com/bimotal/motordata/internal/pipeline"
	"github.com/bimotal/motordata/internal/source"

	// Register source implementations.
	_ "github.com/bimotal/motordata/internal/source/posthog"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nreceived %v, shutting down...\n", sig)
		cancel()
	}()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles what every subcommand needs once the configuration is loaded.
type app struct {
	cfg  config.Config
	pipe *pipeline.Pipeline
	arch *archive.Archive
}

func (a *app) close() {
	if a.arch != nil {
		a.arch.Close()
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "motordata",
		Short:         "Download and aggregate Motor Data telemetry from PostHog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default motordata.yaml when present)")

	cmd.AddCommand(
		fetchCmd(&configPath),
		listCmd(&configPath),
		bulkCmd(&configPath),
		seriesCmd(&configPath),
	)
	return cmd
}

// newApp loads configuration, initializes logging, and builds the pipeline.
// remote controls whether API credentials are required; mutate (optional)
// adjusts the loaded configuration before anything is wired.
func newApp(configPath string, remote bool, mutate func(*config.Config)) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	logging.Init(cfg.Logging.JSON, logging.ParseLevel(cfg.Logging.Level))

	if remote {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	ctor, err := source.Get("posthog")
	if err != nil {
		return nil, err
	}
	src := ctor(source.Config{
		InstanceURL: cfg.PostHog.InstanceURL,
		ProjectID:   cfg.PostHog.ProjectID,
		APIKey:      cfg.PostHog.APIKey,
		Timeout:     cfg.PostHog.Timeout(),
		PageLimit:   cfg.PostHog.PageLimit,
		MaxPages:    cfg.PostHog.MaxPages,
	})

	a := &app{cfg: cfg}
	opts := []pipeline.Option{pipeline.WithBulkConfig(cfg.Bulk)}
	if cfg.Archive.Enabled {
		arch, err := archive.Open(cfg.Archive.Path)
		if err != nil {
			return nil, err
		}
		a.arch = arch
		opts = append(opts, pipeline.WithArchive(arch))
	}
	a.pipe = pipeline.New(src, cfg.Output.MasterCSV, cfg.Output.SeriesDir, opts...)
	return a, nil
}
