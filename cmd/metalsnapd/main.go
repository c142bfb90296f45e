package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/metalsnapd/internal/config"
	"codeberg.org/mutker/metalsnapd/internal/logger"
	"codeberg.org/mutker/metalsnapd/internal/metals"
	"codeberg.org/mutker/metalsnapd/internal/pid"
	"codeberg.org/mutker/metalsnapd/internal/pipeline"
	"codeberg.org/mutker/metalsnapd/internal/snapshot"
)

func main() {
	monitor, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg := monitor.Current()

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")

	if err := pid.Write(); err != nil {
		logger.FatalWithCode(err).Msg("Failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
	}()

	if err := run(monitor, cfg); err != nil {
		_ = pid.Remove()
		logger.FatalWithCode(err).Msg("Snapshot pipeline crashed")
	}

	logger.Info().Msg("Exiting...")
}

func run(monitor *config.Monitor, cfg config.Config) error {
	store, err := snapshot.NewStore(snapshot.Config{DBPath: cfg.Database})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close snapshot store")
		}
	}()

	client := metals.NewClient(metals.Config{
		KeyFunc: func() string { return monitor.Current().APIKey },
		Timeout: time.Duration(cfg.SourceTimeout) * time.Second,
	})

	monitor.Watch()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	return pipeline.New(monitor, client, store, nil).Run(ctx)
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
