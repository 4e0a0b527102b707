package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pthm-cable/evolve/config"
	"github.com/pthm-cable/evolve/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = use config)")
	generations := flag.Int("generations", 0, "Generations to run (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, frames and snapshots")
	storePath := flag.String("store", "", "SQLite file for run history")
	renderFrames := flag.Bool("render", false, "Export PNG frames (requires an output directory)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// CLI overrides
	if *seed != 0 {
		cfg.Sim.Seed = *seed
	}
	if *generations > 0 {
		cfg.Population.Generations = *generations
	}
	if *outputDir != "" {
		cfg.Telemetry.OutputDir = *outputDir
	}
	if *storePath != "" {
		cfg.Store.Path = *storePath
	}
	if *renderFrames {
		cfg.Render.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := sim.New(cfg)
	if err != nil {
		slog.Error("failed to create simulator", "error", err)
		os.Exit(1)
	}

	slog.Info("starting simulation",
		"seed", cfg.Sim.Seed,
		"generations", cfg.Population.Generations,
		"steps_per_generation", cfg.Population.StepsPerGeneration,
		"output_dir", cfg.Telemetry.OutputDir,
	)

	out, err := s.Run(ctx)
	if cerr := s.Close(); cerr != nil {
		slog.Error("closing outputs", "error", cerr)
	}
	switch {
	case errors.Is(err, context.Canceled):
		slog.Info("interrupted", "generations", out.Generations)
	case err != nil:
		slog.Error("simulation failed", "error", err, "generations", out.Generations)
		os.Exit(1)
	}
}
