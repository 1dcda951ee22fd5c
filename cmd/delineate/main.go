// Command delineate runs the full wetland delineation pipeline from a YAML
// run configuration. Stages whose outputs already exist are skipped, so an
// interrupted run resumes where it stopped.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	"wetland-mapper/internal/pipeline"
	"wetland-mapper/internal/version"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML run configuration")
	root := flag.String("root", ".", "Store root directory (parent of the input directory)")
	force := flag.Bool("force", false, "Recompute every stage, ignoring existing outputs")
	verbose := flag.Bool("v", false, "Debug logging")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("delineate", version.String())
		return
	}
	if *configPath == "" {
		fmt.Println("Usage: delineate -config <run.yaml> [-root <dir>] [-force] [-v]")
		os.Exit(1)
	}

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().
		Timestamp().
		Logger()

	log.Info().Str("version", version.String()).Msg("delineate")

	cfg, err := pipeline.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("configuration rejected")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := &pipeline.Runner{
		Cfg:   cfg,
		Store: pipeline.NewFSStore(*root, cfg.CRS, cfg.InputNoData()),
		Log:   log,
		Force: *force,
	}
	if err := runner.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("pipeline failed")
	}
	log.Info().Msg("pipeline complete")
}
