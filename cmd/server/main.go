// Package main implements the entry point for the Scry Cue server, which
// schedules flashcard reviews and decides when gameplay events should
// interrupt play with one.
package main

import (
	"context"
	"flag"
	"log"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: ./config.yaml if present)")
	flag.Parse()

	if err := run(context.Background(), *configPath); err != nil {
		log.Fatalf("scry-cue: %v", err)
	}
}

// run loads configuration, wires the application and serves until a
// shutdown signal arrives or ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := loadAppConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := setupAppLogger(cfg)
	if err != nil {
		return err
	}

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return app.Run(ctx)
}
