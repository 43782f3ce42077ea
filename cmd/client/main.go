package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/digestry/digestry/internal/client/cli"
	"github.com/digestry/digestry/internal/client/config"
	"github.com/digestry/digestry/internal/flagx"
	"github.com/digestry/digestry/internal/logging"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	// Diagnostics go to stderr so command output stays pipeable.
	logger := logging.NewTextLogger(os.Stderr, slog.LevelWarn)

	app := cli.NewApp(cfg, os.Stdout, logger)
	if err := app.Run(ctx, flagx.PositionalArgs(os.Args[1:])); err != nil {
		log.Fatalf("%v", err)
	}
}
