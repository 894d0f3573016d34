package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/tidesweep/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "tidesweep",
		Usage:    "Sweep listened tracks out of a Tidal playlist using Last.fm history",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Error("application error", "error", err)
		if errors.Is(err, shared.ErrInvalidConfig) || errors.Is(err, shared.ErrMissingConfig) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
