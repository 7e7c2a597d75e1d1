package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nibble/internal/logger"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:   "nibble",
		Usage:  "Half-byte quantized tensors and dropout",
		Flags:  loggingFlags(),
		Before: setupLogging,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return cli.ShowAppHelp(cmd)
		},
		Commands: []*cli.Command{
			quantizeCmd(),
			dropoutCmd(),
			roundTripCmd(),
			serveCmd(),
			versionCmd(),
		},
	}
}

// setupLogging builds the logger from flags and the config file and stores
// it in the context every subcommand receives.
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, cfgErr := LoadConfig()
	applyLoggingConfig(cmd, cfg)
	level := logLevel
	if debug {
		level = "debug"
	}
	log, err := logger.Open(os.Stderr, logFormat, level)
	if err != nil {
		return ctx, cli.Exit(err.Error(), 1)
	}
	if cfgErr != nil {
		log.Warn("ignoring config file", "path", configPath(), "error", cfgErr)
	}
	ctx = logger.WithContext(ctx, log)
	return withConfig(ctx, cfg), nil
}
