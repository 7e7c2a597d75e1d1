package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nibble/internal/engine"
	"github.com/samcharles93/nibble/internal/logger"
)

func roundTripCmd() *cli.Command {
	var (
		rows int64
		cols int64
		seed int64
	)

	return &cli.Command{
		Name:  "roundtrip",
		Usage: "Compare both schemes on a generated sample",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:        "rows",
				Value:       320,
				Destination: &rows,
			},
			&cli.Int64Flag{
				Name:        "cols",
				Value:       640,
				Destination: &cols,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "sample seed",
				Destination: &seed,
			},
			&cli.StringFlag{
				Name:        "dtype",
				Usage:       "element type (f32, f64)",
				Value:       "f32",
				Destination: &dtypeName,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the result as JSON",
				Destination: &jsonOut,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cfg := configFrom(ctx); cfg.DType != "" && !cmd.IsSet("dtype") {
				dtypeName = cfg.DType
			}
			eng := engine.New(logger.FromContext(ctx))
			res, err := eng.RoundTrip(ctx, &engine.RoundTripRequest{
				Rows:  int(rows),
				Cols:  int(cols),
				Seed:  uint64(seed),
				DType: dtypeName,
			})
			if err != nil {
				return commandError(err)
			}
			if jsonOut {
				return writeJSON(stdout(cmd), res)
			}
			return printRoundTrip(stdout(cmd), int(rows), int(cols), res)
		},
	}
}
