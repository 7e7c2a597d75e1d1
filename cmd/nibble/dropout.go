package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nibble/internal/engine"
	"github.com/samcharles93/nibble/internal/logger"
)

func dropoutCmd() *cli.Command {
	var (
		prob    float64
		seed    int64
		gradArg string
	)

	return &cli.Command{
		Name:  "dropout",
		Usage: "Apply dropout to quantized values",
		Flags: append(append(schemeFlags(), inputFlags()...),
			&cli.Float64Flag{
				Name:        "p",
				Aliases:     []string{"prob"},
				Usage:       "drop probability in [0, 1]",
				Value:       0.5,
				Destination: &prob,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "mask seed",
				Value:       0,
				Destination: &seed,
			},
			&cli.StringFlag{
				Name:        "grad-output",
				Usage:       "comma separated output gradient; runs the backward pass",
				Destination: &gradArg,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyDropoutConfig(cmd, configFrom(ctx), &prob, &seed)
			values, shape, err := loadInput(valuesCSV, inputPath, shapeArg)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			req := &engine.DropoutRequest{
				Values: values,
				Shape:  shape,
				Scheme: schemeName,
				DType:  dtypeName,
				Prob:   prob,
				Seed:   uint64(seed),
			}
			if gradArg != "" {
				if req.GradOutput, err = parseValues(gradArg); err != nil {
					return cli.Exit("grad-output: "+err.Error(), 1)
				}
			}

			eng := engine.New(logger.FromContext(ctx))
			res, err := eng.Dropout(ctx, req)
			if err != nil {
				return commandError(err)
			}
			if jsonOut {
				return writeJSON(stdout(cmd), res)
			}
			return printDropout(stdout(cmd), res)
		},
	}
}
