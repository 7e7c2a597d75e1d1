package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nibble/internal/engine"
	"github.com/samcharles93/nibble/internal/logger"
)

func quantizeCmd() *cli.Command {
	return &cli.Command{
		Name:  "quantize",
		Usage: "Quantize values to half-byte codes and report the round-trip error",
		Flags: append(schemeFlags(), inputFlags()...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applySchemeConfig(cmd, configFrom(ctx))
			values, shape, err := loadInput(valuesCSV, inputPath, shapeArg)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			eng := engine.New(logger.FromContext(ctx))
			res, err := eng.Quantize(ctx, &engine.QuantizeRequest{
				Values: values,
				Shape:  shape,
				Scheme: schemeName,
				DType:  dtypeName,
			})
			if err != nil {
				return commandError(err)
			}
			if jsonOut {
				return writeJSON(stdout(cmd), res)
			}
			return printQuantize(stdout(cmd), res)
		},
	}
}

// commandError turns caller mistakes into a plain exit message.
func commandError(err error) error {
	if errors.Is(err, engine.ErrInvalidRequest) {
		return cli.Exit(err.Error(), 1)
	}
	return err
}
