package main

import "github.com/urfave/cli/v3"

var (
	logLevel  string
	logFormat string
	debug     bool

	schemeName string
	dtypeName  string
	valuesCSV  string
	inputPath  string
	shapeArg   string
	jsonOut    bool
)

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (auto, pretty, json, text)",
			Value:       "auto",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func schemeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "scheme",
			Aliases:     []string{"s"},
			Usage:       "quantization scheme (scaled, offset)",
			Value:       "scaled",
			Destination: &schemeName,
		},
		&cli.StringFlag{
			Name:        "dtype",
			Usage:       "element type (f32, f64)",
			Value:       "f32",
			Destination: &dtypeName,
		},
	}
}

func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "values",
			Aliases:     []string{"v"},
			Usage:       "comma separated input values",
			Destination: &valuesCSV,
		},
		&cli.StringFlag{
			Name:        "input",
			Aliases:     []string{"i"},
			Usage:       "JSON file holding an array of values or {\"values\": [...], \"shape\": [...]}",
			Destination: &inputPath,
		},
		&cli.StringFlag{
			Name:        "shape",
			Usage:       "tensor shape, e.g. 4x8 (defaults to a vector)",
			Destination: &shapeArg,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print the result as JSON",
			Destination: &jsonOut,
		},
	}
}
