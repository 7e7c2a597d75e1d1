package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/nibble/internal/engine"
	"github.com/samcharles93/nibble/internal/quality"
	"github.com/samcharles93/nibble/pkg/quant"
)

func stdout(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}

func writeJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

func formatFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'g', 6, 64)
	}
	return strings.Join(parts, " ")
}

func formatInts[T ~int | ~uint8](vs []T) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.Itoa(int(v))
	}
	return strings.Join(parts, " ")
}

func formatParams(p quant.Params) string {
	if p.Offset == 0 {
		return fmt.Sprintf("scale=%g", p.Scale)
	}
	return fmt.Sprintf("scale=%g offset=%g", p.Scale, p.Offset)
}

func formatQuality(r quality.Report) string {
	return fmt.Sprintf("mean=%.6f max=%.6f std=%.6f (n=%d)", r.MeanAbs, r.MaxAbs, r.StdDev, r.Count)
}

func printQuantize(w io.Writer, res *engine.QuantizeResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "tensor:\t%s\n", res.ID)
	fmt.Fprintf(tw, "device:\t%s (%s)\n", res.Device, res.DType)
	fmt.Fprintf(tw, "shape:\t%v\n", res.Shape)
	fmt.Fprintf(tw, "params:\t%s\n", formatParams(res.Params))
	fmt.Fprintf(tw, "bytes:\t%d\n", res.Bytes)
	fmt.Fprintf(tw, "codes:\t%s\n", formatInts(res.Codes))
	fmt.Fprintf(tw, "restored:\t%s\n", formatFloats(res.Restored))
	fmt.Fprintf(tw, "abs error:\t%s\n", formatQuality(res.Quality))
	return tw.Flush()
}

func printDropout(w io.Writer, res *engine.DropoutResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "tensor:\t%s\n", res.ID)
	fmt.Fprintf(tw, "device:\t%s (%s)\n", res.Device, res.DType)
	fmt.Fprintf(tw, "shape:\t%v\n", res.Shape)
	fmt.Fprintf(tw, "params:\t%s\n", formatParams(res.Params))
	fmt.Fprintf(tw, "input:\t%s\n", formatFloats(res.Input))
	fmt.Fprintf(tw, "output:\t%s\n", formatFloats(res.Output))
	fmt.Fprintf(tw, "dropped:\t%d of %d [%s]\n", len(res.Dropped), len(res.Input), formatInts(res.Dropped))
	if res.GradInput != nil {
		fmt.Fprintf(tw, "grad input:\t%s\n", formatFloats(res.GradInput))
	}
	return tw.Flush()
}

func printRoundTrip(w io.Writer, rows, cols int, results []engine.RoundTripResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "sample:\t%dx%d tanh(|x|^1.4)+3\n", rows, cols)
	fmt.Fprintln(tw, "DEVICE\tDTYPE\tPARAMS\tBYTES\tMEAN\tMAX\tSTD")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.6f\t%.6f\t%.6f\n",
			r.Device, r.DType, formatParams(r.Params), r.Bytes,
			r.Quality.MeanAbs, r.Quality.MaxAbs, r.Quality.StdDev)
	}
	return tw.Flush()
}
