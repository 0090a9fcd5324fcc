package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	units "github.com/docker/go-units"
	"github.com/pojntfx/rambench/pkg/bench"
	"github.com/pojntfx/rambench/pkg/sweep"
	"github.com/pojntfx/rambench/pkg/utils"
	"github.com/spf13/cobra"
)

const (
	minSizeFlag    = "min-size"
	maxSizeFlag    = "max-size"
	iterationsFlag = "iterations"
	patternsFlag   = "patterns"
	formatFlag     = "format"
	outputFlag     = "output"
)

func addSweepFlags(cmd *cobra.Command) {
	cmd.Flags().String(minSizeFlag, "4KiB", "Smallest buffer size")
	cmd.Flags().String(maxSizeFlag, "256MiB", "Largest buffer size")
	cmd.Flags().Int(iterationsFlag, 1, "Measurements per pattern and size")
	cmd.Flags().StringSlice(patternsFlag, []string{string(bench.PatternRead), string(bench.PatternWrite), string(bench.PatternCopy)}, "Access patterns to measure")
	cmd.Flags().String(formatFlag, "text", "Output format (text, json or framed)")
	cmd.Flags().StringP(outputFlag, "o", "-", "File to write measurements to; - for stdout")
}

func newSweepCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Measure a doubling series of buffer sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.benchmark(cmd.Context())
			if err != nil {
				return err
			}

			return a.sweep(cmd, b)
		},
	}

	addSweepFlags(cmd)

	return cmd
}

type measurementWriter func(m sweep.Measurement) error

func newMeasurementWriter(w io.Writer, format string) (measurementWriter, error) {
	switch format {
	case "text":
		return func(m sweep.Measurement) error {
			if m.Failed {
				_, err := fmt.Fprintf(w, "%v\t%v\t%v\tfailed: %v\n", m.Pattern, units.BytesSize(float64(m.Size)), m.Iteration, m.Error)

				return err
			}

			_, err := fmt.Fprintf(w, "%v\t%v\t%v\t%.2f MB/s\n", m.Pattern, units.BytesSize(float64(m.Size)), m.Iteration, m.Throughput)

			return err
		}, nil
	case "json":
		enc := json.NewEncoder(w)

		return func(m sweep.Measurement) error {
			return enc.Encode(m)
		}, nil
	case "framed":
		enc := utils.NewFramedEncoder(w)

		return func(m sweep.Measurement) error {
			return enc.Encode(m)
		}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

func (a *app) sweep(cmd *cobra.Command, r sweep.Runner) error {
	minSize, err := parseSize(a.v.GetString(minSizeFlag))
	if err != nil {
		return err
	}

	maxSize, err := parseSize(a.v.GetString(maxSizeFlag))
	if err != nil {
		return err
	}

	sizes, err := sweep.Sizes(minSize, maxSize)
	if err != nil {
		return err
	}

	patterns, err := parsePatterns(a.v.GetStringSlice(patternsFlag))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if output := a.v.GetString(outputFlag); output != "-" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()

		out = f
	}

	write, err := newMeasurementWriter(out, a.v.GetString(formatFlag))
	if err != nil {
		return err
	}

	a.logger.Info("Starting sweep", "sizes", len(sizes), "patterns", patterns, "iterations", a.v.GetInt(iterationsFlag))

	measurements, err := sweep.Run(cmd.Context(), r, sweep.Options{
		Patterns:   patterns,
		Sizes:      sizes,
		Iterations: a.v.GetInt(iterationsFlag),
		OnProgress: func(p bench.Pattern, size, iteration int, progress float64) {
			a.logger.Debug("Measuring", "pattern", p, "size", units.BytesSize(float64(size)), "iteration", iteration, "progress", fmt.Sprintf("%.0f%%", progress*100))
		},
		OnMeasurement: func(m sweep.Measurement) error {
			if m.Failed {
				a.logger.Warn("Measurement failed", "pattern", m.Pattern, "size", m.Size, "error", m.Error)
			}

			return write(m)
		},
	})
	if err != nil {
		return err
	}

	a.logger.Info("Completed sweep", "measurements", len(measurements))

	return nil
}
