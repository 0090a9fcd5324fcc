package main

import (
	"fmt"

	units "github.com/docker/go-units"
	"github.com/pojntfx/rambench/pkg/bench"
	"github.com/spf13/cobra"
)

const sizeFlag = "size"

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "run <read|write|copy>",
		Short:     "Measure one access pattern once and print the throughput in MB/s",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(bench.PatternRead), string(bench.PatternWrite), string(bench.PatternCopy)},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := bench.ParsePattern(args[0])
			if err != nil {
				return err
			}

			size, err := parseSize(a.v.GetString(sizeFlag))
			if err != nil {
				return err
			}

			b, err := a.benchmark(cmd.Context())
			if err != nil {
				return err
			}

			rv, err := b.Run(p, size)
			if err != nil {
				return err
			}

			a.logger.Debug("Measured", "pattern", p, "size", units.BytesSize(float64(size)), "throughput", rv)

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rv)

			return err
		},
	}

	cmd.Flags().String(sizeFlag, "64MiB", "Buffer size (e.g. 4096, 32KiB, 256MiB)")

	return cmd
}
