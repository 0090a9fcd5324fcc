package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	units "github.com/docker/go-units"
	"github.com/pojntfx/rambench/pkg/bench"
	"github.com/pojntfx/rambench/pkg/host"
	"github.com/pojntfx/rambench/pkg/kernels"
	"github.com/pojntfx/rambench/pkg/memory"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configFlag         = "config"
	verboseFlag        = "verbose"
	logFormatFlag      = "log-format"
	allocatorFlag      = "allocator"
	dirFlag            = "dir"
	widthFlag          = "width"
	memoryFractionFlag = "memory-fraction"
)

type app struct {
	v      *viper.Viper
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "rambench",
		Short: "Measure sequential memory read, write and copy throughput",
		Long: `rambench measures how fast this machine reads, writes and copies memory
buffers of a given size, in MB/s. Sweeping sizes reveals the cache hierarchy.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}

			if cfgFile := a.v.GetString(configFlag); cfgFile != "" {
				a.v.SetConfigFile(cfgFile)

				if err := a.v.ReadInConfig(); err != nil {
					return fmt.Errorf("could not read config file: %w", err)
				}
			}

			logger, err := newLogger(cmd.ErrOrStderr(), a.v.GetBool(verboseFlag), a.v.GetString(logFormatFlag))
			if err != nil {
				return err
			}
			a.logger = logger

			return nil
		},
	}

	a.v.SetEnvPrefix("rambench")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	cmd.PersistentFlags().String(configFlag, "", "Config file (YAML, TOML or JSON)")
	cmd.PersistentFlags().BoolP(verboseFlag, "v", false, "Enable debug logging")
	cmd.PersistentFlags().String(logFormatFlag, "text", "Log format (text or json)")
	cmd.PersistentFlags().String(allocatorFlag, "anonymous", "Allocator to use (anonymous, populated, file or heap)")
	cmd.PersistentFlags().String(dirFlag, "", "Directory to create backing files in for the file allocator")
	cmd.PersistentFlags().String(widthFlag, "auto", "Chunk width in bytes (8, 16, 32, 64, scalar or auto)")
	cmd.PersistentFlags().Float64(memoryFractionFlag, 0.5, "Largest fraction of available memory the buffers of one measurement may use together; 0 disables the limit")

	cmd.AddCommand(
		newRunCmd(a),
		newSweepCmd(a),
		newInfoCmd(a),
		newServeCmd(a),
		newRemoteCmd(a),
	)

	return cmd
}

func newLogger(w io.Writer, verbose bool, format string) (*slog.Logger, error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// benchmark builds the local benchmark from the allocator, width and memory
// limit settings.
func (a *app) benchmark(ctx context.Context) (*bench.Benchmark, error) {
	w, err := kernels.ParseWidth(a.v.GetString(widthFlag))
	if err != nil {
		return nil, err
	}

	allocator, err := memory.ParseAllocator(a.v.GetString(allocatorFlag), a.v.GetString(dirFlag))
	if err != nil {
		return nil, err
	}

	if fraction := a.v.GetFloat64(memoryFractionFlag); fraction > 0 {
		limit, err := host.SafeLimit(ctx, fraction)
		if err != nil {
			return nil, err
		}

		a.logger.Debug("Limiting buffer size", "limit", units.BytesSize(float64(limit)), "fraction", fraction)

		allocator = memory.NewLimitAllocator(allocator, limit)
	}

	a.logger.Debug("Using benchmark", "allocator", a.v.GetString(allocatorFlag), "width", w)

	return &bench.Benchmark{
		Allocator: allocator,
		Width:     w,
	}, nil
}

func parseSize(s string) (int, error) {
	size, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}

	return int(size), nil
}

func parsePatterns(names []string) ([]bench.Pattern, error) {
	patterns := []bench.Pattern{}
	for _, name := range names {
		p, err := bench.ParsePattern(name)
		if err != nil {
			return nil, err
		}

		patterns = append(patterns, p)
	}

	return patterns, nil
}
