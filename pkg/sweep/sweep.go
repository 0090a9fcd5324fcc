// Package sweep drives repeated measurements across buffer sizes, producing
// the points of a bandwidth curve.
package sweep

import (
	"context"
	"errors"
	"fmt"

	"github.com/pojntfx/rambench/pkg/bench"
)

var ErrNoIterations = errors.New("at least one iteration is required")

type Runner interface {
	Run(p bench.Pattern, size int) (float64, error)
}

// Measurement is a single point on the curve. Failed measurements carry
// bench.FailureSentinel as their throughput.
type Measurement struct {
	Pattern    bench.Pattern `json:"pattern"`
	Size       int           `json:"size"`
	Iteration  int           `json:"iteration"`
	Throughput float64       `json:"throughput"`
	Failed     bool          `json:"failed,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type Options struct {
	Patterns   []bench.Pattern
	Sizes      []int
	Iterations int

	// OnProgress is called before every measurement with the fraction of the
	// sweep already completed.
	OnProgress func(p bench.Pattern, size, iteration int, progress float64)
	// OnMeasurement is called after every measurement; returning an error
	// stops the sweep.
	OnMeasurement func(m Measurement) error
}

// Sizes returns min, 2*min, 4*min, ... up to and including max.
func Sizes(min, max int) ([]int, error) {
	if min < bench.MinSize {
		return nil, fmt.Errorf("%w: minimum size %v", bench.ErrInvalidSize, min)
	}

	if max < min {
		return nil, fmt.Errorf("maximum size %v is smaller than minimum size %v", max, min)
	}

	sizes := []int{}
	for size := min; size < max; size *= 2 {
		sizes = append(sizes, size)

		if size > max/2 {
			break
		}
	}

	if len(sizes) == 0 || sizes[len(sizes)-1] != max {
		sizes = append(sizes, max)
	}

	return sizes, nil
}

// Run measures every pattern over every size, one pattern at a time, each
// Iterations times. Measurements run sequentially; a cancelled context stops
// the sweep after the measurement in progress.
func Run(ctx context.Context, r Runner, opts Options) ([]Measurement, error) {
	if opts.Iterations < 1 {
		return nil, ErrNoIterations
	}

	patterns := opts.Patterns
	if len(patterns) == 0 {
		patterns = bench.Patterns()
	}

	for _, size := range opts.Sizes {
		if size < bench.MinSize {
			return nil, fmt.Errorf("%w: %v", bench.ErrInvalidSize, size)
		}
	}

	var (
		total        = len(patterns) * len(opts.Sizes) * opts.Iterations
		step         = 0
		measurements = make([]Measurement, 0, total)
	)
	for _, p := range patterns {
		for _, size := range opts.Sizes {
			for i := 0; i < opts.Iterations; i++ {
				if err := ctx.Err(); err != nil {
					return measurements, err
				}

				if opts.OnProgress != nil {
					opts.OnProgress(p, size, i, float64(step)/float64(total))
				}

				m := Measurement{
					Pattern:   p,
					Size:      size,
					Iteration: i,
				}

				rv, err := r.Run(p, size)
				if err != nil {
					m.Throughput = bench.FailureSentinel
					m.Failed = true
					m.Error = err.Error()
				} else {
					m.Throughput = rv
				}

				measurements = append(measurements, m)
				step++

				if opts.OnMeasurement != nil {
					if err := opts.OnMeasurement(m); err != nil {
						return measurements, err
					}
				}
			}
		}
	}

	return measurements, nil
}
