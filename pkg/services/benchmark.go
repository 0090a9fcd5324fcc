package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/pojntfx/rambench/pkg/bench"
	"github.com/pojntfx/rambench/pkg/host"
	"github.com/pojntfx/rambench/pkg/metrics"
	"golang.org/x/sync/semaphore"
)

var ErrBusy = errors.New("another measurement is running")

type Runner interface {
	Run(p bench.Pattern, size int) (float64, error)
}

type BenchmarkRemote struct {
	Read  func(ctx context.Context, size int) (float64, error)
	Write func(ctx context.Context, size int) (float64, error)
	Copy  func(ctx context.Context, size int) (float64, error)
	Info  func(ctx context.Context) (host.Info, error)
}

type BenchmarkOptions struct {
	// SkipBusy rejects calls with ErrBusy instead of queueing them while a
	// measurement is running.
	SkipBusy bool
	Verbose  bool
	Metrics  *metrics.Metrics
}

// Benchmark exposes a runner to remote callers. Measurements never overlap,
// since concurrent ones would compete for the same memory bandwidth.
type Benchmark struct {
	runner  Runner
	lock    *semaphore.Weighted
	options *BenchmarkOptions
}

func NewBenchmark(runner Runner, options *BenchmarkOptions) *Benchmark {
	if options == nil {
		options = &BenchmarkOptions{}
	}

	return &Benchmark{
		runner:  runner,
		lock:    semaphore.NewWeighted(1),
		options: options,
	}
}

func (b *Benchmark) Read(ctx context.Context, size int) (float64, error) {
	return b.measure(ctx, bench.PatternRead, size)
}

func (b *Benchmark) Write(ctx context.Context, size int) (float64, error) {
	return b.measure(ctx, bench.PatternWrite, size)
}

func (b *Benchmark) Copy(ctx context.Context, size int) (float64, error) {
	return b.measure(ctx, bench.PatternCopy, size)
}

func (b *Benchmark) Info(ctx context.Context) (host.Info, error) {
	return host.GetInfo(ctx)
}

func (b *Benchmark) measure(ctx context.Context, p bench.Pattern, size int) (float64, error) {
	if b.options.SkipBusy {
		if !b.lock.TryAcquire(1) {
			if b.options.Metrics != nil {
				b.options.Metrics.RejectedTotal.Inc()
			}

			return bench.FailureSentinel, ErrBusy
		}
	} else if err := b.lock.Acquire(ctx, 1); err != nil {
		return bench.FailureSentinel, err
	}
	defer b.lock.Release(1)

	if b.options.Verbose {
		log.Printf("%v(%v)", p, size)
	}

	before := time.Now()

	rv, err := b.runner.Run(p, size)

	duration := time.Since(before)

	if b.options.Metrics != nil {
		b.options.Metrics.Observe(string(p), size, rv, err, duration)
	}

	if b.options.Verbose {
		log.Printf("%v(%v) = %v MB/s, err=%v, took %v", p, size, rv, err, duration)
	}

	return rv, err
}

// RemoteRunner runs measurements on a remote peer.
type RemoteRunner struct {
	ctx    context.Context
	remote *BenchmarkRemote
}

func NewRemoteRunner(ctx context.Context, remote *BenchmarkRemote) *RemoteRunner {
	return &RemoteRunner{ctx, remote}
}

func (r *RemoteRunner) Run(p bench.Pattern, size int) (float64, error) {
	switch p {
	case bench.PatternRead:
		return r.remote.Read(r.ctx, size)
	case bench.PatternWrite:
		return r.remote.Write(r.ctx, size)
	case bench.PatternCopy:
		return r.remote.Copy(r.ctx, size)
	default:
		return bench.FailureSentinel, bench.ErrUnknownPattern
	}
}
