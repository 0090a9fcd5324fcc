// Package bench measures sequential read, write and copy throughput of main
// memory.
//
// Every measurement allocates its own buffers, runs the operation once
// untimed to fault in pages and warm caches, TLB and branch predictors, then
// times one identical pass. Buffers are released before returning, on every
// path.
package bench

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pojntfx/rambench/pkg/kernels"
	"github.com/pojntfx/rambench/pkg/memory"
	"github.com/pojntfx/rambench/pkg/throughput"
)

// FailureSentinel is returned by the sentinel entry points when a buffer
// could not be allocated.
const FailureSentinel = -1.0

// MinSize is the smallest measurable buffer, one 128-bit chunk.
const MinSize = 16

var (
	ErrInvalidSize  = errors.New("buffer size is below the minimum")
	ErrInvalidWidth = errors.New("unsupported chunk width")
)

// Written after every pass so the loops can't be eliminated.
var (
	sumSink  atomic.Uint64
	byteSink atomic.Uint32
)

type Benchmark struct {
	Allocator memory.Allocator
	Width     kernels.Width
}

func New() *Benchmark {
	return &Benchmark{
		Allocator: memory.AnonymousAllocator{},
		Width:     kernels.DefaultWidth(),
	}
}

func (b *Benchmark) allocator() memory.Allocator {
	if b.Allocator == nil {
		return memory.AnonymousAllocator{}
	}

	return b.Allocator
}

func (b *Benchmark) width() (kernels.Width, error) {
	if b.Width == 0 {
		return kernels.DefaultWidth(), nil
	}

	if !b.Width.Valid() {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWidth, int(b.Width))
	}

	return b.Width, nil
}

func checkSize(size int) error {
	if size < MinSize {
		return fmt.Errorf("%w: got %v bytes, need at least %v", ErrInvalidSize, size, MinSize)
	}

	return nil
}

func release(r memory.Region, err *error) {
	if rerr := r.Release(); rerr != nil && *err == nil {
		*err = fmt.Errorf("could not release buffer: %w", rerr)
	}
}

// Read returns the throughput of summing a size byte buffer. Bytes past the
// last full chunk are not read and the pass is timed over size regardless.
func (b *Benchmark) Read(size int) (rv float64, err error) {
	if err := checkSize(size); err != nil {
		return FailureSentinel, err
	}

	w, err := b.width()
	if err != nil {
		return FailureSentinel, err
	}

	r, err := b.allocator().Allocate(size)
	if err != nil {
		return FailureSentinel, err
	}
	defer release(r, &err)

	buf := r.Bytes()
	kernels.Fill(buf, w)

	sumSink.Store(kernels.Sum(buf, w))

	beforeRead := time.Now()

	sumSink.Store(kernels.Sum(buf, w))

	afterRead := time.Since(beforeRead)

	return throughput.FromDuration(size, afterRead), nil
}

// Write returns the throughput of storing the fill pattern across a size byte
// buffer, including its trailing partial chunk.
func (b *Benchmark) Write(size int) (rv float64, err error) {
	if err := checkSize(size); err != nil {
		return FailureSentinel, err
	}

	w, err := b.width()
	if err != nil {
		return FailureSentinel, err
	}

	r, err := b.allocator().Allocate(size)
	if err != nil {
		return FailureSentinel, err
	}
	defer release(r, &err)

	buf := r.Bytes()

	kernels.Fill(buf, w)
	byteSink.Store(uint32(buf[size-1]))

	beforeWrite := time.Now()

	kernels.Fill(buf, w)
	byteSink.Store(uint32(buf[size-1]))

	afterWrite := time.Since(beforeWrite)

	return throughput.FromDuration(size, afterWrite), nil
}

// Copy returns the throughput of copying a size byte buffer into a second
// one. Throughput counts size bytes, not the bytes read plus written.
func (b *Benchmark) Copy(size int) (rv float64, err error) {
	if err := checkSize(size); err != nil {
		return FailureSentinel, err
	}

	w, err := b.width()
	if err != nil {
		return FailureSentinel, err
	}
	a := b.allocator()

	srcRegion, err := a.Allocate(size)
	if err != nil {
		return FailureSentinel, err
	}
	defer release(srcRegion, &err)

	dstRegion, err := a.Allocate(size)
	if err != nil {
		return FailureSentinel, err
	}
	defer release(dstRegion, &err)

	src, dst := srcRegion.Bytes(), dstRegion.Bytes()
	kernels.Fill(src, w)

	kernels.Copy(dst, src, w)
	byteSink.Store(uint32(dst[size-1]))

	beforeCopy := time.Now()

	kernels.Copy(dst, src, w)
	byteSink.Store(uint32(dst[size-1]))

	afterCopy := time.Since(beforeCopy)

	return throughput.FromDuration(size, afterCopy), nil
}

// Run measures the given access pattern.
func (b *Benchmark) Run(p Pattern, size int) (float64, error) {
	switch p {
	case PatternRead:
		return b.Read(size)
	case PatternWrite:
		return b.Write(size)
	case PatternCopy:
		return b.Copy(size)
	default:
		return FailureSentinel, fmt.Errorf("%w: %q", ErrUnknownPattern, string(p))
	}
}
