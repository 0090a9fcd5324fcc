package memory

import (
	"fmt"
	"sync/atomic"
)

// LimitAllocator refuses requests that would bring the bytes held by its
// unreleased regions above Limit, without consulting the wrapped allocator.
// The buffers of one copy measurement therefore share the limit.
type LimitAllocator struct {
	Allocator Allocator
	Limit     int

	used atomic.Int64
}

func NewLimitAllocator(allocator Allocator, limit int) *LimitAllocator {
	return &LimitAllocator{
		Allocator: allocator,
		Limit:     limit,
	}
}

// InUse returns the bytes held by regions that have not been released yet.
func (a *LimitAllocator) InUse() int {
	return int(a.used.Load())
}

func (a *LimitAllocator) Allocate(size int) (Region, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}

	for {
		used := a.used.Load()
		if int64(size) > int64(a.Limit)-used {
			return nil, allocationError(size, fmt.Errorf("exceeds limit of %v bytes with %v bytes in use", a.Limit, used))
		}

		if a.used.CompareAndSwap(used, used+int64(size)) {
			break
		}
	}

	r, err := a.Allocator.Allocate(size)
	if err != nil {
		a.used.Add(-int64(size))

		return nil, err
	}

	return &limitedRegion{Region: r, allocator: a, size: size}, nil
}

type limitedRegion struct {
	Region

	allocator *LimitAllocator
	size      int
	released  atomic.Bool
}

func (r *limitedRegion) Release() error {
	if !r.released.CompareAndSwap(false, true) {
		return nil
	}

	defer r.allocator.used.Add(-int64(r.size))

	return r.Region.Release()
}
