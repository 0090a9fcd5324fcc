package memory

import (
	"fmt"
)

// MaxHeapSize bounds HeapAllocator requests. Exhausting the Go heap aborts
// the process instead of returning an error.
const MaxHeapSize = 256 * 1024 * 1024

type heapRegion struct {
	b []byte
}

func (r *heapRegion) Bytes() []byte {
	return r.b
}

func (r *heapRegion) Release() error {
	r.b = nil

	return nil
}

type HeapAllocator struct{}

func (HeapAllocator) Allocate(size int) (Region, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}

	if size > MaxHeapSize {
		return nil, allocationError(size, fmt.Errorf("exceeds heap limit of %v bytes", MaxHeapSize))
	}

	return &heapRegion{make([]byte, size)}, nil
}
