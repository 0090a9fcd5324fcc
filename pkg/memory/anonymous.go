package memory

import (
	"github.com/edsrzf/mmap-go"
)

type mappedRegion struct {
	b mmap.MMap
}

func (r *mappedRegion) Bytes() []byte {
	return r.b
}

func (r *mappedRegion) Release() error {
	return r.b.Unmap()
}

// AnonymousAllocator maps private anonymous memory. Pages are faulted in on
// first touch.
type AnonymousAllocator struct{}

func (AnonymousAllocator) Allocate(size int) (Region, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}

	b, err := mmap.MapRegion(nil, size, mmap.RDWR, mmap.ANON, 0)
	if err != nil {
		return nil, allocationError(size, err)
	}

	return &mappedRegion{b}, nil
}
