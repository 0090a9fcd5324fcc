package memory

import (
	"golang.org/x/sys/unix"
)

type populatedRegion struct {
	b []byte
}

func (r *populatedRegion) Bytes() []byte {
	return r.b
}

func (r *populatedRegion) Release() error {
	return unix.Munmap(r.b)
}

// PopulatedAllocator maps private anonymous memory and pre-faults every page
// before returning it.
type PopulatedAllocator struct{}

func (PopulatedAllocator) Allocate(size int) (Region, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}

	b, err := unix.Mmap(
		-1,
		0,
		size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_POPULATE,
	)
	if err != nil {
		return nil, allocationError(size, err)
	}

	return &populatedRegion{b}, nil
}
