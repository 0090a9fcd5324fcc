// Package memory provides the regions benchmarks run over.
//
// A Region is owned by a single caller and must be released exactly once.
// Allocators report refusal with an error wrapping ErrAllocation instead of
// aborting the process, which is why the default allocators map memory
// directly rather than using the Go heap.
package memory

import (
	"errors"
	"fmt"
)

var (
	ErrAllocation  = errors.New("could not allocate memory region")
	ErrInvalidSize = errors.New("invalid region size")
)

type Region interface {
	Bytes() []byte
	Release() error
}

type Allocator interface {
	Allocate(size int) (Region, error)
}

// ParseAllocator returns the allocator with the given name. dir is only used
// by the file allocator and may be empty.
func ParseAllocator(name, dir string) (Allocator, error) {
	switch name {
	case "", "anonymous":
		return AnonymousAllocator{}, nil
	case "populated":
		return PopulatedAllocator{}, nil
	case "file":
		return FileAllocator{Dir: dir}, nil
	case "heap":
		return HeapAllocator{}, nil
	default:
		return nil, fmt.Errorf("unknown allocator %q", name)
	}
}

func allocationError(size int, err error) error {
	return fmt.Errorf("%w of %v bytes: %v", ErrAllocation, size, err)
}

func checkSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidSize, size)
	}

	return nil
}
