package memory

import (
	"errors"
	"os"

	"github.com/edsrzf/mmap-go"
)

type fileRegion struct {
	b    mmap.MMap
	file *os.File
}

func (r *fileRegion) Bytes() []byte {
	return r.b
}

func (r *fileRegion) Release() error {
	err := r.b.Unmap()

	return errors.Join(err, r.file.Close(), os.Remove(r.file.Name()))
}

// FileAllocator maps a temporary file in Dir (or the default temporary
// directory), so the region is backed by the page cache. The file is removed
// on release.
type FileAllocator struct {
	Dir string
}

func (a FileAllocator) Allocate(size int) (Region, error) {
	if err := checkSize(size); err != nil {
		return nil, err
	}

	file, err := os.CreateTemp(a.Dir, "rambench-*")
	if err != nil {
		return nil, allocationError(size, err)
	}

	cleanup := func() {
		_ = file.Close()

		_ = os.Remove(file.Name())
	}

	if err := file.Truncate(int64(size)); err != nil {
		cleanup()

		return nil, allocationError(size, err)
	}

	b, err := mmap.MapRegion(file, size, mmap.RDWR, 0, 0)
	if err != nil {
		cleanup()

		return nil, allocationError(size, err)
	}

	return &fileRegion{b, file}, nil
}
