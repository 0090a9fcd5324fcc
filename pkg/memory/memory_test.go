package memory

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// infeasibleSize exceeds the user address space of every 64-bit platform.
const infeasibleSize = 1 << 50

func allocators(t *testing.T) map[string]Allocator {
	t.Helper()

	return map[string]Allocator{
		"anonymous": AnonymousAllocator{},
		"populated": PopulatedAllocator{},
		"file":      FileAllocator{Dir: t.TempDir()},
		"heap":      HeapAllocator{},
	}
}

func TestAllocateWriteRelease(t *testing.T) {
	for name, a := range allocators(t) {
		t.Run(name, func(t *testing.T) {
			const size = 3*4096 + 7

			r, err := a.Allocate(size)
			require.NoError(t, err)

			b := r.Bytes()
			require.Len(t, b, size)

			for i := range b {
				b[i] = byte(i)
			}
			assert.Equal(t, byte((size-1)%256), b[size-1])

			require.NoError(t, r.Release())
		})
	}
}

func TestAllocateInvalidSize(t *testing.T) {
	for name, a := range allocators(t) {
		t.Run(name, func(t *testing.T) {
			for _, size := range []int{0, -1} {
				r, err := a.Allocate(size)

				assert.Nil(t, r)
				assert.ErrorIs(t, err, ErrInvalidSize)
			}
		})
	}
}

func TestAllocateInfeasible(t *testing.T) {
	if strconv.IntSize < 64 {
		t.Skip("requires a 64-bit platform")
	}

	for _, a := range []Allocator{AnonymousAllocator{}, PopulatedAllocator{}, HeapAllocator{}} {
		r, err := a.Allocate(infeasibleSize)

		assert.Nil(t, r)
		assert.ErrorIs(t, err, ErrAllocation)
	}
}

func TestMappedRegionIsVectorAligned(t *testing.T) {
	r, err := AnonymousAllocator{}.Allocate(4096)
	require.NoError(t, err)
	defer r.Release()

	assert.Zero(t, addressOf(r.Bytes())%64)
}

func TestFileAllocatorRemovesFile(t *testing.T) {
	dir := t.TempDir()

	r, err := FileAllocator{Dir: dir}.Allocate(4096)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, r.Release())

	_, err = os.Stat(filepath.Join(dir, entries[0].Name()))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestFileAllocatorMissingDir(t *testing.T) {
	_, err := FileAllocator{Dir: filepath.Join(t.TempDir(), "missing")}.Allocate(4096)

	assert.ErrorIs(t, err, ErrAllocation)
}

type countingAllocator struct {
	calls int
}

func (a *countingAllocator) Allocate(size int) (Region, error) {
	a.calls++

	return HeapAllocator{}.Allocate(size)
}

func TestLimitAllocator(t *testing.T) {
	inner := &countingAllocator{}
	a := NewLimitAllocator(inner, 1024)

	r, err := a.Allocate(1024)
	require.NoError(t, err)
	require.NoError(t, r.Release())

	_, err = a.Allocate(1025)
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, 1, inner.calls)
	assert.Zero(t, a.InUse())
}

func TestLimitAllocatorCountsLiveRegions(t *testing.T) {
	inner := &countingAllocator{}
	a := NewLimitAllocator(inner, 1024)

	first, err := a.Allocate(600)
	require.NoError(t, err)
	assert.Equal(t, 600, a.InUse())

	_, err = a.Allocate(600)
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, 1, inner.calls)

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())
	assert.Zero(t, a.InUse())

	second, err := a.Allocate(600)
	require.NoError(t, err)
	assert.Len(t, second.Bytes(), 600)
	require.NoError(t, second.Release())
	assert.Zero(t, a.InUse())
}

func TestLimitAllocatorReturnsBudgetOnFailure(t *testing.T) {
	a := NewLimitAllocator(HeapAllocator{}, MaxHeapSize*2)

	_, err := a.Allocate(MaxHeapSize + 1)
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Zero(t, a.InUse())
}

func TestParseAllocator(t *testing.T) {
	for _, name := range []string{"", "anonymous", "populated", "file", "heap"} {
		a, err := ParseAllocator(name, "")

		require.NoError(t, err)
		assert.NotNil(t, a)
	}

	_, err := ParseAllocator("hugepages", "")
	assert.Error(t, err)
}
