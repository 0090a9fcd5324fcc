//go:build !linux

package memory

// PopulatedAllocator falls back to an anonymous mapping on platforms without
// MAP_POPULATE.
type PopulatedAllocator struct{}

func (PopulatedAllocator) Allocate(size int) (Region, error) {
	return AnonymousAllocator{}.Allocate(size)
}
