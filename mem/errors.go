package mem

import "fmt"

// CollisionError reports an insertion whose address range overlaps an
// existing chunk while the space's collision policy is set to error.
type CollisionError struct {
	// Existing is the chunk already in the space.
	Existing *Chunk
	// Incoming is the chunk being added, after any adjacency merges that
	// happened before the overlap was found.
	Incoming *Chunk
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("collision against %s while adding %s", e.Existing, e.Incoming)
}

// NonContiguousError reports an operation that needs exactly one contiguous
// region but found a different number.
type NonContiguousError struct {
	// Op names the failed operation.
	Op string
	// Regions is the number of regions the space actually had.
	Regions int
}

func (e *NonContiguousError) Error() string {
	return fmt.Sprintf("%s: address space has %d regions, need exactly one", e.Op, e.Regions)
}

// OverflowError reports an address translation that would move a chunk to
// a negative base address.
type OverflowError struct {
	Base  uint64
	Delta int64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("negative address: base 0x%X offset by %d", e.Base, e.Delta)
}
