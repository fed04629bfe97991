// Package mem provides the sparse memory image data model: Chunk, one
// contiguous run of bytes at a base address, and Space, an address-sorted
// collection of disjoint chunks with merge-on-insert semantics. It also
// carries the region operations (crop, offset, fill, duplicate), constant
// generators, and byte-level transforms that build on the model.
//
// A Space is exclusively owned by its caller. Nothing in this package
// locks; programs that share a Space across goroutines must serialize
// access themselves.
package mem

import "fmt"

// Chunk holds one contiguous block of bytes anchored at a base address.
// The byte storage is owned by the chunk: constructors and slicing always
// copy, so no two chunks ever alias the same backing array.
type Chunk struct {
	base uint64
	data []byte
}

// NewChunk creates a chunk at the given base address with a copy of data.
func NewChunk(base uint64, data []byte) *Chunk {
	d := make([]byte, len(data))
	copy(d, data)
	return &Chunk{base: base, data: d}
}

// Start returns the address of the first byte.
func (c *Chunk) Start() uint64 {
	return c.base
}

// End returns the address one past the last byte.
func (c *Chunk) End() uint64 {
	return c.base + uint64(len(c.data))
}

// Len returns the number of bytes in the chunk.
func (c *Chunk) Len() int {
	return len(c.data)
}

// Bytes returns the chunk's backing storage. Callers may modify bytes in
// place (that is how the transforms work) but must not grow or shrink the
// slice: a chunk's extent is fixed once it is inside a Space.
func (c *Chunk) Bytes() []byte {
	return c.data
}

// Slice returns a new chunk covering the intersection of [lo, hi) with the
// chunk's own address range. The result owns a copy of the bytes; its base
// is adjusted so every byte keeps its original address. The result may be
// empty.
func (c *Chunk) Slice(lo, hi uint64) *Chunk {
	if lo < c.Start() {
		lo = c.Start()
	}
	if lo > c.End() {
		lo = c.End()
	}
	if hi > c.End() {
		hi = c.End()
	}
	if hi < lo {
		hi = lo
	}
	return NewChunk(lo, c.data[lo-c.base:hi-c.base])
}

// Clone returns an independent deep copy of the chunk.
func (c *Chunk) Clone() *Chunk {
	return NewChunk(c.base, c.data)
}

// String renders the chunk's range for diagnostics, eliding long contents.
func (c *Chunk) String() string {
	if len(c.data) > 8 {
		return fmt.Sprintf("Chunk(0x%X, % X... %d bytes)", c.base, c.data[:4], len(c.data))
	}
	return fmt.Sprintf("Chunk(0x%X, % X)", c.base, c.data)
}

// concat builds a fresh chunk at base from the given byte runs.
func concat(base uint64, parts ...[]byte) *Chunk {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	data := make([]byte, 0, n)
	for _, p := range parts {
		data = append(data, p...)
	}
	return &Chunk{base: base, data: data}
}
