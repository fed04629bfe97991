package mem

import (
	"memimg/settings"
)

// Space holds a sparse memory image as a list of chunks sorted ascending
// by start address. Two invariants hold after every successful mutation:
// no two chunks overlap, and no two chunks are byte-adjacent (touching
// chunks are merged into one). An empty space is valid.
type Space struct {
	// CollisionError controls the overlap policy for Add: when true an
	// overlapping insertion fails with *CollisionError, when false the
	// incoming bytes win on the overlapped span.
	CollisionError bool

	chunks []*Chunk
}

// NewSpace creates an empty space whose collision policy comes from the
// process-wide defaults.
func NewSpace() *Space {
	return &Space{CollisionError: settings.Default().CollisionError}
}

// NewSpaceWith creates a space from the given chunks. Shorthand for
// NewSpace followed by Add.
func NewSpaceWith(chunks ...*Chunk) (*Space, error) {
	s := NewSpace()
	if err := s.Add(chunks...); err != nil {
		return nil, err
	}
	return s, nil
}

// Add inserts chunks into the space, maintaining the sort, disjointness,
// and non-adjacency invariants. Empty chunks are silently dropped. A chunk
// that touches existing data is concatenated with it; a chunk that
// overlaps existing data is resolved per the collision policy. The caller
// keeps ownership of the arguments: the space stores copies.
//
// On error the space is left unchanged.
func (s *Space) Add(chunks ...*Chunk) error {
	for _, c := range chunks {
		if err := s.addOne(c); err != nil {
			return err
		}
	}
	return nil
}

// AddSpace folds every chunk of other into s. Other is not modified.
func (s *Space) AddSpace(other *Space) error {
	return s.Add(other.chunks...)
}

// addOne places one chunk. A linear scan finds the affected contiguous
// run of existing chunks [lb, ub); the run is then replaced by the single
// merged chunk. Linear search is fine here: spaces hold tens of regions,
// not millions.
func (s *Space) addOne(c *Chunk) error {
	if c == nil || c.Len() == 0 {
		return nil
	}
	c = c.Clone()

	lb := 0
	ub := len(s.chunks)

scan:
	for i, d := range s.chunks {
		switch {
		case d.End() < c.Start():
			// Entirely below the new chunk.
			lb = i + 1

		case d.End() == c.Start():
			// Byte-adjacent from below: d then c.
			c = concat(d.Start(), d.data, c.data)
			lb = i

		case d.Start() > c.End():
			// Entirely above; nothing further can be affected.
			ub = i
			break scan

		case d.Start() == c.End():
			// Byte-adjacent from above: c then d.
			c = concat(c.Start(), c.data, d.data)
			ub = i + 1
			break scan

		default:
			// Overlap.
			if s.CollisionError {
				return &CollisionError{Existing: d, Incoming: c}
			}
			// Newest data wins on the shared span. Splice the
			// non-overlapping head and tail of d around c.
			if c.Start() > d.Start() {
				head := d.data[:c.Start()-d.Start()]
				c = concat(d.Start(), head, c.data)
				lb = i
			}
			if d.End() > c.End() {
				tail := d.data[uint64(d.Len())-(d.End()-c.End()):]
				c.data = append(c.data, tail...)
			}
			// c may have grown; keep scanning so that a single insert
			// can absorb several neighbors in one pass.
			ub = i + 1
		}
	}

	merged := make([]*Chunk, 0, len(s.chunks)-(ub-lb)+1)
	merged = append(merged, s.chunks[:lb]...)
	merged = append(merged, c)
	merged = append(merged, s.chunks[ub:]...)
	s.chunks = merged
	return nil
}

// Len returns the number of chunks in the space.
func (s *Space) Len() int {
	return len(s.chunks)
}

// Chunk returns the chunk at position i in address order.
func (s *Space) Chunk(i int) *Chunk {
	return s.chunks[i]
}

// Chunks returns the chunks in address order. The slice is the space's
// own backing; treat it as read-only and do not hold it across mutations.
func (s *Space) Chunks() []*Chunk {
	return s.chunks
}

// Delete removes the chunk at position i. This is a structural edit only:
// no re-merge of the neighbors is attempted, and the caller owns the
// address-range consequences.
func (s *Space) Delete(i int) {
	s.chunks = append(s.chunks[:i], s.chunks[i+1:]...)
}

// Start returns the first address of the first chunk. The second return
// is false when the space is empty.
func (s *Space) Start() (uint64, bool) {
	if len(s.chunks) == 0 {
		return 0, false
	}
	return s.chunks[0].Start(), true
}

// End returns the address one past the last byte of the last chunk. The
// second return is false when the space is empty.
func (s *Space) End() (uint64, bool) {
	if len(s.chunks) == 0 {
		return 0, false
	}
	return s.chunks[len(s.chunks)-1].End(), true
}

// String renders the space's chunk list for diagnostics.
func (s *Space) String() string {
	out := "Space("
	for i, c := range s.chunks {
		if i > 0 {
			out += ", "
		}
		out += c.String()
	}
	return out + ")"
}
