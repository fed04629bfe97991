package mem

import (
	"io"

	"github.com/pkg/errors"

	"memimg/settings"
)

// Duplicate returns a fully independent deep copy of s. This is the only
// safe way to work with two copies of the same image; a Space is never
// copied implicitly.
func Duplicate(s *Space) *Space {
	out := &Space{CollisionError: s.CollisionError}
	out.chunks = make([]*Chunk, len(s.chunks))
	for i, c := range s.chunks {
		out.chunks[i] = c.Clone()
	}
	return out
}

// Crop returns a new space holding only the bytes of s whose addresses
// lie in [start, end). Chunks entirely outside the range are dropped;
// chunks straddling a boundary are byte-sliced. s is not modified.
func Crop(s *Space, start, end uint64) *Space {
	out := &Space{CollisionError: s.CollisionError}
	for _, c := range s.chunks {
		sl := c.Slice(start, end)
		if sl.Len() == 0 {
			continue
		}
		// Slices of a valid space stay disjoint, non-adjacent, and
		// ascending, so addOne cannot fail here.
		_ = out.addOne(sl)
	}
	return out
}

// Offset shifts every chunk of s by delta, in place. The whole move is
// validated before anything is shifted: if any chunk would land at a
// negative address, Offset fails with *OverflowError and s is unchanged.
func Offset(s *Space, delta int64) error {
	if delta < 0 {
		down := uint64(-delta)
		for _, c := range s.chunks {
			if c.base < down {
				return &OverflowError{Base: c.base, Delta: delta}
			}
		}
	}
	for _, c := range s.chunks {
		c.base = uint64(int64(c.base) + delta)
	}
	return nil
}

// Source supplies bytes for Fill. The three implementations cover the
// supported input shapes: a repeating byte pattern, an integer constant,
// and a possibly unbounded byte stream.
type Source interface {
	// emit produces bytes for one gap of the given length. Pattern and
	// value sources start fresh per gap; a stream source is consumed
	// incrementally across gaps.
	emit(length int) ([]byte, error)
}

type patternSource struct {
	pattern []byte
}

// Pattern returns a fill source that repeats the given bytes cyclically,
// restarting at the beginning of each gap.
func Pattern(p []byte) Source {
	d := make([]byte, len(p))
	copy(d, p)
	return &patternSource{pattern: d}
}

func (ps *patternSource) emit(length int) ([]byte, error) {
	if len(ps.pattern) == 0 {
		return nil, errors.New("fill: empty pattern")
	}
	out := make([]byte, length)
	for i := range out {
		out[i] = ps.pattern[i%len(ps.pattern)]
	}
	return out, nil
}

type valueSource struct {
	value  uint64
	endian settings.Endian
}

// Value returns a fill source that repeats an integer constant. The
// constant's magnitude picks the word size: one byte up to 0xFF, two up
// to 0xFFFF, four beyond that. Words are packed per endian. A gap that is
// not a whole number of words is filled only up to the last whole word.
func Value(v uint64, endian settings.Endian) Source {
	return &valueSource{value: v, endian: endian}
}

func (vs *valueSource) emit(length int) ([]byte, error) {
	if vs.value > 0xFFFFFFFF {
		return nil, errors.Errorf("fill: constant 0x%X exceeds 32 bits", vs.value)
	}

	size := 1
	switch {
	case vs.value > 0xFFFF:
		size = 4
	case vs.value > 0xFF:
		size = 2
	}

	bo := vs.endian.ByteOrder()
	var word [4]byte
	switch size {
	case 1:
		word[0] = byte(vs.value)
	case 2:
		bo.PutUint16(word[:2], uint16(vs.value))
	case 4:
		bo.PutUint32(word[:4], uint32(vs.value))
	}

	out := make([]byte, 0, length)
	for i := 0; i < length/size; i++ {
		out = append(out, word[:size]...)
	}
	return out, nil
}

type streamSource struct {
	r io.Reader
}

// Stream returns a fill source that draws bytes from r. The reader is
// consumed lazily and in address order across all gaps; it is not rewound
// between gaps. A reader that runs dry before the gaps are full is an
// error.
func Stream(r io.Reader) Source {
	return &streamSource{r: r}
}

func (ss *streamSource) emit(length int) ([]byte, error) {
	out := make([]byte, length)
	if _, err := io.ReadFull(ss.r, out); err != nil {
		return nil, errors.Wrap(err, "fill: source exhausted")
	}
	return out, nil
}

// Fill returns a copy of s with every gap in [start, end) populated from
// src. Gaps are discovered by walking the space in ascending address
// order; the range bounds themselves count as gap edges, so Fill can also
// extend an image below its first chunk or above its last one.
func Fill(s *Space, start, end uint64, src Source) (*Space, error) {
	out := Duplicate(s)

	cur := start
	for cur < end {
		// Find the next chunk ending above the cursor. A chunk that
		// already covers the cursor just advances it.
		var gapEnd, next uint64
		found := false
		for _, c := range out.chunks {
			if c.End() > cur {
				gapEnd = cur
				if c.Start() > cur {
					gapEnd = min(c.Start(), end)
				}
				next = c.End()
				found = true
				break
			}
		}
		if !found {
			gapEnd, next = end, end
		}

		if gapEnd > cur {
			data, err := src.emit(int(gapEnd - cur))
			if err != nil {
				return nil, err
			}
			if err := out.Add(NewChunk(cur, data)); err != nil {
				return nil, err
			}
		}

		if !found {
			break
		}
		cur = next
	}
	return out, nil
}
