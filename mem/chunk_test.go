package mem

import (
	"bytes"
	"testing"
)

func TestChunkBounds(t *testing.T) {
	c := NewChunk(0x1000, []byte{0, 1, 2, 3, 4, 5, 6, 7})
	if c.Start() != 0x1000 {
		t.Errorf("Start() = 0x%X, want 0x1000", c.Start())
	}
	if c.End() != 0x1008 {
		t.Errorf("End() = 0x%X, want 0x1008", c.End())
	}
	if c.Len() != 8 {
		t.Errorf("Len() = %d, want 8", c.Len())
	}
}

func TestChunkSlice(t *testing.T) {
	c := NewChunk(0x1000, []byte{0, 1, 2, 3, 4, 5, 6, 7})

	tests := []struct {
		name     string
		lo, hi   uint64
		wantAddr uint64
		wantData []byte
	}{
		{"interior", 0x1002, 0x1004, 0x1002, []byte{2, 3}},
		{"clamped below", 0x0, 0x1002, 0x1000, []byte{0, 1}},
		{"clamped above", 0x1006, 0x2000, 0x1006, []byte{6, 7}},
		{"entirely below", 0x0, 0x100, 0x1000, []byte{}},
		{"entirely above", 0x2000, 0x3000, 0x1008, []byte{}},
		{"inverted", 0x1004, 0x1002, 0x1004, []byte{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sl := c.Slice(tt.lo, tt.hi)
			if sl.Start() != tt.wantAddr {
				t.Errorf("Slice(0x%X, 0x%X).Start() = 0x%X, want 0x%X", tt.lo, tt.hi, sl.Start(), tt.wantAddr)
			}
			if !bytes.Equal(sl.Bytes(), tt.wantData) {
				t.Errorf("Slice(0x%X, 0x%X) bytes = % X, want % X", tt.lo, tt.hi, sl.Bytes(), tt.wantData)
			}
		})
	}
}

func TestChunkSliceCopies(t *testing.T) {
	c := NewChunk(0x1000, []byte{1, 2, 3, 4})
	sl := c.Slice(0x1001, 0x1003)
	sl.Bytes()[0] = 0xFF
	if c.Bytes()[1] != 2 {
		t.Error("slice aliases the parent chunk's storage")
	}
}

func TestChunkClone(t *testing.T) {
	c := NewChunk(0x1000, []byte{1, 2})
	d := c.Clone()
	d.Bytes()[0] = 0xFF
	if c.Bytes()[0] != 1 {
		t.Error("clone aliases the original's storage")
	}
}
