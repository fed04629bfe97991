package mem

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// region is a comparable dump of one chunk for go-cmp.
type region struct {
	Addr uint64
	Data []byte
}

func dump(s *Space) []region {
	out := make([]region, 0, s.Len())
	for _, c := range s.Chunks() {
		out = append(out, region{Addr: c.Start(), Data: append([]byte(nil), c.Bytes()...)})
	}
	return out
}

func TestSpaceAdd(t *testing.T) {
	tests := []struct {
		name   string
		chunks []*Chunk
		want   []region
	}{
		{
			name: "single chunk",
			chunks: []*Chunk{
				NewChunk(0x1000, []byte{1, 2, 3}),
			},
			want: []region{{0x1000, []byte{1, 2, 3}}},
		},
		{
			name: "empty chunk is dropped",
			chunks: []*Chunk{
				NewChunk(0x1000, []byte{1}),
				NewChunk(0x2000, nil),
			},
			want: []region{{0x1000, []byte{1}}},
		},
		{
			name: "disjoint chunks stay separate",
			chunks: []*Chunk{
				NewChunk(0x1000, []byte{1}),
				NewChunk(0x2000, []byte{2}),
			},
			want: []region{{0x1000, []byte{1}}, {0x2000, []byte{2}}},
		},
		{
			name: "disjoint chunks sort by address",
			chunks: []*Chunk{
				NewChunk(0x2000, []byte{2}),
				NewChunk(0x1000, []byte{1}),
			},
			want: []region{{0x1000, []byte{1}}, {0x2000, []byte{2}}},
		},
		{
			name: "adjacent from below merges",
			chunks: []*Chunk{
				NewChunk(0x1000, []byte{0x0A}),
				NewChunk(0x1001, []byte{0x0B}),
			},
			want: []region{{0x1000, []byte{0x0A, 0x0B}}},
		},
		{
			name: "adjacent from above merges",
			chunks: []*Chunk{
				NewChunk(0x1001, []byte{0x0B}),
				NewChunk(0x1000, []byte{0x0A}),
			},
			want: []region{{0x1000, []byte{0x0A, 0x0B}}},
		},
		{
			name: "insert bridges two neighbors",
			chunks: []*Chunk{
				NewChunk(0x1000, []byte{1, 2}),
				NewChunk(0x1004, []byte{5, 6}),
				NewChunk(0x1002, []byte{3, 4}),
			},
			want: []region{{0x1000, []byte{1, 2, 3, 4, 5, 6}}},
		},
		{
			name: "insert between non-touching neighbors",
			chunks: []*Chunk{
				NewChunk(0x1000, []byte{1}),
				NewChunk(0x1010, []byte{3}),
				NewChunk(0x1008, []byte{2}),
			},
			want: []region{
				{0x1000, []byte{1}},
				{0x1008, []byte{2}},
				{0x1010, []byte{3}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSpace()
			if err := s.Add(tt.chunks...); err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, dump(s)); diff != "" {
				t.Errorf("space mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSpaceAddOrderInvariance(t *testing.T) {
	// Pairwise-disjoint, pairwise-non-adjacent chunks must produce the
	// same space regardless of insertion order.
	chunks := []*Chunk{
		NewChunk(0x0000, []byte{1, 1}),
		NewChunk(0x0004, []byte{2, 2}),
		NewChunk(0x0010, []byte{3, 3}),
		NewChunk(0x0100, []byte{4, 4}),
	}
	orders := [][]int{
		{0, 1, 2, 3},
		{3, 2, 1, 0},
		{2, 0, 3, 1},
		{1, 3, 0, 2},
	}

	want := []region{
		{0x0000, []byte{1, 1}},
		{0x0004, []byte{2, 2}},
		{0x0010, []byte{3, 3}},
		{0x0100, []byte{4, 4}},
	}
	for _, order := range orders {
		s := NewSpace()
		for _, i := range order {
			if err := s.Add(chunks[i]); err != nil {
				t.Fatalf("order %v: Add() error = %v", order, err)
			}
		}
		if diff := cmp.Diff(want, dump(s)); diff != "" {
			t.Errorf("order %v mismatch (-want +got):\n%s", order, diff)
		}
	}
}

func TestSpaceCollisionError(t *testing.T) {
	s := NewSpace()
	s.CollisionError = true
	if err := s.Add(NewChunk(0x1000, []byte{1, 2, 3, 4})); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	err := s.Add(NewChunk(0x1002, []byte{9, 9}))
	var ce *CollisionError
	if !errors.As(err, &ce) {
		t.Fatalf("Add() error = %v, want *CollisionError", err)
	}
	if ce.Existing.Start() != 0x1000 || ce.Incoming.Start() != 0x1002 {
		t.Errorf("collision names chunks at 0x%X and 0x%X, want 0x1000 and 0x1002",
			ce.Existing.Start(), ce.Incoming.Start())
	}

	// The failed insert must leave the space untouched.
	want := []region{{0x1000, []byte{1, 2, 3, 4}}}
	if diff := cmp.Diff(want, dump(s)); diff != "" {
		t.Errorf("space changed by failed Add (-want +got):\n%s", diff)
	}
}

func TestSpaceOverwrite(t *testing.T) {
	tests := []struct {
		name     string
		existing *Chunk
		incoming *Chunk
		want     []region
	}{
		{
			name:     "overlap above keeps the old head",
			existing: NewChunk(0x1000, []byte{1, 2, 3, 4}),
			incoming: NewChunk(0x1002, []byte{9, 9, 9}),
			want:     []region{{0x1000, []byte{1, 2, 9, 9, 9}}},
		},
		{
			name:     "overlap below keeps the old tail",
			existing: NewChunk(0x1002, []byte{1, 2, 3, 4}),
			incoming: NewChunk(0x1000, []byte{9, 9, 9}),
			want:     []region{{0x1000, []byte{9, 9, 9, 2, 3, 4}}},
		},
		{
			name:     "full cover replaces everything",
			existing: NewChunk(0x1001, []byte{1, 2}),
			incoming: NewChunk(0x1000, []byte{9, 9, 9, 9}),
			want:     []region{{0x1000, []byte{9, 9, 9, 9}}},
		},
		{
			name:     "interior overwrite keeps head and tail",
			existing: NewChunk(0x1000, []byte{1, 2, 3, 4, 5, 6}),
			incoming: NewChunk(0x1002, []byte{9, 9}),
			want:     []region{{0x1000, []byte{1, 2, 9, 9, 5, 6}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSpace()
			s.CollisionError = false
			if err := s.Add(tt.existing, tt.incoming); err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, dump(s)); diff != "" {
				t.Errorf("space mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSpaceOverwriteChained(t *testing.T) {
	// One insert that overlaps two regions and bridges the gap between
	// them must collapse everything into a single region.
	s := NewSpace()
	s.CollisionError = false
	if err := s.Add(
		NewChunk(0x1000, []byte{1, 1, 1}),
		NewChunk(0x1008, []byte{2, 2, 2}),
	); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(NewChunk(0x1002, []byte{9, 9, 9, 9, 9, 9, 9})); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	want := []region{{0x1000, []byte{1, 1, 9, 9, 9, 9, 9, 9, 9, 2, 2}}}
	if diff := cmp.Diff(want, dump(s)); diff != "" {
		t.Errorf("space mismatch (-want +got):\n%s", diff)
	}
}

func TestSpaceStartEnd(t *testing.T) {
	s := NewSpace()
	if _, ok := s.Start(); ok {
		t.Error("Start() ok = true on empty space")
	}
	if _, ok := s.End(); ok {
		t.Error("End() ok = true on empty space")
	}

	if err := s.Add(NewChunk(0x1000, []byte{1}), NewChunk(0x2000, []byte{2, 3})); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if start, ok := s.Start(); !ok || start != 0x1000 {
		t.Errorf("Start() = 0x%X, %v, want 0x1000, true", start, ok)
	}
	if end, ok := s.End(); !ok || end != 0x2002 {
		t.Errorf("End() = 0x%X, %v, want 0x2002, true", end, ok)
	}
}

func TestSpaceDelete(t *testing.T) {
	s := NewSpace()
	if err := s.Add(
		NewChunk(0x1000, []byte{1}),
		NewChunk(0x2000, []byte{2}),
		NewChunk(0x3000, []byte{3}),
	); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	s.Delete(1)

	want := []region{{0x1000, []byte{1}}, {0x3000, []byte{3}}}
	if diff := cmp.Diff(want, dump(s)); diff != "" {
		t.Errorf("space mismatch (-want +got):\n%s", diff)
	}
}

func TestSpaceAddCopiesInput(t *testing.T) {
	data := []byte{1, 2, 3}
	c := NewChunk(0x1000, data)
	s := NewSpace()
	if err := s.Add(c); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	// Mutating the caller's chunk must not reach into the space.
	c.Bytes()[0] = 0xFF
	if got := s.Chunk(0).Bytes()[0]; got != 1 {
		t.Errorf("space saw caller mutation: byte = %d, want 1", got)
	}
}

func TestAddSpace(t *testing.T) {
	a := NewSpace()
	if err := a.Add(NewChunk(0x0, []byte{1, 2})); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	b := NewSpace()
	if err := b.Add(NewChunk(0x2, []byte{3, 4}), NewChunk(0x100, []byte{5})); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := a.AddSpace(b); err != nil {
		t.Fatalf("AddSpace() error = %v", err)
	}

	want := []region{{0x0, []byte{1, 2, 3, 4}}, {0x100, []byte{5}}}
	if diff := cmp.Diff(want, dump(a)); diff != "" {
		t.Errorf("space mismatch (-want +got):\n%s", diff)
	}
}
