package memimg_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"memimg/checksum"
	"memimg/ihex"
	"memimg/mem"
	"memimg/rawbin"
	"memimg/settings"
	"memimg/srec"
)

// TestWordImageRoundTrip builds a word table, renders it as S-records, and
// reads it back: one 32-byte region, byte-identical, same checksum.
func TestWordImageRoundTrip(t *testing.T) {
	words := make([]uint16, 16)
	for i := range words {
		words[i] = uint16(i)
	}
	img := mem.Const16(0, settings.LittleEndian, words)

	var buf bytes.Buffer
	w := srec.NewWriter(&srec.WriterConfig{BytesPerLine: 32})
	if err := w.Write(&buf, img); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Fatalf("output has %d records, want 1:\n%s", got, buf.String())
	}

	got, err := srec.NewReader(nil).Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("image has %d regions, want 1", got.Len())
	}
	if diff := cmp.Diff(img.Chunk(0).Bytes(), got.Chunk(0).Bytes()); diff != "" {
		t.Errorf("bytes mismatch (-want +got):\n%s", diff)
	}

	sum, ok, err := checksum.Sum16(got, nil)
	if err != nil || !ok {
		t.Fatalf("Sum16() = %v, %v, %v", sum, ok, err)
	}
	if want := uint64(15 * 16 / 2); sum != want {
		t.Errorf("Sum16() = %d, want %d", sum, want)
	}
}

// TestCrossFormat carries a sparse image s-record -> intel hex -> filled
// raw binary and checks every hop preserves the bytes.
func TestCrossFormat(t *testing.T) {
	img := mem.NewSpace()
	if err := img.Add(
		mem.NewChunk(0x00, []byte{0x01, 0x02, 0x03, 0x04}),
		mem.NewChunk(0x10, []byte{0xAA, 0xBB}),
	); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	var sbuf bytes.Buffer
	if err := srec.NewWriter(nil).Write(&sbuf, img); err != nil {
		t.Fatalf("srec write error = %v", err)
	}
	fromSrec, err := srec.NewReader(nil).Read(&sbuf)
	if err != nil {
		t.Fatalf("srec read error = %v", err)
	}

	var hbuf bytes.Buffer
	if err := ihex.NewWriter(nil).Write(&hbuf, fromSrec); err != nil {
		t.Fatalf("ihex write error = %v", err)
	}
	fromHex, err := ihex.NewReader(nil).Read(&hbuf)
	if err != nil {
		t.Fatalf("ihex read error = %v", err)
	}

	start, _ := fromHex.Start()
	end, _ := fromHex.End()
	filled, err := mem.Fill(fromHex, start, end, mem.Value(0xFF, settings.LittleEndian))
	if err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	var bbuf bytes.Buffer
	if err := rawbin.Write(&bbuf, filled); err != nil {
		t.Fatalf("rawbin write error = %v", err)
	}

	want := []byte{
		0x01, 0x02, 0x03, 0x04, 0xFF, 0xFF, 0xFF, 0xFF,
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
		0xAA, 0xBB,
	}
	if diff := cmp.Diff(want, bbuf.Bytes()); diff != "" {
		t.Errorf("final bytes mismatch (-want +got):\n%s", diff)
	}
}
