// Package checksum computes word-wise checksums over a sparse memory
// image without modifying it. Bytes are grouped into 1, 2, or 4-byte
// words per the configured byte order and folded, in address order, into
// the selected accumulation rule.
//
// Every function returns a (value, ok, error) triple: ok is false when
// the image holds no data at all, which is a distinguishable empty
// result, not a zero and not a failure.
package checksum

import (
	"fmt"

	"memimg/mem"
	"memimg/settings"
)

// Options configures one checksum computation. The zero value of Endian
// falls back to the process-wide default.
type Options struct {
	// Endian selects the byte order used to assemble words.
	Endian settings.Endian
	// AllowMultiRegion permits checksumming an image with gaps. Most
	// checksum consumers account for the bytes in a gap, so this is off
	// by default.
	AllowMultiRegion bool
	// AllowPartialWords permits regions whose length is not a whole
	// number of words; the trailing partial word is ignored.
	AllowPartialWords bool
}

// DefaultOptions derives Options from the process-wide defaults.
func DefaultOptions() Options {
	d := settings.Default()
	return Options{
		Endian:            d.Endian,
		AllowMultiRegion:  !d.ForceContiguousChecksum,
		AllowPartialWords: !d.ForceIntegerWordCount,
	}
}

// NonIntegerWordCountError reports a region whose byte length does not
// divide into whole words of the requested size.
type NonIntegerWordCountError struct {
	WordSize int
	Chunk    *mem.Chunk
}

func (e *NonIntegerWordCountError) Error() string {
	return fmt.Sprintf("%s does not divide into %d-byte words", e.Chunk, e.WordSize)
}

// Length returns end minus start of the image, gaps included. The second
// return is false when the image is empty.
func Length(s *mem.Space) (uint64, bool) {
	start, ok := s.Start()
	if !ok {
		return 0, false
	}
	end, _ := s.End()
	return end - start, true
}

// Sum8 returns the sum of all bytes, truncated to 8 bits.
func Sum8(s *mem.Space, opts *Options) (uint64, bool, error) {
	return compute(s, 1, opts, &sumAcc{mask: 0xFF})
}

// Sum16 returns the sum of all 16-bit words, truncated to 16 bits.
func Sum16(s *mem.Space, opts *Options) (uint64, bool, error) {
	return compute(s, 2, opts, &sumAcc{mask: 0xFFFF})
}

// Sum32 returns the sum of all 32-bit words, truncated to 32 bits.
func Sum32(s *mem.Space, opts *Options) (uint64, bool, error) {
	return compute(s, 4, opts, &sumAcc{mask: 0xFFFFFFFF})
}

// Fletcher32 returns the 32-bit Fletcher checksum over 16-bit words: the
// low half is the modulo-65535 sum of the words, the high half the
// modulo-65535 sum of the running sum. The second-order sum makes the
// result order-sensitive, unlike the plain sums.
func Fletcher32(s *mem.Space, opts *Options) (uint64, bool, error) {
	return compute(s, 2, opts, &fletcherAcc{sum1: 0xFFFF, sum2: 0xFFFF})
}

// accumulator is one checksum rule, fed words in address order.
type accumulator interface {
	add(word uint64)
	value() uint64
}

type sumAcc struct {
	mask  uint64
	total uint64
}

func (a *sumAcc) add(w uint64) { a.total += w }
func (a *sumAcc) value() uint64 {
	return a.total & a.mask
}

// fletcherAcc folds its carries back every 360 words, which bounds the
// running sums well below overflow, and twice more at the end.
type fletcherAcc struct {
	sum1, sum2 uint64
	pending    int
}

func (a *fletcherAcc) add(w uint64) {
	a.sum1 += w
	a.sum2 += a.sum1
	a.pending++
	if a.pending == 360 {
		a.fold()
		a.pending = 0
	}
}

func (a *fletcherAcc) fold() {
	a.sum1 = a.sum1&0xFFFF + a.sum1>>16
	a.sum2 = a.sum2&0xFFFF + a.sum2>>16
}

func (a *fletcherAcc) value() uint64 {
	if a.pending != 0 {
		a.fold()
		a.pending = 0
	}
	a.fold()
	return a.sum2<<16 + a.sum1
}

// compute runs the shared engine: validate the image shape, decompose it
// into words, and feed the accumulator.
func compute(s *mem.Space, wordSize int, opts *Options, acc accumulator) (uint64, bool, error) {
	o := DefaultOptions()
	if opts != nil {
		o = *opts
		if o.Endian == 0 {
			o.Endian = settings.Default().Endian
		}
	}

	if s.Len() == 0 {
		return 0, false, nil
	}
	if s.Len() > 1 && !o.AllowMultiRegion {
		return 0, false, &mem.NonContiguousError{Op: "checksum", Regions: s.Len()}
	}

	bo := o.Endian.ByteOrder()
	for _, c := range s.Chunks() {
		data := c.Bytes()
		rem := len(data) % wordSize
		if rem != 0 {
			if !o.AllowPartialWords {
				return 0, false, &NonIntegerWordCountError{WordSize: wordSize, Chunk: c}
			}
			data = data[:len(data)-rem]
		}
		for i := 0; i < len(data); i += wordSize {
			switch wordSize {
			case 1:
				acc.add(uint64(data[i]))
			case 2:
				acc.add(uint64(bo.Uint16(data[i:])))
			case 4:
				acc.add(uint64(bo.Uint32(data[i:])))
			}
		}
	}
	return acc.value(), true, nil
}
