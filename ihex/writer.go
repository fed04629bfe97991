package ihex

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"memimg/mem"
)

// WriterConfig controls the records a Writer emits.
type WriterConfig struct {
	// BytesPerLine caps the payload of one data record. Zero means 16.
	// Data records additionally never cross a 64KiB boundary or a region
	// boundary.
	BytesPerLine int
	// StartLinear, when non-nil, is emitted as a start linear address
	// record before the end-of-file record.
	StartLinear *uint32
}

// Writer renders a memory image as Intel HEX text using linear (type
// 04/05) addressing.
type Writer struct {
	cfg WriterConfig
}

// NewWriter creates a writer; a nil config means all defaults.
func NewWriter(cfg *WriterConfig) *Writer {
	var c WriterConfig
	if cfg != nil {
		c = *cfg
	}
	return &Writer{cfg: c}
}

// WriteFile renders s into the named file.
func (w *Writer) WriteFile(path string, s *mem.Space) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := w.Write(f, s); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}

// Write renders s to dst. An extended linear address record is emitted
// whenever a data record's upper 16 address bits differ from the last
// ones emitted; the stream always ends with exactly one end-of-file
// record.
func (w *Writer) Write(dst io.Writer, s *mem.Space) error {
	if end, ok := s.End(); ok && end > uint64(1)<<32 {
		return &ConfigError{Msg: fmt.Sprintf("end address 0x%X exceeds the 32-bit linear range", end)}
	}

	bpl := w.cfg.BytesPerLine
	if bpl == 0 {
		bpl = 16
	}
	if bpl < 1 || bpl > 255 {
		return &ConfigError{Msg: fmt.Sprintf("bytes per line must be 1-255, not %d", bpl)}
	}

	out := bufio.NewWriter(dst)
	highAddr := uint32(0)

	for _, c := range s.Chunks() {
		addr := c.Start()
		data := c.Bytes()
		for len(data) > 0 {
			n := bpl
			if n > len(data) {
				n = len(data)
			}
			// Stop short of the next 64KiB boundary.
			if room := 0x10000 - int(addr&0xFFFF); n > room {
				n = room
			}

			if hi := uint32(addr >> 16); hi != highAddr {
				payload := []byte{byte(hi >> 8), byte(hi)}
				if err := emitRecord(out, 0, recExtLinear, payload); err != nil {
					return err
				}
				highAddr = hi
			}
			if err := emitRecord(out, uint16(addr&0xFFFF), recData, data[:n]); err != nil {
				return err
			}
			addr += uint64(n)
			data = data[n:]
		}
	}

	if w.cfg.StartLinear != nil {
		v := *w.cfg.StartLinear
		payload := []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		if err := emitRecord(out, 0, recStartLinear, payload); err != nil {
			return err
		}
	}
	if err := emitRecord(out, 0, recEOF, nil); err != nil {
		return err
	}
	return errors.Wrap(out.Flush(), "flush intel hex")
}

// emitRecord writes one record with a freshly computed checksum: the low
// byte of the two's-complement negation of the sum of every record byte.
func emitRecord(out io.Writer, addr uint16, typ byte, payload []byte) error {
	raw := make([]byte, 0, len(payload)+5)
	raw = append(raw, byte(len(payload)), byte(addr>>8), byte(addr), typ)
	raw = append(raw, payload...)

	var sum byte
	for _, b := range raw {
		sum += b
	}
	raw = append(raw, -sum)

	if _, err := fmt.Fprintf(out, ":%s\n", strings.ToUpper(hex.EncodeToString(raw))); err != nil {
		return errors.Wrap(err, "write record")
	}
	return nil
}
