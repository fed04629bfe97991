package srec

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

// maxHeaderBytes is the longest S0 descriptive payload that still fits a
// record: the count byte covers two address bytes, the payload, and the
// checksum, and tops out at 255.
const maxHeaderBytes = 252

// WriterConfig controls the records a Writer emits.
type WriterConfig struct {
	// AddressBytes is the address width of the data records: 2, 3, or 4.
	// Zero selects the smallest width that fits the highest address.
	AddressBytes int
	// Header holds descriptive payloads to emit as S0 records, one
	// record per entry, with the entry index as the address field.
	Header [][]byte
	// StartAddress, when non-nil, is emitted as the matching S7/S8/S9
	// execution start record.
	StartAddress *uint64
	// BytesPerLine caps the payload of one data record. Zero means 32.
	// Record chunking never crosses a region boundary.
	BytesPerLine int
}

// Writer renders a memory image as S-record text.
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

// Write renders s to dst. Configuration and address-fit problems are
// detected before any output is produced; output errors from dst can
// still leave a partially written stream behind.
func (w *Writer) Write(dst io.Writer, s *mem.Space) error {
	end, _ := s.End()

	ab := w.cfg.AddressBytes
	switch {
	case ab == 0:
		switch {
		case end <= 0x10000:
			ab = 2
		case end <= 0x1000000:
			ab = 3
		default:
			ab = 4
		}
	case ab < 2 || ab > 4:
		return &ConfigError{Msg: fmt.Sprintf("address bytes must be 2-4 or 0 to autosize, not %d", ab)}
	}
	if end > uint64(1)<<(8*ab) {
		return &ConfigError{Msg: fmt.Sprintf("%d address bytes insufficient for end address 0x%X", ab, end)}
	}

	bpl := w.cfg.BytesPerLine
	if bpl == 0 {
		bpl = 32
	}
	if bpl < 1 || bpl > 250 {
		return &ConfigError{Msg: fmt.Sprintf("bytes per line must be 1-250, not %d", bpl)}
	}

	for i, h := range w.cfg.Header {
		if len(h) > maxHeaderBytes {
			return &ConfigError{Msg: fmt.Sprintf("header entry %d is %d bytes, limit %d", i, len(h), maxHeaderBytes)}
		}
		if i > 0xFFFF {
			return &ConfigError{Msg: "more than 65536 header entries"}
		}
	}
	if w.cfg.StartAddress != nil && *w.cfg.StartAddress >= uint64(1)<<(8*ab) {
		return &ConfigError{Msg: fmt.Sprintf("%d address bytes insufficient for start address 0x%X", ab, *w.cfg.StartAddress)}
	}

	out := bufio.NewWriter(dst)

	for i, h := range w.cfg.Header {
		payload := append([]byte{byte(i >> 8), byte(i)}, h...)
		if _, err := fmt.Fprintf(out, "S0%s\n", encodeRecord(payload)); err != nil {
			return errors.Wrap(err, "write header record")
		}
	}

	// The data type selects the address width: S1/S2/S3 carry 2/3/4
	// address bytes.
	dataType := ab - 1
	for _, c := range s.Chunks() {
		addr := c.Start()
		data := c.Bytes()
		for at := 0; at < len(data); at += bpl {
			piece := data[at:min(at+bpl, len(data))]
			payload := append(makeBigEndian(ab, addr), piece...)
			if _, err := fmt.Fprintf(out, "S%d%s\n", dataType, encodeRecord(payload)); err != nil {
				return errors.Wrap(err, "write data record")
			}
			addr += uint64(len(piece))
		}
	}

	if w.cfg.StartAddress != nil {
		// S7/S8/S9 mirror S3/S2/S1: the start record type is 11 minus
		// the address width.
		startType := 11 - ab
		payload := makeBigEndian(ab, *w.cfg.StartAddress)
		if _, err := fmt.Fprintf(out, "S%d%s\n", startType, encodeRecord(payload)); err != nil {
			return errors.Wrap(err, "write start record")
		}
	}

	return errors.Wrap(out.Flush(), "flush s-records")
}

// encodeRecord hex-encodes count + payload + checksum for one record.
func encodeRecord(payload []byte) string {
	count := byte(len(payload) + 1)
	sum := count
	raw := make([]byte, 0, len(payload)+2)
	raw = append(raw, count)
	for _, b := range payload {
		sum += b
		raw = append(raw, b)
	}
	raw = append(raw, ^sum)
	return strings.ToUpper(hex.EncodeToString(raw))
}

// makeBigEndian renders addr as n big-endian bytes.
func makeBigEndian(n int, addr uint64) []byte {
	b := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		b[i] = byte(addr)
		addr >>= 8
	}
	return b
}
