// Package srec reads and writes Motorola S-record files. Records are one
// per line, `S<type><count><payload><checksum>`, with every field but the
// type hex-encoded at two digits per byte. Data records carry big-endian
// addresses of 2, 3, or 4 bytes depending on the record type.
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

// ReaderConfig selects the validation checks applied while parsing.
type ReaderConfig struct {
	// ForceValidChecksum verifies the checksum byte of every record.
	ForceValidChecksum bool
	// ForceValidByteCount verifies the count field of every record.
	ForceValidByteCount bool
	// ForceValidRecordCount verifies S5 record-count records against the
	// number of data records seen so far.
	ForceValidRecordCount bool
	// ForceAllRecords fails on any line that is not a well-formed
	// S-record instead of skipping it.
	ForceAllRecords bool
}

// DefaultReaderConfig enables the per-record checks and leaves
// non-record lines tolerated.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		ForceValidChecksum:    true,
		ForceValidByteCount:   true,
		ForceValidRecordCount: true,
	}
}

// Reader parses S-record files into a memory image. Header text and the
// execution start address, which are not address-mapped, are collected on
// the reader itself.
type Reader struct {
	cfg ReaderConfig

	header    [][]byte
	startAddr uint64
	hasStart  bool
}

// NewReader creates a reader; a nil config means DefaultReaderConfig.
func NewReader(cfg *ReaderConfig) *Reader {
	c := DefaultReaderConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Reader{cfg: c}
}

// Header returns the descriptive payloads of the S0 records seen by the
// last Read, in file order.
func (r *Reader) Header() [][]byte {
	return r.header
}

// StartAddress returns the execution start address from an S7/S8/S9
// record. The second return is false if the last Read saw none.
func (r *Reader) StartAddress() (uint64, bool) {
	return r.startAddr, r.hasStart
}

// ReadFile parses the named file.
func (r *Reader) ReadFile(path string) (*mem.Space, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	return r.Read(f)
}

// Read parses src. Lines that are not well-formed S-records are skipped
// unless ForceAllRecords is set. Validation failures abort the read
// immediately; there is no partial-result salvage.
func (r *Reader) Read(src io.Reader) (*mem.Space, error) {
	r.header = nil
	r.startAddr = 0
	r.hasStart = false

	space := mem.NewSpace()
	dataRecords := uint64(0)

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		typ, block, ok, err := r.parseRecord(line, scanner.Text())
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		switch typ {
		case 0:
			// Header record: the payload after the two address bytes is
			// descriptive text.
			text := block
			if len(text) > 2 {
				text = text[2:]
			} else {
				text = nil
			}
			r.header = append(r.header, append([]byte(nil), text...))

		case 1, 2, 3:
			addrBytes := typ + 1
			if len(block) < addrBytes {
				return nil, &RecordError{Line: line, Msg: fmt.Sprintf(
					"record too short for %d-byte address", addrBytes)}
			}
			dataRecords++
			addr := readBigEndian(block[:addrBytes])
			if err := space.Add(mem.NewChunk(addr, block[addrBytes:])); err != nil {
				return nil, err
			}

		case 5:
			if r.cfg.ForceValidRecordCount {
				if count := readBigEndian(block); count != dataRecords {
					return nil, &RecordError{Line: line, Msg: fmt.Sprintf(
						"record count %d, expected %d", count, dataRecords)}
				}
			}

		case 7, 8, 9:
			r.startAddr = readBigEndian(block)
			r.hasStart = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read s-records")
	}
	return space, nil
}

// parseRecord splits and validates one line. ok is false for lines that
// are not S-records at all (only possible when ForceAllRecords is off).
// The returned block excludes the count and checksum bytes.
func (r *Reader) parseRecord(line int, text string) (typ int, block []byte, ok bool, err error) {
	notARecord := func(reason string) (int, []byte, bool, error) {
		if r.cfg.ForceAllRecords {
			return 0, nil, false, &RecordError{Line: line, Msg: reason}
		}
		return 0, nil, false, nil
	}

	s := strings.ToUpper(strings.TrimSpace(text))
	if len(s) < 8 || s[0] != 'S' {
		return notARecord("not an S-record")
	}
	switch s[1] {
	case '0', '1', '2', '3', '5', '7', '8', '9':
	default:
		return notARecord(fmt.Sprintf("unknown record type S%c", s[1]))
	}
	raw, decodeErr := hex.DecodeString(s[2:])
	if decodeErr != nil {
		return notARecord("not an S-record")
	}

	count := int(raw[0])
	block = raw[1 : len(raw)-1]
	cs := raw[len(raw)-1]

	if r.cfg.ForceValidByteCount && len(block) != count-1 {
		return 0, nil, false, &RecordError{Line: line, Msg: fmt.Sprintf(
			"byte count %d does not match %d decoded bytes", count-1, len(block))}
	}
	if r.cfg.ForceValidChecksum {
		sum := byte(count)
		for _, b := range block {
			sum += b
		}
		if want := ^sum; cs != want {
			return 0, nil, false, &RecordError{Line: line, Msg: fmt.Sprintf(
				"checksum 0x%02X, expected 0x%02X", cs, want)}
		}
	}
	return int(s[1] - '0'), block, true, nil
}

// readBigEndian folds up to eight bytes into one big-endian value.
func readBigEndian(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}
