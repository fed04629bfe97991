// Package ihex reads and writes Intel HEX files. Each record is
// `:<count><address><type><payload><checksum>`, hex-encoded; whitespace
// between records, newlines included, is insignificant. The writer emits
// linear (type 04/05) addressing only.
package ihex

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"memimg/mem"
)

// Record types.
const (
	recData         = 0x00
	recEOF          = 0x01
	recExtSegment   = 0x02
	recStartSegment = 0x03
	recExtLinear    = 0x04
	recStartLinear  = 0x05
)

// ReaderConfig selects the validation checks applied while parsing.
type ReaderConfig struct {
	// ForceValidChecksum verifies the checksum byte of every record.
	ForceValidChecksum bool
	// ForceValidByteCount verifies the count field of every record.
	ForceValidByteCount bool
	// ForbidDataAfterEOF fails on any record after the end-of-file
	// record.
	ForbidDataAfterEOF bool
	// ForceAllRecords fails on any token between ':' delimiters that is
	// not a well-formed record instead of skipping it.
	ForceAllRecords bool
}

// DefaultReaderConfig enables the per-record checks and the
// data-past-EOF check.
func DefaultReaderConfig() ReaderConfig {
	return ReaderConfig{
		ForceValidChecksum:  true,
		ForceValidByteCount: true,
		ForbidDataAfterEOF:  true,
	}
}

// Reader parses Intel HEX files into a memory image. The start-segment
// and start-linear values, which are not address-mapped, are collected on
// the reader itself.
type Reader struct {
	cfg ReaderConfig

	startSegCS  uint16
	startSegIP  uint16
	hasStartSeg bool

	startLinear    uint32
	hasStartLinear bool
}

// NewReader creates a reader; a nil config means DefaultReaderConfig.
func NewReader(cfg *ReaderConfig) *Reader {
	c := DefaultReaderConfig()
	if cfg != nil {
		c = *cfg
	}
	return &Reader{cfg: c}
}

// StartSegment returns the CS:IP pair from a start segment address
// record. The last return is false if the last Read saw none.
func (r *Reader) StartSegment() (cs, ip uint16, ok bool) {
	return r.startSegCS, r.startSegIP, r.hasStartSeg
}

// StartLinear returns the 32-bit entry point from a start linear address
// record. The second return is false if the last Read saw none.
func (r *Reader) StartLinear() (uint32, bool) {
	return r.startLinear, r.hasStartLinear
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

// Read parses src. The extended segment and extended linear address
// records shift the base address of subsequent data records; data
// addresses are base plus the record's own 16-bit address field.
func (r *Reader) Read(src io.Reader) (*mem.Space, error) {
	r.startSegCS, r.startSegIP, r.hasStartSeg = 0, 0, false
	r.startLinear, r.hasStartLinear = 0, false

	raw, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(err, "read intel hex")
	}

	space := mem.NewSpace()
	base := uint64(0)
	eofSeen := false

	tokens := strings.Split(string(raw), ":")
	if strings.TrimSpace(tokens[0]) != "" && r.cfg.ForceAllRecords {
		return nil, &RecordError{Record: 0, Msg: "data before first record"}
	}

	for num, tok := range tokens[1:] {
		num++ // 1-based record numbers
		rec, ok, err := r.parseToken(num, tok)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if eofSeen && r.cfg.ForbidDataAfterEOF {
			return nil, &RecordError{Record: num, Msg: "record after end-of-file record"}
		}

		switch rec.typ {
		case recData:
			if err := space.Add(mem.NewChunk(base+uint64(rec.addr), rec.payload)); err != nil {
				return nil, err
			}

		case recEOF:
			eofSeen = true

		case recExtSegment:
			if len(rec.payload) != 2 {
				return nil, &RecordError{Record: num, Msg: fmt.Sprintf(
					"extended segment address payload is %d bytes, need 2", len(rec.payload))}
			}
			base = uint64(binary.BigEndian.Uint16(rec.payload)) << 4

		case recStartSegment:
			if len(rec.payload) != 4 {
				return nil, &RecordError{Record: num, Msg: fmt.Sprintf(
					"start segment address payload is %d bytes, need 4", len(rec.payload))}
			}
			r.startSegCS = binary.BigEndian.Uint16(rec.payload[0:2])
			r.startSegIP = binary.BigEndian.Uint16(rec.payload[2:4])
			r.hasStartSeg = true

		case recExtLinear:
			if len(rec.payload) != 2 {
				return nil, &RecordError{Record: num, Msg: fmt.Sprintf(
					"extended linear address payload is %d bytes, need 2", len(rec.payload))}
			}
			base = uint64(binary.BigEndian.Uint16(rec.payload)) << 16

		case recStartLinear:
			if len(rec.payload) != 4 {
				return nil, &RecordError{Record: num, Msg: fmt.Sprintf(
					"start linear address payload is %d bytes, need 4", len(rec.payload))}
			}
			r.startLinear = binary.BigEndian.Uint32(rec.payload)
			r.hasStartLinear = true

		default:
			return nil, &RecordError{Record: num, Msg: fmt.Sprintf(
				"unknown record type 0x%02X", rec.typ)}
		}
	}
	return space, nil
}

type record struct {
	addr    uint16
	typ     byte
	payload []byte
}

// parseToken decodes and validates the hex text between two ':'
// delimiters. ok is false for whitespace-only tokens and, in permissive
// mode, for undecodable ones.
func (r *Reader) parseToken(num int, tok string) (rec record, ok bool, err error) {
	malformed := func(reason string) (record, bool, error) {
		if r.cfg.ForceAllRecords {
			return record{}, false, &RecordError{Record: num, Msg: reason}
		}
		return record{}, false, nil
	}

	s := strings.Map(func(c rune) rune {
		if unicode.IsSpace(c) {
			return -1
		}
		return c
	}, tok)
	if s == "" {
		// Just the whitespace between records.
		return record{}, false, nil
	}

	raw, decodeErr := hex.DecodeString(s)
	if decodeErr != nil || len(raw) < 5 {
		return malformed("not an intel hex record")
	}

	count := raw[0]
	rec.addr = binary.BigEndian.Uint16(raw[1:3])
	rec.typ = raw[3]
	rec.payload = raw[4 : len(raw)-1]
	cs := raw[len(raw)-1]

	if r.cfg.ForceValidByteCount && len(rec.payload) != int(count) {
		return record{}, false, &RecordError{Record: num, Msg: fmt.Sprintf(
			"byte count %d does not match %d payload bytes", count, len(rec.payload))}
	}
	if r.cfg.ForceValidChecksum {
		var sum byte
		for _, b := range raw {
			sum += b
		}
		// Every decoded byte, checksum included, must sum to zero.
		if sum != 0 {
			return record{}, false, &RecordError{Record: num, Msg: fmt.Sprintf(
				"checksum 0x%02X, expected 0x%02X", cs, cs-sum)}
		}
	}
	return rec, true, nil
}
