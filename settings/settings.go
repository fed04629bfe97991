// Package settings holds the process-wide defaults shared by the memimg
// packages: byte order for multi-byte values and the strictness flags
// consulted when an operation is not given explicit options.
//
// The defaults are plain mutable process state. They are meant to be set
// once at program startup (directly or from a TOML file via Load) and read
// afterward; mutating them concurrently with reads is undefined. Every
// operation that consults a default also accepts a per-call override, so
// nothing forces a program to touch the globals at all.
package settings

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Endian selects the byte order used when bytes are grouped into words.
type Endian int

const (
	// BigEndian stores the most significant byte first.
	BigEndian Endian = 1
	// LittleEndian stores the least significant byte first.
	LittleEndian Endian = 2
)

// ByteOrder returns the encoding/binary byte order for e.
// The zero value decodes as little-endian, the package default.
func (e Endian) ByteOrder() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// String returns "big" or "little".
func (e Endian) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// ParseEndian converts a configuration string into an Endian value.
// Accepts "big"/"be" and "little"/"le", case-insensitively.
func ParseEndian(s string) (Endian, error) {
	switch strings.ToLower(s) {
	case "big", "be":
		return BigEndian, nil
	case "little", "le":
		return LittleEndian, nil
	}
	return 0, fmt.Errorf("unknown endianness %q (want big or little)", s)
}

// Config carries the recognized process-wide options.
type Config struct {
	// Endian is the default byte order for word packing and unpacking.
	Endian Endian
	// CollisionError controls whether overlapping region insertions fail.
	// When false, the newest data wins on the overlapped span.
	CollisionError bool
	// ForceContiguousChecksum rejects checksumming an address space that
	// has more than one region.
	ForceContiguousChecksum bool
	// ForceIntegerWordCount rejects checksumming a region whose length is
	// not a whole number of words.
	ForceIntegerWordCount bool
}

var defaults = Config{
	Endian:                  LittleEndian,
	CollisionError:          true,
	ForceContiguousChecksum: true,
	ForceIntegerWordCount:   true,
}

// Default returns a copy of the current process-wide defaults.
func Default() Config {
	return defaults
}

// SetDefault replaces the process-wide defaults. Intended for program
// startup only; see the package comment for the concurrency caveat.
func SetDefault(c Config) {
	defaults = c
}

// fileConfig mirrors Config with optional fields so that a settings file
// only overrides the keys it names.
type fileConfig struct {
	Endian                  *string `toml:"endian"`
	CollisionError          *bool   `toml:"collision_error"`
	ForceContiguousChecksum *bool   `toml:"force_contiguous_checksum"`
	ForceIntegerWordCount   *bool   `toml:"force_integer_wordcount"`
}

// Load reads TOML settings from r and returns the current defaults with
// the file's values applied on top. It does not modify the process-wide
// defaults; pass the result to SetDefault for that.
func Load(r io.Reader) (Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Config{}, errors.Wrap(err, "read settings")
	}

	var fc fileConfig
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return Config{}, errors.Wrap(err, "parse settings")
	}

	cfg := Default()
	if fc.Endian != nil {
		e, err := ParseEndian(*fc.Endian)
		if err != nil {
			return Config{}, err
		}
		cfg.Endian = e
	}
	if fc.CollisionError != nil {
		cfg.CollisionError = *fc.CollisionError
	}
	if fc.ForceContiguousChecksum != nil {
		cfg.ForceContiguousChecksum = *fc.ForceContiguousChecksum
	}
	if fc.ForceIntegerWordCount != nil {
		cfg.ForceIntegerWordCount = *fc.ForceIntegerWordCount
	}
	return cfg, nil
}

// LoadFile reads TOML settings from the named file.
func LoadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "open settings file %s", path)
	}
	defer f.Close()

	return Load(f)
}
