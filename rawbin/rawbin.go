// Package rawbin reads and writes raw binary images. The format carries
// no address information: reading produces a single region at address 0,
// and writing requires the image to already be one contiguous region
// (fill the gaps first).
package rawbin

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"memimg/mem"
)

// Read produces a space holding the entire stream as one region at
// address 0. An empty stream yields an empty space.
func Read(src io.Reader) (*mem.Space, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errors.Wrap(err, "read binary")
	}
	s := mem.NewSpace()
	if err := s.Add(mem.NewChunk(0, data)); err != nil {
		return nil, err
	}
	return s, nil
}

// ReadFile reads the named file.
func ReadFile(path string) (*mem.Space, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	return Read(f)
}

// Write writes the image's bytes verbatim. The space must hold exactly
// one region; anything else fails with *mem.NonContiguousError before any
// output is produced.
func Write(dst io.Writer, s *mem.Space) error {
	if s.Len() != 1 {
		return &mem.NonContiguousError{Op: "raw binary write", Regions: s.Len()}
	}
	_, err := dst.Write(s.Chunk(0).Bytes())
	return errors.Wrap(err, "write binary")
}

// WriteFile writes the image into the named file.
func WriteFile(path string, s *mem.Space) error {
	if s.Len() != 1 {
		return &mem.NonContiguousError{Op: "raw binary write", Regions: s.Len()}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if err := Write(f, s); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", path)
}
