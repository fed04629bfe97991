// Command memimg converts, combines, and checksums embedded memory-image
// files (Motorola S-record, Intel HEX, raw binary).
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"memimg/checksum"
	"memimg/ihex"
	"memimg/mem"
	"memimg/rawbin"
	"memimg/settings"
	"memimg/srec"
)

func main() {
	app := &cli.App{
		Name:  "memimg",
		Usage: "convert, combine, and checksum embedded memory images",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "TOML settings file for process-wide defaults",
			},
			&cli.StringFlag{
				Name:  "endian",
				Usage: "default byte order: big or little",
			},
			&cli.BoolFlag{
				Name:  "overwrite",
				Usage: "let overlapping regions overwrite instead of failing",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "warning",
				Usage: "logrus level: debug, info, warning, error",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			infoCommand(),
			convertCommand(),
			checksumCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

// setup applies the global flags to the process-wide defaults before any
// command runs.
func setup(c *cli.Context) error {
	level, err := logrus.ParseLevel(c.String("log-level"))
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	cfg := settings.Default()
	if path := c.String("config"); path != "" {
		cfg, err = settings.LoadFile(path)
		if err != nil {
			return err
		}
		logrus.WithField("path", path).Debug("loaded settings file")
	}
	if e := c.String("endian"); e != "" {
		cfg.Endian, err = settings.ParseEndian(e)
		if err != nil {
			return err
		}
	}
	if c.Bool("overwrite") {
		cfg.CollisionError = false
	}
	settings.SetDefault(cfg)
	return nil
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "describe the regions of an image file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Usage: "srec, ihex, or bin (default: by extension)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("info needs exactly one FILE argument")
			}
			path := c.Args().First()
			img, meta, err := readImage(path, c.String("format"))
			if err != nil {
				return err
			}

			fmt.Printf("%s: %d region(s)\n", path, img.Len())
			for i, ch := range img.Chunks() {
				fmt.Printf("  [%d] 0x%08X - 0x%08X  %d bytes\n", i, ch.Start(), ch.End(), ch.Len())
			}
			if n, ok := checksum.Length(img); ok {
				fmt.Printf("  span %d bytes\n", n)
			}
			for _, h := range meta.header {
				fmt.Printf("  header: %q\n", h)
			}
			if meta.hasStart {
				fmt.Printf("  start address: 0x%X\n", meta.startAddr)
			}
			return nil
		},
	}
}

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "read an image, optionally rework it, and write it out",
		ArgsUsage: "IN OUT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in-format", Usage: "srec, ihex, or bin (default: by extension)"},
			&cli.StringFlag{Name: "out-format", Usage: "srec, ihex, or bin (default: by extension)"},
			&cli.StringFlag{Name: "crop", Usage: "keep only START:END (addresses, 0x ok)"},
			&cli.Int64Flag{Name: "offset", Usage: "shift all regions by this many bytes"},
			&cli.StringFlag{Name: "fill", Usage: "fill gaps with this constant (0x ok)"},
			&cli.IntFlag{Name: "address-bytes", Usage: "s-record address width (2-4, 0 = auto)"},
			&cli.IntFlag{Name: "bytes-per-line", Usage: "payload bytes per output record"},
			&cli.StringFlag{Name: "header", Usage: "s-record header text"},
			&cli.StringFlag{Name: "start-address", Usage: "execution start address (0x ok)"},
		},
		Action: runConvert,
	}
}

func runConvert(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("convert needs IN and OUT arguments")
	}
	inPath, outPath := c.Args().Get(0), c.Args().Get(1)

	img, meta, err := readImage(inPath, c.String("in-format"))
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"file":    inPath,
		"regions": img.Len(),
	}).Debug("image read")

	if spec := c.String("crop"); spec != "" {
		lo, hi, err := parseRange(spec)
		if err != nil {
			return err
		}
		img = mem.Crop(img, lo, hi)
	}
	if delta := c.Int64("offset"); delta != 0 {
		if err := mem.Offset(img, delta); err != nil {
			return err
		}
	}
	if spec := c.String("fill"); spec != "" {
		v, err := strconv.ParseUint(spec, 0, 64)
		if err != nil {
			return errors.Wrapf(err, "bad fill constant %q", spec)
		}
		start, ok := img.Start()
		if !ok {
			return errors.New("cannot fill an empty image")
		}
		end, _ := img.End()
		img, err = mem.Fill(img, start, end, mem.Value(v, settings.Default().Endian))
		if err != nil {
			return err
		}
	}

	var start *uint64
	if spec := c.String("start-address"); spec != "" {
		v, err := strconv.ParseUint(spec, 0, 64)
		if err != nil {
			return errors.Wrapf(err, "bad start address %q", spec)
		}
		start = &v
	} else if meta.hasStart {
		start = &meta.startAddr
	}

	return writeImage(outPath, c.String("out-format"), img, writeOptions{
		addressBytes: c.Int("address-bytes"),
		bytesPerLine: c.Int("bytes-per-line"),
		headerText:   c.String("header"),
		header:       meta.header,
		start:        start,
	})
}

func checksumCommand() *cli.Command {
	return &cli.Command{
		Name:      "checksum",
		Usage:     "print a checksum of an image file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Usage: "srec, ihex, or bin (default: by extension)"},
			&cli.StringFlag{Name: "kind", Value: "sum16", Usage: "sum8, sum16, sum32, or fletcher32"},
			&cli.BoolFlag{Name: "allow-multi-region", Usage: "checksum across gaps"},
			&cli.BoolFlag{Name: "allow-partial-words", Usage: "ignore a trailing partial word"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("checksum needs exactly one FILE argument")
			}
			img, _, err := readImage(c.Args().First(), c.String("format"))
			if err != nil {
				return err
			}

			opts := checksum.DefaultOptions()
			if c.Bool("allow-multi-region") {
				opts.AllowMultiRegion = true
			}
			if c.Bool("allow-partial-words") {
				opts.AllowPartialWords = true
			}

			var fn func(*mem.Space, *checksum.Options) (uint64, bool, error)
			switch kind := c.String("kind"); kind {
			case "sum8":
				fn = checksum.Sum8
			case "sum16":
				fn = checksum.Sum16
			case "sum32":
				fn = checksum.Sum32
			case "fletcher32":
				fn = checksum.Fletcher32
			default:
				return errors.Errorf("unknown checksum kind %q", kind)
			}

			value, ok, err := fn(img, &opts)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("empty image: no checksum")
				return nil
			}
			fmt.Printf("0x%X\n", value)
			return nil
		},
	}
}

// metadata carries the non-address-mapped values a reader collected.
type metadata struct {
	header    [][]byte
	startAddr uint64
	hasStart  bool
}

// detectFormat picks a codec from an explicit name or the file extension.
func detectFormat(path, explicit string) (string, error) {
	if explicit != "" {
		switch explicit {
		case "srec", "ihex", "bin":
			return explicit, nil
		}
		return "", errors.Errorf("unknown format %q (want srec, ihex, or bin)", explicit)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".s19", ".s28", ".s37", ".srec", ".mot":
		return "srec", nil
	case ".hex", ".ihex":
		return "ihex", nil
	default:
		return "bin", nil
	}
}

func readImage(path, format string) (*mem.Space, metadata, error) {
	format, err := detectFormat(path, format)
	if err != nil {
		return nil, metadata{}, err
	}

	switch format {
	case "srec":
		r := srec.NewReader(nil)
		img, err := r.ReadFile(path)
		if err != nil {
			return nil, metadata{}, err
		}
		meta := metadata{header: r.Header()}
		meta.startAddr, meta.hasStart = r.StartAddress()
		return img, meta, nil

	case "ihex":
		r := ihex.NewReader(nil)
		img, err := r.ReadFile(path)
		if err != nil {
			return nil, metadata{}, err
		}
		var meta metadata
		if v, ok := r.StartLinear(); ok {
			meta.startAddr, meta.hasStart = uint64(v), true
		}
		return img, meta, nil

	default:
		img, err := rawbin.ReadFile(path)
		return img, metadata{}, err
	}
}

type writeOptions struct {
	addressBytes int
	bytesPerLine int
	headerText   string
	header       [][]byte
	start        *uint64
}

func writeImage(path, format string, img *mem.Space, o writeOptions) error {
	format, err := detectFormat(path, format)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"file":   path,
		"format": format,
	}).Debug("writing image")

	switch format {
	case "srec":
		header := o.header
		if o.headerText != "" {
			header = [][]byte{[]byte(o.headerText)}
		}
		w := srec.NewWriter(&srec.WriterConfig{
			AddressBytes: o.addressBytes,
			Header:       header,
			StartAddress: o.start,
			BytesPerLine: o.bytesPerLine,
		})
		return w.WriteFile(path, img)

	case "ihex":
		cfg := ihex.WriterConfig{BytesPerLine: o.bytesPerLine}
		if o.start != nil {
			if *o.start > 0xFFFFFFFF {
				return errors.Errorf("start address 0x%X exceeds 32 bits", *o.start)
			}
			v := uint32(*o.start)
			cfg.StartLinear = &v
		}
		return ihex.NewWriter(&cfg).WriteFile(path, img)

	default:
		return rawbin.WriteFile(path, img)
	}
}

// parseRange parses "START:END" with either bound in any base strconv
// accepts (0x prefix included).
func parseRange(spec string) (lo, hi uint64, err error) {
	lotext, hitext, ok := strings.Cut(spec, ":")
	if !ok {
		return 0, 0, errors.Errorf("bad range %q (want START:END)", spec)
	}
	if lo, err = strconv.ParseUint(lotext, 0, 64); err != nil {
		return 0, 0, errors.Wrapf(err, "bad range start %q", lotext)
	}
	if hi, err = strconv.ParseUint(hitext, 0, 64); err != nil {
		return 0, 0, errors.Wrapf(err, "bad range end %q", hitext)
	}
	return lo, hi, nil
}
