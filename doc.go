// Package memimg assembles sparse binary memory images for embedded
// build pipelines: firmware and FPGA artifacts linked separately, merged
// into one address space, checksummed, and written back out.
//
// The packages are building blocks meant to be composed in small
// programs:
//
//   - mem holds the data model: Chunk, Space, region operations
//     (Crop/Offset/Fill/Duplicate), constant generators, and byte
//     transforms.
//   - checksum computes word-wise checksums over a space.
//   - srec, ihex, and rawbin read and write Motorola S-record, Intel
//     HEX, and raw binary files.
//   - settings carries the process-wide defaults (byte order,
//     strictness) that every operation can override per call.
//
// A typical assembly reads each artifact, relocates it with mem.Offset,
// folds everything into one Space with AddSpace, fills the gaps, and
// writes the result:
//
//	img, err := srec.NewReader(nil).ReadFile("firmware.s28")
//	// handle err...
//	if err := mem.Offset(img, 0x8); err != nil { ... }
//	if err := img.AddSpace(mem.Const32(0, settings.LittleEndian,
//		[]uint32{0x12345678})); err != nil { ... }
//	img, err = mem.Fill(img, 0, 0x10000, mem.Value(0xFF, settings.LittleEndian))
//	// handle err...
//	if err := rawbin.WriteFile("rom.bin", img); err != nil { ... }
//
// Everything is synchronous and single-owner: no operation spawns
// goroutines, and no Space may be shared across goroutines without
// caller-side serialization.
package memimg
