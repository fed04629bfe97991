package mem

import (
	"memimg/settings"
)

// Constant generators build single-chunk spaces the same way a codec
// would, so the result can be folded into other spaces with AddSpace.
// Multi-byte variants take the byte order explicitly; pass
// settings.Default().Endian to follow the process-wide default.

// Const8 returns a space holding the given bytes at addr.
func Const8(addr uint64, values []uint8) *Space {
	s := NewSpace()
	_ = s.addOne(NewChunk(addr, values))
	return s
}

// Const16 returns a space holding the given 16-bit words at addr, packed
// per endian.
func Const16(addr uint64, endian settings.Endian, values []uint16) *Space {
	bo := endian.ByteOrder()
	data := make([]byte, 0, 2*len(values))
	var word [2]byte
	for _, v := range values {
		bo.PutUint16(word[:], v)
		data = append(data, word[:]...)
	}
	s := NewSpace()
	_ = s.addOne(&Chunk{base: addr, data: data})
	return s
}

// Const32 returns a space holding the given 32-bit words at addr, packed
// per endian.
func Const32(addr uint64, endian settings.Endian, values []uint32) *Space {
	bo := endian.ByteOrder()
	data := make([]byte, 0, 4*len(values))
	var word [4]byte
	for _, v := range values {
		bo.PutUint32(word[:], v)
		data = append(data, word[:]...)
	}
	s := NewSpace()
	_ = s.addOne(&Chunk{base: addr, data: data})
	return s
}

// ConstString returns a space holding the string's bytes at addr.
func ConstString(addr uint64, text string) *Space {
	s := NewSpace()
	_ = s.addOne(NewChunk(addr, []byte(text)))
	return s
}
