package mem

// Byte-level transforms. The in-place transforms return their argument so
// calls can be chained with the rebinding style the operations share:
//
//	img = mem.Swap16(img)

var bitReverseTable [256]byte

func init() {
	for i := range bitReverseTable {
		x := byte(i)
		x = (x&0xAA)>>1 | (x&0x55)<<1
		x = (x&0xCC)>>2 | (x&0x33)<<2
		x = (x&0xF0)>>4 | (x&0x0F)<<4
		bitReverseTable[i] = x
	}
}

// BitReverse reverses the bit order of every byte in s, in place.
func BitReverse(s *Space) *Space {
	for _, c := range s.chunks {
		for i, b := range c.data {
			c.data[i] = bitReverseTable[b]
		}
	}
	return s
}

// Swap16 reverses every 2-byte group in s, in place: a 16-bit endian
// translation. A trailing odd byte is left where it is.
func Swap16(s *Space) *Space {
	return swapGroups(s, 2)
}

// Swap32 reverses every 4-byte group in s, in place: a 32-bit endian
// translation. A trailing partial group is reversed within itself.
func Swap32(s *Space) *Space {
	return swapGroups(s, 4)
}

func swapGroups(s *Space, n int) *Space {
	for _, c := range s.chunks {
		for at := 0; at < len(c.data); at += n {
			group := c.data[at:min(at+n, len(c.data))]
			for i, j := 0, len(group)-1; i < j; i, j = i+1, j-1 {
				group[i], group[j] = group[j], group[i]
			}
		}
	}
	return s
}

// RLL0 returns a new space with every chunk run-length compressed: each
// run of n consecutive zero bytes (1 <= n <= 256) becomes the two-byte
// pair 0, n, with n == 0 standing for 256. Chunks keep their start
// addresses. Isolated zeros make a chunk grow, so a compressed chunk can
// collide with its neighbor; that fails per the space's collision policy.
func RLL0(s *Space) (*Space, error) {
	out := &Space{CollisionError: s.CollisionError}
	for _, c := range s.chunks {
		if err := out.addOne(rll0Chunk(c)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func rll0Chunk(c *Chunk) *Chunk {
	data := make([]byte, 0, len(c.data))
	zeros := 0
	for _, b := range c.data {
		if b == 0 {
			zeros++
			if zeros == 256 {
				data = append(data, 0, 0)
				zeros = 0
			}
			continue
		}
		if zeros != 0 {
			data = append(data, 0, byte(zeros))
			zeros = 0
		}
		data = append(data, b)
	}
	if zeros != 0 {
		data = append(data, 0, byte(zeros))
	}
	return &Chunk{base: c.base, data: data}
}
