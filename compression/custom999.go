package compression

import (
	"fmt"
	"math/bits"
)

// Custom999 is a nibble-stream codec used for a single oversized archive
// entry. Each byte splits into a low and a high nibble; the stream encodes
// the first nibble verbatim and every following nibble as one of three
// variable-length bit codes against two rolling registers:
//
//	1          repeat the current register
//	010        swap the current and previous registers
//	0^k 1 c    signed delta from the current register, wrapped mod 16,
//	           where c is k bits wide
//
// Bits are packed least-significant first into bytes.

type c999BitWriter struct {
	out  []byte
	cur  byte
	nbit uint
}

func (w *c999BitWriter) writeBit(b byte) {
	w.cur |= (b & 1) << w.nbit
	w.nbit++
	if w.nbit == 8 {
		w.out = append(w.out, w.cur)
		w.cur = 0
		w.nbit = 0
	}
}

func (w *c999BitWriter) flush() []byte {
	if w.nbit > 0 {
		w.out = append(w.out, w.cur)
		w.cur = 0
		w.nbit = 0
	}
	return w.out
}

// Custom999Compress compresses data nibble-wise. Empty input yields an
// empty payload.
func Custom999Compress(src []byte) []byte {
	if len(src) == 0 {
		return nil
	}
	nibbles := make([]byte, 0, len(src)*2)
	for _, b := range src {
		nibbles = append(nibbles, b&0xF, b>>4)
	}

	w := &c999BitWriter{out: make([]byte, 1, len(src)+1)}
	current := nibbles[0]
	prev := current
	w.out[0] = current

	for _, v := range nibbles[1:] {
		switch v {
		case current:
			w.writeBit(1)
		case prev:
			w.writeBit(0)
			w.writeBit(1)
			w.writeBit(0)
			prev, current = current, prev
		default:
			prev = current
			diff := int(v) - int(current)
			neg := false
			if diff < 0 {
				neg = true
				diff = -diff
			}
			if diff >= 8 {
				diff = 16 - diff
				neg = !neg
			}
			code := diff << 1
			if neg {
				code++
			}
			// The leading-zero count doubles as the payload width.
			lenCode := bits.Len(uint(code+1)) - 1
			c := (code + 1) % (1 << lenCode)
			for i := 0; i < lenCode; i++ {
				w.writeBit(0)
			}
			w.writeBit(1)
			for i := 0; i < lenCode; i++ {
				w.writeBit(byte(c >> i))
			}
			current = v
		}
	}
	return w.flush()
}

// Custom999Decompress decompresses a payload into exactly expectedSize
// bytes.
func Custom999Decompress(src []byte, expectedSize int) ([]byte, error) {
	if expectedSize == 0 {
		return []byte{}, nil
	}
	if len(src) == 0 {
		return nil, ErrTruncated
	}
	first := src[0]
	if first > 0xF {
		return nil, fmt.Errorf("%w: leading nibble %#x out of range", ErrOutOfBounds, first)
	}
	nibbles := make([]byte, 1, expectedSize*2)
	nibbles[0] = first
	prev, code := int(first), int(first)

	var flags uint64
	var nbits uint
	pos := 1
	for len(nibbles) < expectedSize*2 {
		// Keep at least 17 bits buffered: the widest code is 8 zeros,
		// a marker bit and an 8-bit payload. Past the end of the
		// source, zeros shift in; a well-formed stream never consumes
		// them as payload.
		for nbits < 17 {
			var b uint64
			if pos < len(src) {
				b = uint64(src[pos])
				pos++
			}
			flags |= b << nbits
			nbits += 8
		}
		outn := 8
		for i := 0; i < 8; i++ {
			if flags&(1<<i) != 0 {
				outn = i
				break
			}
		}
		n := (1 << outn) - 1 + int(flags>>(uint(outn)+1))&((1<<outn)-1)
		switch {
		case n == 1:
			nibbles = append(nibbles, byte(prev))
			prev, code = code, prev
		default:
			if n != 0 {
				prev = code
			}
			code = (code + (n>>1)*(1-2*(n&1))) & 0xF
			nibbles = append(nibbles, byte(code))
		}
		consumed := uint(2*outn + 1)
		flags >>= consumed
		nbits -= consumed
	}

	out := make([]byte, expectedSize)
	for i := range out {
		out[i] = nibbles[2*i] | nibbles[2*i+1]<<4
	}
	return out, nil
}
