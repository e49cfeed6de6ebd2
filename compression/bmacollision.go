package compression

import "fmt"

// The BMA collision codec run-length encodes a grid of booleans. Each command
// byte carries the value in its high bit and the run length minus one in the
// low seven bits; there are no escapes and no state across commands.

const collisionMaxRun = 127

// BMACollisionCompress compresses a collision grid. Every source byte is
// either 0 or 1.
func BMACollisionCompress(src []byte) []byte {
	out := make([]byte, 0, len(src)/8+1)
	for i := 0; i < len(src); {
		b := src[i]
		repeats := 0
		for i+1+repeats < len(src) && src[i+1+repeats] == b && repeats < collisionMaxRun {
			repeats++
		}
		i += repeats + 1
		cmd := byte(repeats)
		if b > 0 {
			cmd |= 0x80
		}
		out = append(out, cmd)
	}
	return out
}

// BMACollisionDecompress expands a collision grid to exactly expectedSize
// bytes of 0s and 1s.
func BMACollisionDecompress(src []byte, expectedSize int) ([]byte, error) {
	out := make([]byte, 0, expectedSize)
	pos := 0
	for len(out) < expectedSize {
		if pos >= len(src) {
			return nil, fmt.Errorf("%w: have %d of %d bytes", ErrTruncated, len(out), expectedSize)
		}
		cmd := src[pos]
		pos++
		v := cmd >> 7
		for j := 0; j <= int(cmd&0x7f); j++ {
			out = append(out, v)
		}
	}
	if len(out) != expectedSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(out), expectedSize)
	}
	return out, nil
}
