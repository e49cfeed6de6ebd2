package compression

import (
	"fmt"

	"github.com/pmdtools/go-ppmdu/internal/bytesio"
)

// The BPC tilemap codec treats its input as a stream of little-endian 16-bit
// words and compresses the high-byte plane and the low-byte plane separately,
// each with the generic run-length engine. Decompression runs in two phases:
// phase 1 rebuilds the words from the high-byte command stream, phase 2
// re-reads the same command grammar but interprets it as seek / OR-fill /
// OR-copy operations over the words already written:
//
//	0x00..0x7F  skip (cmd + 1) words
//	0x80..0xBF  OR the next byte into (cmd - 0x80 + 1) words
//	0xC0..0xFF  OR one following byte each into (cmd - 0xC0 + 1) words
//
// A zero run in the low-byte plane therefore costs a single seek command.

// BPCTilemapCompress compresses tilemap data. The length must be even.
func BPCTilemapCompress(src []byte) ([]byte, error) {
	if len(src)%2 != 0 {
		return nil, fmt.Errorf("%w: tilemap data must be an even number of bytes, got %d", ErrUnevenLength, len(src))
	}
	if len(src) == 0 {
		return nil, nil
	}

	high := make([]byte, 0, len(src)/2)
	low := make([]byte, 0, len(src)/2)
	for i := 0; i+1 < len(src); i += 2 {
		low = append(low, src[i])
		high = append(high, src[i+1])
	}

	sink := bytesio.NewSink(len(src) * 2)
	runLengthCompress[byte](byteSeq(high), byteElem{}, sink)
	runLengthCompress[byte](byteSeq(low), byteElem{}, sink)
	return sink.Bytes(), nil
}

// wordHighWriter writes each decompressed high byte as a full little-endian
// word with a zero low byte.
type wordHighWriter struct {
	buf []byte
}

func (w *wordHighWriter) Write(e byte) { w.buf = append(w.buf, 0, e) }

// BPCTilemapDecompress decompresses tilemap data. expectedSize is the
// declared decompressed length in bytes and must be even.
func BPCTilemapDecompress(src []byte, expectedSize int) ([]byte, error) {
	if expectedSize%2 != 0 {
		return nil, fmt.Errorf("%w: tilemap length must be even, got %d", ErrUnevenLength, expectedSize)
	}
	r := bytesio.NewReader(src)

	// Phase 1: high bytes.
	w := &wordHighWriter{buf: make([]byte, 0, expectedSize+1)}
	for len(w.buf) < expectedSize {
		if r.Len() == 0 {
			return nil, fmt.Errorf("%w: phase 1 has %d of %d bytes", ErrTruncated, len(w.buf), expectedSize)
		}
		if err := runLengthDecompressStep[byte](r, byteElem{}, w); err != nil {
			return nil, err
		}
	}
	out := w.buf[:expectedSize]

	// Phase 2: low bytes, OR-merged into the words from phase 1.
	for pos := 0; pos < expectedSize; {
		cmd, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: phase 2 at word offset %d", ErrTruncated, pos)
		}
		switch {
		case cmd < runCmdFill:
			pos += (int(cmd) + 1) * 2
		case cmd < runCmdCopy:
			v, err := r.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("%w: phase 2 fill value", ErrTruncated)
			}
			for j := 0; j <= int(cmd-runCmdFill); j++ {
				if pos+2 > expectedSize {
					return nil, fmt.Errorf("%w: phase 2 fill writes past end", ErrOutOfBounds)
				}
				out[pos] |= v
				pos += 2
			}
		default:
			for j := 0; j <= int(cmd-runCmdCopy); j++ {
				v, err := r.ReadByte()
				if err != nil {
					return nil, fmt.Errorf("%w: phase 2 copy value", ErrTruncated)
				}
				if pos+2 > expectedSize {
					return nil, fmt.Errorf("%w: phase 2 copy writes past end", ErrOutOfBounds)
				}
				out[pos] |= v
				pos += 2
			}
		}
	}
	return out, nil
}
