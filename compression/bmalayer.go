package compression

import (
	"fmt"

	"github.com/pmdtools/go-ppmdu/internal/bytesio"
)

// The BMA layer codec runs the run-length engine over pairs of 12-bit map
// tile values. In the decompressed stream a pair occupies 4 bytes (two
// little-endian 16-bit words); in the compressed stream it is packed into 3
// bytes:
//
//	1111 1111 2222 3333 4444 4444
//	1: low 8 bits of the first value
//	2: low 4 bits of the second value
//	3: high 4 bits of the first value
//	4: high 8 bits of the second value
//
// Both words must fit 12 bits for the packing to be lossless.

// wordPair is one element of the layer stream: two 16-bit words in their raw
// little-endian byte form.
type wordPair [4]byte

// packPair24 packs a word pair into its 3-byte compressed form.
func packPair24(e wordPair) [3]byte {
	v1 := uint32(e[0]) | uint32(e[1])<<8
	v2 := uint32(e[2]) | uint32(e[3])<<8
	packed := (v1&0xff)<<16 | (v2&0xf)<<12 | (v1 & 0xf00) | (v2&0xff0)>>4
	return [3]byte{byte(packed >> 16), byte(packed >> 8), byte(packed)}
}

// unpackPair24 expands a 3-byte packed pair back into two 16-bit words.
func unpackPair24(p [3]byte) wordPair {
	v := uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2])
	v1 := uint16((v&0xff0000)>>16 + v&0x000f00)
	v2 := uint16((v&0x0000ff)<<4 + (v&0x00f000)>>12)
	return wordPair{byte(v1), byte(v1 >> 8), byte(v2), byte(v2 >> 8)}
}

// pairSeq views a byte slice as a sequence of 4-byte word pairs.
type pairSeq []byte

func (s pairSeq) Len() int { return len(s) / 4 }
func (s pairSeq) At(i int) wordPair {
	return wordPair{s[4*i], s[4*i+1], s[4*i+2], s[4*i+3]}
}

// pairElem is the run-length element codec for packed word pairs.
type pairElem struct{}

func (pairElem) Null() wordPair { return wordPair{} }

func (pairElem) Put(s *bytesio.Sink, e wordPair) {
	p := packPair24(e)
	s.PutBytes(p[:])
}

func (pairElem) Read(r *bytesio.Reader) (wordPair, error) {
	var p [3]byte
	if err := r.ReadBytesInto(p[:]); err != nil {
		return wordPair{}, err
	}
	return unpackPair24(p), nil
}

type pairRunWriter struct {
	buf []byte
}

func (w *pairRunWriter) Write(e wordPair) { w.buf = append(w.buf, e[:]...) }

// BMALayerCompress compresses a BMA map layer: a stream of 16-bit words, two
// words per run-length element. The data length must be a multiple of 4 and
// every word must fit 12 bits.
func BMALayerCompress(src []byte) ([]byte, error) {
	if len(src)%4 != 0 {
		return nil, fmt.Errorf("%w: layer data must be a multiple of 4 bytes, got %d", ErrUnevenLength, len(src))
	}
	for i := 0; i+1 < len(src); i += 2 {
		if w := uint16(src[i]) | uint16(src[i+1])<<8; w >= 0x1000 {
			return nil, fmt.Errorf("%w: word %#x at offset %d exceeds 12 bits", ErrCapacityOverflow, w, i)
		}
	}
	sink := bytesio.NewSink(len(src) * 2)
	runLengthCompress[wordPair](pairSeq(src), pairElem{}, sink)
	return sink.Bytes(), nil
}

// BMALayerDecompress decompresses a BMA map layer back into 16-bit words.
// expectedSize is the declared decompressed length in bytes and must be a
// multiple of 4.
func BMALayerDecompress(src []byte, expectedSize int) ([]byte, error) {
	if expectedSize%4 != 0 {
		return nil, fmt.Errorf("%w: layer length must be a multiple of 4 bytes, got %d", ErrUnevenLength, expectedSize)
	}
	r := bytesio.NewReader(src)
	w := &pairRunWriter{buf: make([]byte, 0, expectedSize)}
	for len(w.buf) < expectedSize {
		if r.Len() == 0 {
			return nil, fmt.Errorf("%w: have %d of %d bytes", ErrTruncated, len(w.buf), expectedSize)
		}
		if err := runLengthDecompressStep[wordPair](r, pairElem{}, w); err != nil {
			return nil, err
		}
	}
	if len(w.buf) != expectedSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(w.buf), expectedSize)
	}
	return w.buf, nil
}
