package compression

import (
	"fmt"

	"github.com/pmdtools/go-ppmdu/internal/bytesio"
)

// byteSeq views a byte slice as a sequence of 1-byte elements.
type byteSeq []byte

func (s byteSeq) Len() int      { return len(s) }
func (s byteSeq) At(i int) byte { return s[i] }

// byteElem is the run-length element codec for plain bytes.
type byteElem struct{}

func (byteElem) Null() byte                  { return 0 }
func (byteElem) Put(s *bytesio.Sink, e byte) { s.PutByte(e) }
func (byteElem) Read(r *bytesio.Reader) (byte, error) {
	return r.ReadByte()
}

type byteRunWriter struct {
	buf []byte
}

func (w *byteRunWriter) Write(e byte) { w.buf = append(w.buf, e) }

// NRLCompress compresses data with the generic run-length engine over plain
// bytes.
func NRLCompress(src []byte) []byte {
	sink := bytesio.NewSink(len(src) * 2)
	runLengthCompress[byte](byteSeq(src), byteElem{}, sink)
	return sink.Bytes()
}

// NRLDecompress decompresses run-length data. expectedSize is the declared
// decompressed length; the source must produce exactly that many bytes.
func NRLDecompress(src []byte, expectedSize int) ([]byte, error) {
	r := bytesio.NewReader(src)
	w := &byteRunWriter{buf: make([]byte, 0, expectedSize)}
	for len(w.buf) < expectedSize {
		if r.Len() == 0 {
			return nil, fmt.Errorf("%w: have %d of %d bytes", ErrTruncated, len(w.buf), expectedSize)
		}
		if err := runLengthDecompressStep[byte](r, byteElem{}, w); err != nil {
			return nil, err
		}
	}
	if len(w.buf) != expectedSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(w.buf), expectedSize)
	}
	return w.buf, nil
}
