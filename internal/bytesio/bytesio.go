// Package bytesio provides little-endian binary reading and writing utilities
// for the ppmdu container formats.
//
// Every multi-byte value in these formats is little-endian. The Reader is a
// bounds-checked cursor over a caller-owned byte slice and never mutates its
// source; the Sink is an append-only growable destination buffer. Both are
// cheap to create per codec call.
package bytesio

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrShortBuffer is returned when a read would run past the end of the
	// source data.
	ErrShortBuffer = errors.New("bytesio: buffer too short")

	// ErrNegativeSize is returned when a size parameter is negative.
	ErrNegativeSize = errors.New("bytesio: negative size")
)

// ByteOrder is the byte order used by all ppmdu formats.
var ByteOrder = binary.LittleEndian

// Reader provides bounds-checked little-endian reading from a byte slice.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader over data. The Reader does not copy data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	if r.pos >= len(r.data) {
		return 0
	}
	return len(r.data) - r.pos
}

// Pos returns the current read position.
func (r *Reader) Pos() int {
	return r.pos
}

// SetPos sets the read position. Returns an error if pos is out of bounds.
func (r *Reader) SetPos(pos int) error {
	if pos < 0 || pos > len(r.data) {
		return ErrShortBuffer
	}
	r.pos = pos
	return nil
}

// Skip advances the read position by n bytes.
func (r *Reader) Skip(n int) error {
	if n < 0 {
		return ErrNegativeSize
	}
	if r.pos+n > len(r.data) {
		return ErrShortBuffer
	}
	r.pos += n
	return nil
}

// ReadByte reads a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrShortBuffer
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes reads n bytes into a new slice.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeSize
	}
	if r.pos+n > len(r.data) {
		return nil, ErrShortBuffer
	}
	result := make([]byte, n)
	copy(result, r.data[r.pos:r.pos+n])
	r.pos += n
	return result, nil
}

// ReadBytesInto reads len(dst) bytes into dst.
func (r *Reader) ReadBytesInto(dst []byte) error {
	n := len(dst)
	if r.pos+n > len(r.data) {
		return ErrShortBuffer
	}
	copy(dst, r.data[r.pos:r.pos+n])
	r.pos += n
	return nil
}

// ReadUint16 reads an unsigned 16-bit integer in little-endian order.
func (r *Reader) ReadUint16() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadUint32 reads an unsigned 32-bit integer in little-endian order.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, ErrShortBuffer
	}
	v := ByteOrder.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// Sink is an append-only growable destination buffer. Callers should size it
// up front with NewSink using the expected output length; the codecs' inner
// loops rely on appends not reallocating.
type Sink struct {
	buf []byte
}

// NewSink creates a Sink with the given initial capacity.
func NewSink(capacity int) *Sink {
	if capacity < 0 {
		capacity = 0
	}
	return &Sink{buf: make([]byte, 0, capacity)}
}

// Len returns the number of bytes written so far.
func (s *Sink) Len() int {
	return len(s.buf)
}

// Bytes returns the written bytes. The slice aliases the Sink's backing
// buffer and is only valid until the next Put call.
func (s *Sink) Bytes() []byte {
	return s.buf
}

// PutByte appends a single byte.
func (s *Sink) PutByte(b byte) {
	s.buf = append(s.buf, b)
}

// PutBytes appends a byte slice.
func (s *Sink) PutBytes(p []byte) {
	s.buf = append(s.buf, p...)
}

// PutUint16 appends an unsigned 16-bit integer in little-endian order.
func (s *Sink) PutUint16(v uint16) {
	s.buf = append(s.buf, byte(v), byte(v>>8))
}

// PutUint32 appends an unsigned 32-bit integer in little-endian order.
func (s *Sink) PutUint32(v uint32) {
	s.buf = append(s.buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}
