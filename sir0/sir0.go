// Package sir0 implements the SIR0 relocatable-object wrapper: a 16-byte
// header, a payload whose internal pointers are stored relative to the file
// start, and a variable-length table listing where those pointers live so
// they can be adjusted when the payload is embedded elsewhere.
package sir0

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/pmdtools/go-ppmdu/internal/bytesio"
)

var (
	ErrInvalidMagic   = errors.New("sir0: invalid magic")
	ErrTruncated      = errors.New("sir0: data shorter than header")
	ErrOutOfBounds    = errors.New("sir0: pointer outside content")
	ErrOffsetOverflow = errors.New("sir0: offset does not fit 32 bits after header shift")
)

var magic = []byte("SIR0")

// HeaderSize is the fixed size of the SIR0 header: magic, root data pointer,
// offset table pointer and a reserved zero field.
const HeaderSize = 16

// Document is the unwrapped form of a SIR0 file.
type Document struct {
	// Content is the payload with all pointers relative to its own start.
	Content []byte
	// PointerOffsets lists the byte offsets inside Content that hold
	// 32-bit pointers.
	PointerOffsets []uint32
	// DataPointer is the offset of the root object inside Content.
	DataPointer uint32
}

// appendBase128 appends v in base-128: 7-bit groups most significant first,
// leading zero groups omitted, continuation bit set on all but the last.
func appendBase128(dst []byte, v uint32) []byte {
	var groups [5]byte
	n := 0
	for {
		groups[n] = byte(v & 0x7f)
		n++
		v >>= 7
		if v == 0 {
			break
		}
	}
	for i := n - 1; i > 0; i-- {
		dst = append(dst, groups[i]|0x80)
	}
	return append(dst, groups[0])
}

// EncodeOffsets encodes a list of 32-bit offsets in base-128. In relative
// mode each offset is delta-encoded against the previous one, which keeps
// the encoded groups short for closely spaced pointers.
func EncodeOffsets(offsets []uint32, relative bool) []byte {
	out := make([]byte, 0, len(offsets)*2)
	prev := uint32(0)
	for _, off := range offsets {
		v := off
		if relative {
			v = off - prev
			prev = off
		}
		out = appendBase128(out, v)
	}
	return out
}

// DecodeOffsets decodes a base-128 offset list, consuming all of data. In
// relative mode the decoded deltas are re-accumulated.
func DecodeOffsets(data []byte, relative bool) ([]uint32, error) {
	var out []uint32
	var acc uint32
	prev := uint32(0)
	inValue := false
	for _, b := range data {
		if acc > 0x1ffffff {
			return nil, fmt.Errorf("%w: encoded value exceeds 32 bits", ErrOffsetOverflow)
		}
		acc = acc<<7 | uint32(b&0x7f)
		inValue = true
		if b&0x80 == 0 {
			if relative {
				acc += prev
				prev = acc
			}
			out = append(out, acc)
			acc = 0
			inValue = false
		}
	}
	if inValue {
		return nil, fmt.Errorf("%w: offset table ends inside a value", ErrTruncated)
	}
	return out, nil
}

// Wrap serializes a document into SIR0 form. Every pointer inside the
// content, the root data pointer, and the offsets in the relocation table
// are shifted by the header size; the table is appended delta-encoded after
// the 16-byte-aligned payload and terminated with a zero byte.
func Wrap(doc *Document) ([]byte, error) {
	content := doc.Content
	for _, off := range doc.PointerOffsets {
		if int(off)+4 > len(content) {
			return nil, fmt.Errorf("%w: pointer offset %#x in %d content bytes", ErrOutOfBounds, off, len(content))
		}
	}
	if int(doc.DataPointer) > len(content) {
		return nil, fmt.Errorf("%w: data pointer %#x in %d content bytes", ErrOutOfBounds, doc.DataPointer, len(content))
	}

	// Shift the pointer values stored in the content.
	shifted := make([]byte, len(content))
	copy(shifted, content)
	for _, off := range doc.PointerOffsets {
		v := bytesio.ByteOrder.Uint32(shifted[off:])
		if v > 0xffffffff-HeaderSize {
			return nil, fmt.Errorf("%w: pointer value %#x at offset %#x", ErrOffsetOverflow, v, off)
		}
		bytesio.ByteOrder.PutUint32(shifted[off:], v+HeaderSize)
	}

	s := bytesio.NewSink(HeaderSize + len(content) + len(doc.PointerOffsets)*2 + 32)
	s.PutBytes(magic)
	s.PutUint32(doc.DataPointer + HeaderSize)
	s.PutUint32(0) // table pointer, patched below
	s.PutUint32(0)
	s.PutBytes(shifted)
	padTo16(s)
	tablePtr := s.Len()

	// The table covers the two header pointer fields, then the content
	// pointers shifted into file coordinates. Delta encoding needs them
	// strictly increasing.
	offsets := make([]uint32, 0, len(doc.PointerOffsets)+2)
	offsets = append(offsets, 4, 8)
	for _, off := range doc.PointerOffsets {
		offsets = append(offsets, off+HeaderSize)
	}
	sort.Slice(offsets[2:], func(i, j int) bool { return offsets[2+i] < offsets[2+j] })
	for i := 3; i < len(offsets); i++ {
		if offsets[i] == offsets[i-1] {
			return nil, fmt.Errorf("sir0: duplicate pointer offset %#x", offsets[i]-HeaderSize)
		}
	}
	s.PutBytes(EncodeOffsets(offsets, true))
	s.PutByte(0)
	padTo16(s)

	out := s.Bytes()
	bytesio.ByteOrder.PutUint32(out[8:], uint32(tablePtr))
	return out, nil
}

// Unwrap parses a SIR0 file and restores all pointers to content-relative
// form.
func Unwrap(data []byte) (*Document, error) {
	if len(data) < HeaderSize {
		return nil, ErrTruncated
	}
	if !bytes.Equal(data[:4], magic) {
		return nil, ErrInvalidMagic
	}
	dataPtr := bytesio.ByteOrder.Uint32(data[4:])
	tablePtr := bytesio.ByteOrder.Uint32(data[8:])
	if int(tablePtr) > len(data) || tablePtr < HeaderSize {
		return nil, fmt.Errorf("%w: offset table at %#x in %d bytes", ErrOutOfBounds, tablePtr, len(data))
	}
	if dataPtr < HeaderSize || dataPtr > tablePtr {
		return nil, fmt.Errorf("%w: data pointer %#x", ErrOutOfBounds, dataPtr)
	}

	table := data[tablePtr:]
	if i := bytes.IndexByte(table, 0); i >= 0 {
		table = table[:i]
	}
	offsets, err := DecodeOffsets(table, true)
	if err != nil {
		return nil, err
	}
	if len(offsets) < 2 || offsets[0] != 4 || offsets[1] != 8 {
		return nil, fmt.Errorf("%w: relocation table must start with the header fields", ErrOutOfBounds)
	}

	content := make([]byte, tablePtr-HeaderSize)
	copy(content, data[HeaderSize:tablePtr])

	doc := &Document{
		Content:        content,
		PointerOffsets: make([]uint32, 0, len(offsets)-2),
		DataPointer:    dataPtr - HeaderSize,
	}
	for _, off := range offsets[2:] {
		if off < HeaderSize || int(off)+4 > len(data) || int(off)+4 > int(tablePtr) {
			return nil, fmt.Errorf("%w: relocation offset %#x", ErrOutOfBounds, off)
		}
		rel := off - HeaderSize
		v := bytesio.ByteOrder.Uint32(content[rel:])
		if v < HeaderSize {
			return nil, fmt.Errorf("%w: pointer value %#x at offset %#x", ErrOutOfBounds, v, rel)
		}
		bytesio.ByteOrder.PutUint32(content[rel:], v-HeaderSize)
		doc.PointerOffsets = append(doc.PointerOffsets, rel)
	}
	return doc, nil
}

func padTo16(s *bytesio.Sink) {
	for s.Len()%16 != 0 {
		s.PutByte(0)
	}
}
