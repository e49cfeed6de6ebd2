package container

import (
	"fmt"

	"github.com/pmdtools/go-ppmdu/internal/bytesio"
)

// AT4PN: stored payload, no compression.
//
//	0x00  magic "AT4PN"
//	0x05  u16  payload size
//	0x07  payload

var magicAT4PN = []byte("AT4PN")

const at4pnDataStart = 7

// AT4PNContainer holds a stored payload.
type AT4PNContainer struct {
	Data []byte
}

// CompressAT4PN wraps data uncompressed. The data must fit the header's
// 16-bit size field.
func CompressAT4PN(src []byte) (*AT4PNContainer, error) {
	if len(src) > 0xffff {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, len(src))
	}
	return &AT4PNContainer{Data: src}, nil
}

// ParseAT4PN reads an AT4PN container from the start of data.
func ParseAT4PN(data []byte) (*AT4PNContainer, error) {
	r := bytesio.NewReader(data)
	if err := r.Skip(len(magicAT4PN)); err != nil {
		return nil, ErrTruncated
	}
	size, err := r.ReadUint16()
	if err != nil {
		return nil, ErrTruncated
	}
	payload, err := r.ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("%w: declared payload size %d, have %d bytes", ErrTruncated, size, r.Len())
	}
	return &AT4PNContainer{Data: payload}, nil
}

func (c *AT4PNContainer) Kind() Kind { return AT4PN }

func (c *AT4PNContainer) Decompress() ([]byte, error) {
	out := make([]byte, len(c.Data))
	copy(out, c.Data)
	return out, nil
}

func (c *AT4PNContainer) Bytes() []byte {
	s := bytesio.NewSink(c.ContainerSize())
	s.PutBytes(magicAT4PN)
	s.PutUint16(uint16(len(c.Data)))
	s.PutBytes(c.Data)
	return s.Bytes()
}

func (c *AT4PNContainer) ContainerSize() int { return at4pnDataStart + len(c.Data) }
