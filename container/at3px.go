package container

import (
	"fmt"

	"github.com/pmdtools/go-ppmdu/compression"
	"github.com/pmdtools/go-ppmdu/internal/bytesio"
)

// AT3PX: PX-compressed payload with no decompressed size field; the PX
// stream itself determines where the output ends.
//
//	0x00  magic "AT3PX"
//	0x05  u16  container size
//	0x07  [9]  PX control flags
//	0x10  payload

var magicAT3PX = []byte("AT3PX")

const at3pxDataStart = 0x10

// AT3PXContainer holds a parsed or freshly compressed AT3PX container.
type AT3PXContainer struct {
	Flags [9]byte
	Data  []byte
}

// CompressAT3PX compresses data into an AT3PX container.
func CompressAT3PX(src []byte) (*AT3PXContainer, error) {
	px, flags, err := compression.PXCompress(src)
	if err != nil {
		return nil, err
	}
	if at3pxDataStart+len(px) > 0xffff {
		return nil, fmt.Errorf("%w: %d compressed bytes", ErrTooLarge, len(px))
	}
	return &AT3PXContainer{Flags: flags, Data: px}, nil
}

// ParseAT3PX reads an AT3PX container from the start of data.
func ParseAT3PX(data []byte) (*AT3PXContainer, error) {
	r := bytesio.NewReader(data)
	if err := r.Skip(len(magicAT3PX)); err != nil {
		return nil, ErrTruncated
	}
	lenComp, err := r.ReadUint16()
	if err != nil {
		return nil, ErrTruncated
	}
	c := &AT3PXContainer{}
	if err := r.ReadBytesInto(c.Flags[:]); err != nil {
		return nil, ErrTruncated
	}
	if c.Data, err = r.ReadBytes(int(lenComp) - at3pxDataStart); err != nil {
		return nil, fmt.Errorf("%w: container size %d", ErrTruncated, lenComp)
	}
	return c, nil
}

func (c *AT3PXContainer) Kind() Kind { return AT3PX }

func (c *AT3PXContainer) Decompress() ([]byte, error) {
	return compression.PXDecompress(c.Data, c.Flags[:], -1)
}

func (c *AT3PXContainer) Bytes() []byte {
	s := bytesio.NewSink(c.ContainerSize())
	s.PutBytes(magicAT3PX)
	s.PutUint16(uint16(c.ContainerSize()))
	s.PutBytes(c.Flags[:])
	s.PutBytes(c.Data)
	return s.Bytes()
}

func (c *AT3PXContainer) ContainerSize() int { return at3pxDataStart + len(c.Data) }
