package container

import (
	"fmt"

	"github.com/pmdtools/go-ppmdu/compression"
	"github.com/pmdtools/go-ppmdu/internal/bytesio"
)

// AT4PX: PX-compressed payload with a 16-bit decompressed size.
//
//	0x00  magic "AT4PX"
//	0x05  u16  container size
//	0x07  [9]  PX control flags
//	0x10  u16  decompressed size
//	0x12  payload

var magicAT4PX = []byte("AT4PX")

const at4pxDataStart = 0x12

// AT4PXContainer holds a parsed or freshly compressed AT4PX container.
type AT4PXContainer struct {
	Flags            [9]byte
	DecompressedSize uint16
	Data             []byte
}

// CompressAT4PX compresses data into an AT4PX container. The data must fit
// the header's 16-bit size fields.
func CompressAT4PX(src []byte) (*AT4PXContainer, error) {
	if len(src) > 0xffff {
		return nil, fmt.Errorf("%w: %d decompressed bytes", ErrTooLarge, len(src))
	}
	px, flags, err := compression.PXCompress(src)
	if err != nil {
		return nil, err
	}
	if at4pxDataStart+len(px) > 0xffff {
		return nil, fmt.Errorf("%w: %d compressed bytes", ErrTooLarge, len(px))
	}
	return &AT4PXContainer{
		Flags:            flags,
		DecompressedSize: uint16(len(src)),
		Data:             px,
	}, nil
}

// ParseAT4PX reads an AT4PX container from the start of data.
func ParseAT4PX(data []byte) (*AT4PXContainer, error) {
	r := bytesio.NewReader(data)
	if err := r.Skip(len(magicAT4PX)); err != nil {
		return nil, ErrTruncated
	}
	lenComp, err := r.ReadUint16()
	if err != nil {
		return nil, ErrTruncated
	}
	c := &AT4PXContainer{}
	if err := r.ReadBytesInto(c.Flags[:]); err != nil {
		return nil, ErrTruncated
	}
	if c.DecompressedSize, err = r.ReadUint16(); err != nil {
		return nil, ErrTruncated
	}
	if c.Data, err = r.ReadBytes(int(lenComp) - at4pxDataStart); err != nil {
		return nil, fmt.Errorf("%w: container size %d", ErrTruncated, lenComp)
	}
	return c, nil
}

func (c *AT4PXContainer) Kind() Kind { return AT4PX }

func (c *AT4PXContainer) Decompress() ([]byte, error) {
	return compression.PXDecompress(c.Data, c.Flags[:], int(c.DecompressedSize))
}

func (c *AT4PXContainer) Bytes() []byte {
	s := bytesio.NewSink(c.ContainerSize())
	s.PutBytes(magicAT4PX)
	s.PutUint16(uint16(c.ContainerSize()))
	s.PutBytes(c.Flags[:])
	s.PutUint16(c.DecompressedSize)
	s.PutBytes(c.Data)
	return s.Bytes()
}

func (c *AT4PXContainer) ContainerSize() int { return at4pxDataStart + len(c.Data) }
