package container

import (
	"fmt"

	"github.com/pmdtools/go-ppmdu/compression"
	"github.com/pmdtools/go-ppmdu/internal/bytesio"
)

// PKDPX: PX-compressed payload with a 32-bit decompressed size.
//
//	0x00  magic "PKDPX"
//	0x05  u16  container size
//	0x07  [9]  PX control flags
//	0x10  u32  decompressed size
//	0x14  payload

var magicPKDPX = []byte("PKDPX")

const pkdpxDataStart = 0x14

// PKDPXContainer holds a parsed or freshly compressed PKDPX container.
type PKDPXContainer struct {
	Flags            [9]byte
	DecompressedSize uint32
	Data             []byte
}

// CompressPKDPX compresses data into a PKDPX container.
func CompressPKDPX(src []byte) (*PKDPXContainer, error) {
	px, flags, err := compression.PXCompress(src)
	if err != nil {
		return nil, err
	}
	if pkdpxDataStart+len(px) > 0xffff {
		return nil, fmt.Errorf("%w: %d compressed bytes", ErrTooLarge, len(px))
	}
	return &PKDPXContainer{
		Flags:            flags,
		DecompressedSize: uint32(len(src)),
		Data:             px,
	}, nil
}

// ParsePKDPX reads a PKDPX container from the start of data.
func ParsePKDPX(data []byte) (*PKDPXContainer, error) {
	r := bytesio.NewReader(data)
	if err := r.Skip(len(magicPKDPX)); err != nil {
		return nil, ErrTruncated
	}
	lenComp, err := r.ReadUint16()
	if err != nil {
		return nil, ErrTruncated
	}
	c := &PKDPXContainer{}
	if err := r.ReadBytesInto(c.Flags[:]); err != nil {
		return nil, ErrTruncated
	}
	if c.DecompressedSize, err = r.ReadUint32(); err != nil {
		return nil, ErrTruncated
	}
	if c.Data, err = r.ReadBytes(int(lenComp) - pkdpxDataStart); err != nil {
		return nil, fmt.Errorf("%w: container size %d", ErrTruncated, lenComp)
	}
	return c, nil
}

func (c *PKDPXContainer) Kind() Kind { return PKDPX }

func (c *PKDPXContainer) Decompress() ([]byte, error) {
	return compression.PXDecompress(c.Data, c.Flags[:], int(c.DecompressedSize))
}

func (c *PKDPXContainer) Bytes() []byte {
	s := bytesio.NewSink(c.ContainerSize())
	s.PutBytes(magicPKDPX)
	s.PutUint16(uint16(c.ContainerSize()))
	s.PutBytes(c.Flags[:])
	s.PutUint32(c.DecompressedSize)
	s.PutBytes(c.Data)
	return s.Bytes()
}

func (c *PKDPXContainer) ContainerSize() int { return pkdpxDataStart + len(c.Data) }
